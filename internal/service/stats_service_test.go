package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-board/internal/cache"
	"github.com/spec-kit/repair-board/internal/config"
	"github.com/spec-kit/repair-board/internal/domain"
)

func timeAt(day int, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
}

func chargerFlag(v string) *string { return &v }

func statsFixture(t *testing.T, cards []domain.RepairCard) *StatsService {
	t.Helper()
	store := newFakeStore()
	for i := range cards {
		store.nextID++
		cards[i].ID = store.nextID
		store.cards[cards[i].ID] = cards[i]
	}
	svc := NewStatsService(store, nil, config.StatsConfig{TopProblems: 2, TrendMonths: 3}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestStatsSummary(t *testing.T) {
	ingresado1 := timeAt(1, 0)
	diag1 := timeAt(3, 0) // 2 days after intake
	ingresado2 := timeAt(2, 0)
	diag2 := timeAt(3, 0) // 1 day
	entrega2 := timeAt(4, 12)
	listos2 := timeAt(5, 0)

	cards := []domain.RepairCard{
		{
			Status: domain.StatusDiagnosticada, Problem: "pantalla rota",
			StartDate: ingresado1, IngresadoAt: &ingresado1, DiagnosticadaAt: &diag1,
			HasCharger: chargerFlag(domain.ChargerIncluded),
		},
		{
			Status: domain.StatusListos, Problem: "pantalla rota",
			StartDate: ingresado2, IngresadoAt: &ingresado2, DiagnosticadaAt: &diag2,
			ParaEntregarAt: &entrega2, ListosAt: &listos2,
			HasCharger: chargerFlag(domain.ChargerMissing),
		},
		{
			Status: domain.StatusIngresado, Problem: "no enciende",
			StartDate: time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC),
			HasCharger: chargerFlag(domain.ChargerIncluded),
		},
	}

	svc := statsFixture(t, cards)
	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if summary.TotalCards != 3 {
		t.Fatalf("total = %d", summary.TotalCards)
	}
	wantCounts := map[string]int{"ingresado": 1, "diagnosticada": 1, "para_entregar": 0, "listos": 1}
	for status, want := range wantCounts {
		if got := summary.CountsByStatus[status]; got != want {
			t.Errorf("count[%s] = %d, want %d", status, got, want)
		}
	}

	// (2 + 1) / 2 days
	if got := summary.AvgDwellDays["ingresado_a_diagnosticada"]; got != 1.5 {
		t.Errorf("avg ingresado->diagnosticada = %v, want 1.5", got)
	}
	// only card 2 reached listos, 0.5 days after para_entregar
	if got := summary.AvgDwellDays["para_entregar_a_listos"]; got != 0.5 {
		t.Errorf("avg para_entregar->listos = %v, want 0.5", got)
	}

	if len(summary.TopProblems) != 2 {
		t.Fatalf("top problems = %+v", summary.TopProblems)
	}
	if summary.TopProblems[0].Problem != "pantalla rota" || summary.TopProblems[0].Count != 2 {
		t.Errorf("top problem = %+v", summary.TopProblems[0])
	}

	// 2 of 3 known flags say the charger came along
	if got := summary.ChargerRatio; got != 0.67 {
		t.Errorf("charger ratio = %v, want 0.67", got)
	}

	if len(summary.MonthlyTrend) != 3 {
		t.Fatalf("trend = %+v", summary.MonthlyTrend)
	}
	wantTrend := []MonthCount{{"2026-01", 1}, {"2026-02", 0}, {"2026-03", 2}}
	for i, want := range wantTrend {
		if summary.MonthlyTrend[i] != want {
			t.Errorf("trend[%d] = %+v, want %+v", i, summary.MonthlyTrend[i], want)
		}
	}
}

func TestStatsSummaryEmptyBoard(t *testing.T) {
	svc := statsFixture(t, nil)
	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalCards != 0 {
		t.Fatalf("total = %d", summary.TotalCards)
	}
	for pair, avg := range summary.AvgDwellDays {
		if avg != 0 {
			t.Errorf("avg[%s] = %v on an empty board", pair, avg)
		}
	}
	if summary.ChargerRatio != 0 {
		t.Errorf("charger ratio = %v on an empty board", summary.ChargerRatio)
	}
	if len(summary.TopProblems) != 0 {
		t.Errorf("top problems = %+v on an empty board", summary.TopProblems)
	}
}

type countingCache struct {
	stored *StatsSummary
	gets   int
	sets   int
}

func (c *countingCache) Get(_ context.Context, dst any) error {
	c.gets++
	if c.stored == nil {
		return cache.ErrMiss
	}
	*dst.(*StatsSummary) = *c.stored
	return nil
}

func (c *countingCache) Set(_ context.Context, value any) error {
	c.sets++
	stored := *value.(*StatsSummary)
	c.stored = &stored
	return nil
}

func TestStatsSummaryReadThrough(t *testing.T) {
	svc := statsFixture(t, []domain.RepairCard{{Status: domain.StatusIngresado, Problem: "x", StartDate: timeAt(1, 0)}})
	cacheSpy := &countingCache{}
	svc.cache = cacheSpy

	first, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if cacheSpy.sets != 1 {
		t.Fatalf("miss must refill the cache, sets = %d", cacheSpy.sets)
	}

	second, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if cacheSpy.sets != 1 {
		t.Fatalf("hit must not recompute, sets = %d", cacheSpy.sets)
	}
	if first.TotalCards != second.TotalCards {
		t.Fatalf("cached summary differs")
	}
}
