package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-board/internal/cache"
	"github.com/spec-kit/repair-board/internal/config"
	"github.com/spec-kit/repair-board/internal/domain"
	"github.com/spec-kit/repair-board/internal/repository"
)

// SummaryCache is the read-through cache the stats service sits on.
type SummaryCache interface {
	Get(ctx context.Context, dst any) error
	Set(ctx context.Context, value any) error
}

// StatsSummary aggregates board-wide statistics.
type StatsSummary struct {
	TotalCards     int                `json:"total_tarjetas"`
	CountsByStatus map[string]int     `json:"conteo_por_estado"`
	AvgDwellDays   map[string]float64 `json:"promedio_dias_por_transicion"`
	TopProblems    []ProblemCount     `json:"problemas_frecuentes"`
	ChargerRatio   float64            `json:"proporcion_con_cargador"`
	MonthlyTrend   []MonthCount       `json:"tendencia_mensual"`
}

// ProblemCount is one entry of the most-frequent-problems ranking.
type ProblemCount struct {
	Problem string `json:"problema"`
	Count   int    `json:"total"`
}

// MonthCount is one month of the creation trend.
type MonthCount struct {
	Month string `json:"mes"`
	Count int    `json:"total"`
}

// StatsService computes the read aggregate with a read-through cache:
// a hit returns the cached summary, a miss recomputes from the store
// and refills the cache.
type StatsService struct {
	cards  repository.CardRepository
	cache  SummaryCache
	cfg    config.StatsConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(cards repository.CardRepository, summaryCache SummaryCache, cfg config.StatsConfig, logger *zap.Logger) *StatsService {
	if cfg.TopProblems <= 0 {
		cfg.TopProblems = 5
	}
	if cfg.TrendMonths <= 0 {
		cfg.TrendMonths = 6
	}
	return &StatsService{
		cards:  cards,
		cache:  summaryCache,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Summary returns the aggregate, serving from cache when possible.
func (s *StatsService) Summary(ctx context.Context) (*StatsSummary, error) {
	if s.cache != nil {
		var cached StatsSummary
		err := s.cache.Get(ctx, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	cards, err := s.cards.List(ctx, repository.CardPage{})
	if err != nil {
		return nil, fmt.Errorf("load cards for stats: %w", err)
	}
	summary := s.compute(cards)

	if s.cache != nil {
		if err := s.cache.Set(ctx, summary); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// dwellPairs lists the consecutive workflow stages measured by the
// average dwell aggregate.
var dwellPairs = []struct {
	key  string
	from domain.CardStatus
	to   domain.CardStatus
}{
	{"ingresado_a_diagnosticada", domain.StatusIngresado, domain.StatusDiagnosticada},
	{"diagnosticada_a_para_entregar", domain.StatusDiagnosticada, domain.StatusParaEntregar},
	{"para_entregar_a_listos", domain.StatusParaEntregar, domain.StatusListos},
}

func (s *StatsService) compute(cards []domain.RepairCard) *StatsSummary {
	summary := &StatsSummary{
		TotalCards:     len(cards),
		CountsByStatus: map[string]int{},
		AvgDwellDays:   map[string]float64{},
	}
	for _, status := range domain.AllStatuses {
		summary.CountsByStatus[string(status)] = 0
	}

	problems := map[string]int{}
	chargerYes, chargerKnown := 0, 0

	for i := range cards {
		card := &cards[i]
		summary.CountsByStatus[string(card.Status)]++

		if problem := strings.TrimSpace(card.Problem); problem != "" {
			problems[problem]++
		}
		if card.HasCharger != nil {
			switch *card.HasCharger {
			case domain.ChargerIncluded:
				chargerYes++
				chargerKnown++
			case domain.ChargerMissing:
				chargerKnown++
			}
		}
	}

	for _, pair := range dwellPairs {
		summary.AvgDwellDays[pair.key] = averageDwellDays(cards, pair.from, pair.to)
	}

	summary.TopProblems = topProblems(problems, s.cfg.TopProblems)

	if chargerKnown > 0 {
		summary.ChargerRatio = math.Round(float64(chargerYes)/float64(chargerKnown)*100) / 100
	}

	summary.MonthlyTrend = monthlyTrend(cards, s.now().UTC(), s.cfg.TrendMonths)
	return summary
}

// averageDwellDays computes the mean days between first entering `from`
// and first entering `to`, in whole days rounded to one decimal. Cards
// missing either timestamp do not count; an empty denominator yields 0.
func averageDwellDays(cards []domain.RepairCard, from, to domain.CardStatus) float64 {
	var total float64
	var count int
	for i := range cards {
		entered := cards[i].EntryTime(from)
		left := cards[i].EntryTime(to)
		if entered == nil || left == nil {
			continue
		}
		days := left.Sub(*entered).Hours() / 24
		if days < 0 {
			continue
		}
		total += days
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Round(total/float64(count)*10) / 10
}

func topProblems(problems map[string]int, limit int) []ProblemCount {
	ranked := make([]ProblemCount, 0, len(problems))
	for problem, count := range problems {
		ranked = append(ranked, ProblemCount{Problem: problem, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Problem < ranked[j].Problem
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// monthlyTrend counts card creations per month over the trailing window,
// oldest month first, including empty months.
func monthlyTrend(cards []domain.RepairCard, now time.Time, months int) []MonthCount {
	counts := map[string]int{}
	for i := range cards {
		counts[cards[i].StartDate.Format("2006-01")]++
	}

	trend := make([]MonthCount, 0, months)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	for i := 0; i < months; i++ {
		month := first.AddDate(0, i, 0).Format("2006-01")
		trend = append(trend, MonthCount{Month: month, Count: counts[month]})
	}
	return trend
}
