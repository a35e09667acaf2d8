package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-board/internal/domain"
)

// CardPage captures list pagination. A zero Limit returns all cards.
type CardPage struct {
	Limit  int
	Offset int
}

// CardRepository encapsulates repair card persistence. UpdateWithHistory
// writes the card and its transition entry as a single transaction; a
// partial application never becomes visible.
type CardRepository interface {
	Create(ctx context.Context, card *domain.RepairCard) error
	Update(ctx context.Context, card *domain.RepairCard) error
	UpdateWithHistory(ctx context.Context, card *domain.RepairCard, entry *domain.StatusHistoryEntry) error
	GetByID(ctx context.Context, id int64) (*domain.RepairCard, error)
	List(ctx context.Context, page CardPage) ([]domain.RepairCard, error)
	Delete(ctx context.Context, id int64) error
}

type cardRepository struct {
	pool *pgxpool.Pool
}

// NewCardRepository instantiates the repository.
func NewCardRepository(pool *pgxpool.Pool) CardRepository {
	return &cardRepository{pool: pool}
}

const cardColumns = `id, owner_name, whatsapp_number, problem, status, start_date, due_date,
	image_url, has_charger, tech_notes, ingresado_date, diagnosticada_date,
	para_entregar_date, listos_date, created_at, updated_at`

func (r *cardRepository) Create(ctx context.Context, card *domain.RepairCard) error {
	const query = `
        INSERT INTO repair_cards (owner_name, whatsapp_number, problem, status, start_date, due_date,
            image_url, has_charger, tech_notes, ingresado_date, diagnosticada_date, para_entregar_date, listos_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		card.OwnerName,
		card.Whatsapp,
		card.Problem,
		card.Status,
		card.StartDate,
		card.DueDate,
		card.ImageURL,
		card.HasCharger,
		card.TechNotes,
		card.IngresadoAt,
		card.DiagnosticadaAt,
		card.ParaEntregarAt,
		card.ListosAt,
	).Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
}

func (r *cardRepository) Update(ctx context.Context, card *domain.RepairCard) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return updateCard(ctx, tx, card)
	})
}

func (r *cardRepository) UpdateWithHistory(ctx context.Context, card *domain.RepairCard, entry *domain.StatusHistoryEntry) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := updateCard(ctx, tx, card); err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		return insertHistory(ctx, tx, entry)
	})
}

func updateCard(ctx context.Context, tx pgx.Tx, card *domain.RepairCard) error {
	const query = `
        UPDATE repair_cards SET owner_name=$1, whatsapp_number=$2, problem=$3, status=$4, due_date=$5,
            image_url=$6, has_charger=$7, tech_notes=$8, ingresado_date=$9, diagnosticada_date=$10,
            para_entregar_date=$11, listos_date=$12, updated_at=NOW()
        WHERE id=$13`
	cmd, err := tx.Exec(ctx, query,
		card.OwnerName,
		card.Whatsapp,
		card.Problem,
		card.Status,
		card.DueDate,
		card.ImageURL,
		card.HasCharger,
		card.TechNotes,
		card.IngresadoAt,
		card.DiagnosticadaAt,
		card.ParaEntregarAt,
		card.ListosAt,
		card.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, entry *domain.StatusHistoryEntry) error {
	const query = `
        INSERT INTO status_history (card_id, old_status, new_status, changed_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return tx.QueryRow(ctx, query,
		entry.CardID,
		entry.OldStatus,
		entry.NewStatus,
		entry.ChangedAt,
	).Scan(&entry.ID)
}

func (r *cardRepository) GetByID(ctx context.Context, id int64) (*domain.RepairCard, error) {
	query := fmt.Sprintf(`SELECT %s FROM repair_cards WHERE id=$1`, cardColumns)
	var card domain.RepairCard
	if err := scanCard(r.pool.QueryRow(ctx, query, id), &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) List(ctx context.Context, page CardPage) ([]domain.RepairCard, error) {
	query := fmt.Sprintf(`SELECT %s FROM repair_cards ORDER BY start_date DESC, id DESC`, cardColumns)
	args := []any{}
	if page.Limit > 0 {
		query += " LIMIT $1 OFFSET $2"
		args = append(args, page.Limit, page.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RepairCard
	for rows.Next() {
		var card domain.RepairCard
		if err := scanCard(rows, &card); err != nil {
			return nil, err
		}
		result = append(result, card)
	}
	return result, rows.Err()
}

func (r *cardRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM repair_cards WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanCard(row pgx.Row, card *domain.RepairCard) error {
	return row.Scan(
		&card.ID,
		&card.OwnerName,
		&card.Whatsapp,
		&card.Problem,
		&card.Status,
		&card.StartDate,
		&card.DueDate,
		&card.ImageURL,
		&card.HasCharger,
		&card.TechNotes,
		&card.IngresadoAt,
		&card.DiagnosticadaAt,
		&card.ParaEntregarAt,
		&card.ListosAt,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
}
