package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-board/internal/domain"
)

// HistoryRepository reads the status change audit trail. Entries are
// written only through CardRepository transactions and cascade-delete
// with their card.
type HistoryRepository interface {
	ListByCard(ctx context.Context, cardID int64) ([]domain.StatusHistoryEntry, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds the repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) ListByCard(ctx context.Context, cardID int64) ([]domain.StatusHistoryEntry, error) {
	const query = `
        SELECT id, card_id, old_status, new_status, changed_at
        FROM status_history WHERE card_id=$1 ORDER BY changed_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.CardID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ChangedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
