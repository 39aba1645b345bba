package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketHistoryRepository stores audit entries. Insert-only: there is no
// update or delete.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID int64, limit, offset int) ([]domain.TicketHistory, error)
	WithTx(tx pgx.Tx) TicketHistoryRepository
}

type ticketHistoryRepository struct {
	q Querier
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(q Querier) TicketHistoryRepository {
	return &ticketHistoryRepository{q: q}
}

func (r *ticketHistoryRepository) WithTx(tx pgx.Tx) TicketHistoryRepository {
	if tx == nil {
		return r
	}
	return &ticketHistoryRepository{q: tx}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, action, new_value, performed_by, note)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		entry.TicketID,
		entry.Action,
		entry.NewValue,
		entry.PerformedBy,
		entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64, limit, offset int) ([]domain.TicketHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	// Entries written in the same transaction can share a timestamp; id is
	// the insertion-order tie-break.
	const query = `
        SELECT id, ticket_id, action, new_value, performed_by, note, created_at
        FROM ticket_history WHERE ticket_id=$1
        ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistory
	for rows.Next() {
		var entry domain.TicketHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Action,
			&entry.NewValue,
			&entry.PerformedBy,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
