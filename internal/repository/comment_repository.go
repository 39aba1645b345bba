package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CommentRepository manages the append-only discussion thread.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	// ListByTicket returns comments ascending by creation time. When
	// excludeInternal is set, internal comments are filtered out in the
	// query itself rather than left to the caller.
	ListByTicket(ctx context.Context, ticketID int64, excludeInternal bool) ([]domain.Comment, error)
	WithTx(tx pgx.Tx) CommentRepository
}

type commentRepository struct {
	q Querier
}

// NewCommentRepository builds repository.
func NewCommentRepository(q Querier) CommentRepository {
	return &commentRepository{q: q}
}

func (r *commentRepository) WithTx(tx pgx.Tx) CommentRepository {
	if tx == nil {
		return r
	}
	return &commentRepository{q: tx}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, author_id, body, is_internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.Body,
		comment.IsInternal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID int64, excludeInternal bool) ([]domain.Comment, error) {
	query := `
        SELECT id, ticket_id, author_id, body, is_internal, created_at
        FROM ticket_comments WHERE ticket_id=$1`
	if excludeInternal {
		query += ` AND is_internal=FALSE`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.Body,
			&comment.IsInternal,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
