package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures listing parameters. Scope restrictions are applied
// separately and always.
type TicketFilter struct {
	Statuses         []domain.TicketStatus
	ApprovalStatuses []domain.ApprovalStatus
	Priorities       []domain.TicketPriority
	Types            []domain.TicketType
	AssigneeID       *int64
	Limit            int
	Offset           int
}

// ApprovalPatch describes the terminal approval outcome to record.
type ApprovalPatch struct {
	Outcome   domain.ApprovalStatus
	DeciderID int64
	DecidedAt time.Time
	Notes     string
}

// TicketRepository encapsulates ticket persistence. Every fetch that
// precedes a mutation goes through GetScoped so the scope filter is part of
// the locating query itself.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetScoped(ctx context.Context, id int64, scope domain.TicketScope) (*domain.Ticket, error)
	ListScoped(ctx context.Context, scope domain.TicketScope, filter TicketFilter) ([]domain.Ticket, error)
	// SetApprovalOutcome performs the compare-and-swap on approval_status.
	// It returns the number of rows changed; zero means another actor
	// already transitioned the ticket. Rejection forces status=CLOSED in
	// the same statement.
	SetApprovalOutcome(ctx context.Context, id int64, expected domain.ApprovalStatus, patch ApprovalPatch) (int64, error)
	// TransitionStatus moves the work status, guarded on the current status
	// and on the ticket being approved.
	TransitionStatus(ctx context.Context, id int64, from, to domain.TicketStatus) (int64, error)
	// Resolve transitions to RESOLVED recording the resolution text.
	Resolve(ctx context.Context, id int64, from domain.TicketStatus, resolution string) (int64, error)
	// Assign sets the technician on an approved, not-yet-closed ticket.
	Assign(ctx context.Context, id int64, assigneeID int64) (int64, error)
	WithTx(tx pgx.Tx) TicketRepository
}

type ticketRepository struct {
	q Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(q Querier) TicketRepository {
	return &ticketRepository{q: q}
}

func (r *ticketRepository) WithTx(tx pgx.Tx) TicketRepository {
	if tx == nil {
		return r
	}
	return &ticketRepository{q: tx}
}

const ticketColumns = `id, ticket_number, type, priority, status, approval_status,
               requester_id, requester_department, asset_id, assignee_id,
               approved_by, rejected_by, subject, description, manager_notes, resolution,
               created_at, updated_at, approved_at, rejected_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, type, priority, status, approval_status,
            requester_id, requester_department, asset_id, subject, description)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Type,
		ticket.Priority,
		ticket.Status,
		ticket.ApprovalStatus,
		ticket.RequesterID,
		ticket.RequesterDepartment,
		ticket.AssetID,
		ticket.Subject,
		ticket.Description,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetScoped(ctx context.Context, id int64, scope domain.TicketScope) (*domain.Ticket, error) {
	clauses := []string{"id=$1"}
	args := []any{id}
	if scope.RequesterID != nil {
		args = append(args, *scope.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if scope.Department != nil {
		args = append(args, *scope.Department)
		clauses = append(clauses, fmt.Sprintf("requester_department=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s`, ticketColumns, strings.Join(clauses, " AND "))

	var ticket domain.Ticket
	if err := scanTicket(r.q.QueryRow(ctx, query, args...), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListScoped(ctx context.Context, scope domain.TicketScope, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if scope.RequesterID != nil {
		args = append(args, *scope.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if scope.Department != nil {
		args = append(args, *scope.Department)
		clauses = append(clauses, fmt.Sprintf("requester_department=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.ApprovalStatuses) > 0 {
		placeholders := make([]string, len(filter.ApprovalStatuses))
		for i, status := range filter.ApprovalStatuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("approval_status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, tp := range filter.Types {
			args = append(args, tp)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) SetApprovalOutcome(ctx context.Context, id int64, expected domain.ApprovalStatus, patch ApprovalPatch) (int64, error) {
	var query string
	if patch.Outcome == domain.ApprovalStatusRejected {
		// Rejection terminates the work lifecycle in the same statement.
		query = `
        UPDATE tickets SET approval_status=$1, rejected_by=$2, rejected_at=$3,
            manager_notes=$4, status=$5, updated_at=NOW()
        WHERE id=$6 AND approval_status=$7`
		cmd, err := r.q.Exec(ctx, query,
			patch.Outcome, patch.DeciderID, patch.DecidedAt, patch.Notes,
			domain.TicketStatusClosed, id, expected)
		if err != nil {
			return 0, err
		}
		return cmd.RowsAffected(), nil
	}

	query = `
        UPDATE tickets SET approval_status=$1, approved_by=$2, approved_at=$3,
            manager_notes=$4, updated_at=NOW()
        WHERE id=$5 AND approval_status=$6`
	cmd, err := r.q.Exec(ctx, query,
		patch.Outcome, patch.DeciderID, patch.DecidedAt, patch.Notes, id, expected)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.TicketStatus) (int64, error) {
	const query = `
        UPDATE tickets SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3 AND approval_status=$4`
	cmd, err := r.q.Exec(ctx, query, to, id, from, domain.ApprovalStatusApproved)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) Resolve(ctx context.Context, id int64, from domain.TicketStatus, resolution string) (int64, error) {
	const query = `
        UPDATE tickets SET status=$1, resolution=$2, resolved_at=NOW(), updated_at=NOW()
        WHERE id=$3 AND status=$4 AND approval_status=$5`
	cmd, err := r.q.Exec(ctx, query, domain.TicketStatusResolved, resolution, id, from, domain.ApprovalStatusApproved)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) Assign(ctx context.Context, id int64, assigneeID int64) (int64, error) {
	const query = `
        UPDATE tickets SET assignee_id=$1, updated_at=NOW()
        WHERE id=$2 AND approval_status=$3 AND status <> $4`
	cmd, err := r.q.Exec(ctx, query, assigneeID, id, domain.ApprovalStatusApproved, domain.TicketStatusClosed)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Type,
		&ticket.Priority,
		&ticket.Status,
		&ticket.ApprovalStatus,
		&ticket.RequesterID,
		&ticket.RequesterDepartment,
		&ticket.AssetID,
		&ticket.AssigneeID,
		&ticket.ApprovedBy,
		&ticket.RejectedBy,
		&ticket.Subject,
		&ticket.Description,
		&ticket.ManagerNotes,
		&ticket.Resolution,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ApprovedAt,
		&ticket.RejectedAt,
		&ticket.ResolvedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
