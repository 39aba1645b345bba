package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// CommentService manages the append-only discussion thread on a ticket.
// Comments never touch the state machine, but every comment leaves the same
// kind of audit trail a transition does.
type CommentService struct {
	db         repository.TxRunner
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	DB          repository.TxRunner
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{
		db:         deps.DB,
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Add appends a comment and its correlated history entry in one transaction.
func (s *CommentService) Add(ctx context.Context, actor *domain.User, ticketID int64, body string, isInternal bool) (*domain.Comment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body required", nil)
	}
	if isInternal && actor.Role == domain.RoleEmployee {
		return nil, apperrors.NewForbidden("internal comments require manager or admin role")
	}

	ticket, err := s.tickets.GetScoped(ctx, ticketID, domain.ScopeFor(actor))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		Body:       body,
		IsInternal: isInternal,
	}
	err = s.db.WithinTx(ctx, func(tx pgx.Tx) error {
		if err := s.comments.WithTx(tx).Create(ctx, comment); err != nil {
			return err
		}
		return s.history.WithTx(tx).Create(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			Action:      domain.HistoryActionCommented,
			PerformedBy: actor.ID,
			Note:        stringPreview(body, 120),
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCommented,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCommentedPayload{
			TicketNumber: ticket.TicketNumber,
			CommentID:    comment.ID,
			IsInternal:   comment.IsInternal,
			RequesterID:  ticket.RequesterID,
			BodyPreview:  stringPreview(body, 120),
		},
	})
	return comment, nil
}

// List returns the thread for a ticket the principal can see, oldest first.
// Internal comments are excluded in the query itself for employee
// principals rather than left to the presentation layer.
func (s *CommentService) List(ctx context.Context, actor *domain.User, ticketID int64) ([]domain.Comment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if _, err := s.tickets.GetScoped(ctx, ticketID, domain.ScopeFor(actor)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	excludeInternal := actor.Role == domain.RoleEmployee
	comments, err := s.comments.ListByTicket(ctx, ticketID, excludeInternal)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}
