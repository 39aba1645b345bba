package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketService coordinates ticket creation, reads and the work lifecycle.
// Approval decisions live in ApprovalService.
type TicketService struct {
	db         repository.TxRunner
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	users      repository.UserRepository
	assets     repository.AssetRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	DB          repository.TxRunner
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	UserRepo    repository.UserRepository
	AssetRepo   repository.AssetRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Type        domain.TicketType
	Priority    domain.TicketPriority
	AssetID     *int64
	Subject     string
	Description string
}

// TicketListInput describes listing filters.
type TicketListInput struct {
	Statuses         []domain.TicketStatus
	ApprovalStatuses []domain.ApprovalStatus
	Priorities       []domain.TicketPriority
	Types            []domain.TicketType
	AssigneeID       *int64
	Limit            int
	Offset           int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		db:         deps.DB,
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		assets:     deps.AssetRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Create files a new ticket for the requester. The ticket starts OPEN and
// PENDING approval; the creating entry lands in the history log in the same
// transaction as the row itself.
func (s *TicketService) Create(ctx context.Context, requester *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if requester == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	input.Subject = strings.TrimSpace(input.Subject)
	input.Description = strings.TrimSpace(input.Description)
	if input.Subject == "" || input.Description == "" {
		return nil, apperrors.NewValidationError("subject and description required", nil)
	}
	if !domain.ValidType(input.Type) {
		return nil, apperrors.NewValidationError("unknown ticket type", map[string]any{"type": input.Type})
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}
	if input.AssetID != nil {
		asset, err := s.assets.GetByID(ctx, *input.AssetID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError("referenced asset does not exist", map[string]any{"asset_id": *input.AssetID})
			}
			return nil, apperrors.MapError(err)
		}
		if !asset.Active {
			return nil, apperrors.NewValidationError("referenced asset is retired", map[string]any{"asset_id": asset.ID})
		}
	}

	ticket := &domain.Ticket{
		TicketNumber:        generateTicketNumber(),
		Type:                input.Type,
		Priority:            input.Priority,
		Status:              domain.TicketStatusOpen,
		ApprovalStatus:      domain.ApprovalStatusPending,
		RequesterID:         requester.ID,
		RequesterDepartment: requester.Department,
		AssetID:             input.AssetID,
		Subject:             input.Subject,
		Description:         input.Description,
	}

	err := s.db.WithinTx(ctx, func(tx pgx.Tx) error {
		if err := s.tickets.WithTx(tx).Create(ctx, ticket); err != nil {
			return err
		}
		return s.history.WithTx(tx).Create(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			Action:      domain.HistoryActionCreated,
			PerformedBy: requester.ID,
			Note:        ticket.Subject,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  requester.ID,
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			Subject:      ticket.Subject,
			Type:         ticket.Type,
			Priority:     ticket.Priority,
			RequesterID:  ticket.RequesterID,
			Department:   ticket.RequesterDepartment,
		},
	})
	return ticket, nil
}

// Get fetches a ticket within the principal's scope.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetScoped(ctx, ticketID, domain.ScopeFor(actor))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// List returns tickets visible to the principal.
func (s *TicketService) List(ctx context.Context, actor *domain.User, input TicketListInput) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{
		Statuses:         input.Statuses,
		ApprovalStatuses: input.ApprovalStatuses,
		Priorities:       input.Priorities,
		Types:            input.Types,
		AssigneeID:       input.AssigneeID,
		Limit:            input.Limit,
		Offset:           input.Offset,
	}
	tickets, err := s.tickets.ListScoped(ctx, domain.ScopeFor(actor), filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListHistory returns the audit trail for a ticket the principal can see,
// newest entries first.
func (s *TicketService) ListHistory(ctx context.Context, actor *domain.User, ticketID int64, limit, offset int) ([]domain.TicketHistory, error) {
	if _, err := s.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// Assign sets the technician on an approved ticket and records the change.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, ticketID, assigneeID int64) (*domain.Ticket, error) {
	if actor == nil || actor.Role == domain.RoleEmployee {
		return nil, apperrors.NewForbidden("manager or admin role required")
	}
	ticket, err := s.Get(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireApproved(ticket); err != nil {
		return nil, err
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("assignee does not exist", map[string]any{"assignee_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.Active {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"assignee_id": assigneeID})
	}

	err = s.db.WithinTx(ctx, func(tx pgx.Tx) error {
		affected, err := s.tickets.WithTx(tx).Assign(ctx, ticket.ID, assignee.ID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return errOutcomeRace
		}
		return s.history.WithTx(tx).Create(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			Action:      domain.HistoryActionAssigned,
			NewValue:    &assignee.Name,
			PerformedBy: actor.ID,
			Note:        "assigned to " + assignee.Name,
		})
	})
	if err != nil {
		if errors.Is(err, errOutcomeRace) {
			return nil, apperrors.NewConflict("ticket no longer assignable", nil)
		}
		return nil, apperrors.MapError(err)
	}

	ticket.AssigneeID = &assignee.ID
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketAssignedPayload{
			TicketNumber: ticket.TicketNumber,
			Subject:      ticket.Subject,
			AssigneeID:   assignee.ID,
		},
	})
	return ticket, nil
}

// UpdateStatus moves the work status forward along the allowed transitions.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.User, ticketID int64, next domain.TicketStatus, note string) (*domain.Ticket, error) {
	if actor == nil || actor.Role == domain.RoleEmployee {
		return nil, apperrors.NewForbidden("manager or admin role required")
	}
	ticket, err := s.Get(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireApproved(ticket); err != nil {
		return nil, err
	}
	if !domain.ValidWorkTransition(ticket.Status, next) {
		return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   next,
		})
	}

	prior := ticket.Status
	err = s.db.WithinTx(ctx, func(tx pgx.Tx) error {
		affected, err := s.tickets.WithTx(tx).TransitionStatus(ctx, ticket.ID, prior, next)
		if err != nil {
			return err
		}
		if affected == 0 {
			return errOutcomeRace
		}
		value := string(next)
		return s.history.WithTx(tx).Create(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			Action:      domain.HistoryActionStatusChanged,
			NewValue:    &value,
			PerformedBy: actor.ID,
			Note:        note,
		})
	})
	if err != nil {
		if errors.Is(err, errOutcomeRace) {
			return nil, apperrors.NewConflict("ticket status changed concurrently", nil)
		}
		return nil, apperrors.MapError(err)
	}

	ticket.Status = next
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			TicketNumber: ticket.TicketNumber,
			OldStatus:    prior,
			NewStatus:    next,
			RequesterID:  ticket.RequesterID,
		},
	})
	return ticket, nil
}

// Resolve marks an approved ticket resolved with resolution text.
func (s *TicketService) Resolve(ctx context.Context, actor *domain.User, ticketID int64, resolution string) (*domain.Ticket, error) {
	if actor == nil || actor.Role == domain.RoleEmployee {
		return nil, apperrors.NewForbidden("manager or admin role required")
	}
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return nil, apperrors.NewValidationError("resolution required", nil)
	}
	ticket, err := s.Get(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireApproved(ticket); err != nil {
		return nil, err
	}
	if !domain.ValidWorkTransition(ticket.Status, domain.TicketStatusResolved) {
		return nil, apperrors.NewValidationError("ticket cannot be resolved in current status", map[string]any{
			"status": ticket.Status,
		})
	}

	prior := ticket.Status
	err = s.db.WithinTx(ctx, func(tx pgx.Tx) error {
		affected, err := s.tickets.WithTx(tx).Resolve(ctx, ticket.ID, prior, resolution)
		if err != nil {
			return err
		}
		if affected == 0 {
			return errOutcomeRace
		}
		value := string(domain.TicketStatusResolved)
		return s.history.WithTx(tx).Create(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			Action:      domain.HistoryActionStatusChanged,
			NewValue:    &value,
			PerformedBy: actor.ID,
			Note:        resolution,
		})
	})
	if err != nil {
		if errors.Is(err, errOutcomeRace) {
			return nil, apperrors.NewConflict("ticket status changed concurrently", nil)
		}
		return nil, apperrors.MapError(err)
	}

	now := time.Now()
	ticket.Status = domain.TicketStatusResolved
	ticket.Resolution = resolution
	ticket.ResolvedAt = &now
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			TicketNumber: ticket.TicketNumber,
			OldStatus:    prior,
			NewStatus:    domain.TicketStatusResolved,
			RequesterID:  ticket.RequesterID,
			Resolution:   resolution,
		},
	})
	return ticket, nil
}

// requireApproved rejects work-lifecycle operations on tickets that have not
// cleared (or have failed) approval.
func requireApproved(ticket *domain.Ticket) error {
	switch ticket.ApprovalStatus {
	case domain.ApprovalStatusApproved:
		return nil
	case domain.ApprovalStatusPending:
		return apperrors.NewConflict("ticket awaiting approval", nil)
	default:
		return apperrors.NewConflict("ticket was rejected", nil)
	}
}

func generateTicketNumber() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
