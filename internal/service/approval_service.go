package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// errOutcomeRace signals that the conditional update affected zero rows:
// another manager committed a terminal approval state first.
var errOutcomeRace = errors.New("approval outcome already recorded")

// ApprovalService is the approval state machine. A ticket's approval status
// moves from PENDING to exactly one of APPROVED or REJECTED; the
// compare-and-swap in the ticket repository is what guarantees a single
// winner under concurrent decisions.
type ApprovalService struct {
	db         repository.TxRunner
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ApprovalDependencies bundles collaborators for the approval service.
type ApprovalDependencies struct {
	DB          repository.TxRunner
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewApprovalService constructs the service.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	return &ApprovalService{
		db:         deps.DB,
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Approve moves a pending ticket to APPROVED on behalf of a manager of the
// requester's department.
func (s *ApprovalService) Approve(ctx context.Context, actor *domain.User, ticketID int64, notes string) (*domain.Ticket, error) {
	ticket, err := s.decide(ctx, actor, ticketID, notes, domain.ApprovalStatusApproved)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketApproved,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketApprovedPayload{
			TicketNumber: ticket.TicketNumber,
			Subject:      ticket.Subject,
			RequesterID:  ticket.RequesterID,
			ApproverName: actor.Name,
			Notes:        notes,
		},
	})
	return ticket, nil
}

// Reject moves a pending ticket to REJECTED and forces the work status to
// CLOSED; rejected tickets never proceed to work.
func (s *ApprovalService) Reject(ctx context.Context, actor *domain.User, ticketID int64, notes string) (*domain.Ticket, error) {
	ticket, err := s.decide(ctx, actor, ticketID, notes, domain.ApprovalStatusRejected)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketRejected,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketRejectedPayload{
			TicketNumber: ticket.TicketNumber,
			Subject:      ticket.Subject,
			RequesterID:  ticket.RequesterID,
			RejecterName: actor.Name,
			Notes:        notes,
		},
	})
	return ticket, nil
}

// decide runs the shared transition: scoped fetch, pending guard, then the
// conditional update and the audit entry in one transaction. Approval and
// rejection are deliberately symmetric.
func (s *ApprovalService) decide(ctx context.Context, actor *domain.User, ticketID int64, notes string, outcome domain.ApprovalStatus) (*domain.Ticket, error) {
	if actor == nil || actor.Role != domain.RoleManager {
		return nil, apperrors.NewForbidden("manager role required")
	}

	scope := domain.ScopeFor(actor)
	ticket, err := s.tickets.GetScoped(ctx, ticketID, scope)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.ApprovalStatus != domain.ApprovalStatusPending {
		return nil, apperrors.NewAlreadyProcessed("ticket already processed", map[string]any{
			"approval_status": ticket.ApprovalStatus,
		})
	}

	now := time.Now()
	notes = strings.TrimSpace(notes)

	err = s.db.WithinTx(ctx, func(tx pgx.Tx) error {
		affected, err := s.tickets.WithTx(tx).SetApprovalOutcome(ctx, ticket.ID, domain.ApprovalStatusPending, repository.ApprovalPatch{
			Outcome:   outcome,
			DeciderID: actor.ID,
			DecidedAt: now,
			Notes:     notes,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return errOutcomeRace
		}
		value := string(outcome)
		return s.history.WithTx(tx).Create(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			Action:      domain.HistoryActionApprovalChange,
			NewValue:    &value,
			PerformedBy: actor.ID,
			Note:        notes,
		})
	})
	if err != nil {
		if errors.Is(err, errOutcomeRace) {
			return nil, apperrors.NewAlreadyProcessed("ticket already processed by another manager", nil)
		}
		return nil, apperrors.MapError(err)
	}

	applyOutcome(ticket, outcome, actor.ID, now, notes)
	return ticket, nil
}

// applyOutcome mirrors the committed row changes onto the in-memory ticket.
func applyOutcome(ticket *domain.Ticket, outcome domain.ApprovalStatus, deciderID int64, at time.Time, notes string) {
	ticket.ApprovalStatus = outcome
	ticket.ManagerNotes = notes
	ticket.UpdatedAt = at
	if outcome == domain.ApprovalStatusRejected {
		ticket.RejectedBy = &deciderID
		ticket.RejectedAt = &at
		ticket.Status = domain.TicketStatusClosed
		return
	}
	ticket.ApprovedBy = &deciderID
	ticket.ApprovedAt = &at
}

func (s *ApprovalService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}
