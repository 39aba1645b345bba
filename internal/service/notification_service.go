package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// NotificationService turns committed domain events into emails. Everything
// here is best-effort: a failure is logged and swallowed, never surfaced to
// the request that triggered it.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	queue      notify.Queue
	mailer     notify.Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service. queue may be nil, in which
// case emails go straight to the mailer.
func NewNotificationService(dispatcher events.Dispatcher, users repository.UserRepository, queue notify.Queue, mailer notify.Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		users:      users,
		queue:      queue,
		mailer:     mailer,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketApproved, n.handleTicketApproved)
	n.dispatcher.Subscribe(events.EventTicketRejected, n.handleTicketRejected)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

// handleTicketCreated tells the requester's department managers a ticket
// awaits their decision.
func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	managers, err := n.users.ListActiveByRole(ctx, domain.RoleManager, &payload.Department)
	if err != nil {
		n.logger.Warn("lookup managers for creation notice", zap.Error(err))
		return nil
	}
	for _, manager := range managers {
		n.deliver(ctx, notify.EmailMessage{
			To:      manager.Email,
			Subject: fmt.Sprintf("[%s] New ticket awaiting approval", payload.TicketNumber),
			HTMLBody: fmt.Sprintf("<p>A new %s ticket <strong>%s</strong> was filed in your department and awaits your decision.</p>",
				payload.Priority, payload.Subject),
		})
	}
	return nil
}

// handleTicketApproved notifies the requester and fans a ready-for-assignment
// digest out to active admins.
func (n *NotificationService) handleTicketApproved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketApprovedPayload)
	if !ok {
		return nil
	}
	if requester, err := n.users.GetByID(ctx, payload.RequesterID); err != nil {
		n.logger.Warn("lookup requester for approval notice", zap.Error(err))
	} else {
		n.deliver(ctx, notify.EmailMessage{
			To:      requester.Email,
			Subject: fmt.Sprintf("[%s] Ticket approved", payload.TicketNumber),
			HTMLBody: fmt.Sprintf("<p>Your ticket <strong>%s</strong> was approved by %s and now awaits technician assignment.</p>",
				payload.Subject, payload.ApproverName),
		})
	}

	admins, err := n.users.ListActiveByRole(ctx, domain.RoleAdmin, nil)
	if err != nil {
		n.logger.Warn("lookup admins for assignment digest", zap.Error(err))
		return nil
	}
	for _, admin := range admins {
		n.deliver(ctx, notify.EmailMessage{
			To:      admin.Email,
			Subject: fmt.Sprintf("[%s] Ready for assignment", payload.TicketNumber),
			HTMLBody: fmt.Sprintf("<p>Ticket <strong>%s</strong> was approved by %s and needs a technician.</p>",
				payload.Subject, payload.ApproverName),
		})
	}
	return nil
}

// handleTicketRejected notifies the requester only; there is no admin
// fan-out for rejections.
func (n *NotificationService) handleTicketRejected(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketRejectedPayload)
	if !ok {
		return nil
	}
	requester, err := n.users.GetByID(ctx, payload.RequesterID)
	if err != nil {
		n.logger.Warn("lookup requester for rejection notice", zap.Error(err))
		return nil
	}
	body := fmt.Sprintf("<p>Your ticket <strong>%s</strong> was rejected by %s.</p>", payload.Subject, payload.RejecterName)
	if payload.Notes != "" {
		body += fmt.Sprintf("<p>Notes: %s</p>", payload.Notes)
	}
	n.deliver(ctx, notify.EmailMessage{
		To:       requester.Email,
		Subject:  fmt.Sprintf("[%s] Ticket rejected", payload.TicketNumber),
		HTMLBody: body,
	})
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	assignee, err := n.users.GetByID(ctx, payload.AssigneeID)
	if err != nil {
		n.logger.Warn("lookup assignee for assignment notice", zap.Error(err))
		return nil
	}
	n.deliver(ctx, notify.EmailMessage{
		To:       assignee.Email,
		Subject:  fmt.Sprintf("[%s] Ticket assigned to you", payload.TicketNumber),
		HTMLBody: fmt.Sprintf("<p>Ticket <strong>%s</strong> was assigned to you.</p>", payload.Subject),
	})
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	requester, err := n.users.GetByID(ctx, payload.RequesterID)
	if err != nil {
		n.logger.Warn("lookup requester for status notice", zap.Error(err))
		return nil
	}
	body := fmt.Sprintf("<p>Ticket %s moved from %s to %s.</p>", payload.TicketNumber, payload.OldStatus, payload.NewStatus)
	if payload.Resolution != "" {
		body += fmt.Sprintf("<p>Resolution: %s</p>", payload.Resolution)
	}
	n.deliver(ctx, notify.EmailMessage{
		To:       requester.Email,
		Subject:  fmt.Sprintf("[%s] Ticket status updated", payload.TicketNumber),
		HTMLBody: body,
	})
	return nil
}

// deliver enqueues the message for the outbox worker, falling back to a
// direct send when the queue is missing or unreachable.
func (n *NotificationService) deliver(ctx context.Context, msg notify.EmailMessage) {
	if n.queue != nil {
		err := n.queue.Enqueue(ctx, msg)
		if err == nil {
			return
		}
		n.logger.Warn("enqueue notification; sending directly", zap.Error(err))
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		n.logger.Warn("send notification", zap.String("to", msg.To), zap.Error(err))
	}
}
