package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
)

// memoryQueue is an in-process stand-in for the redis outbox.
type memoryQueue struct {
	mu       sync.Mutex
	messages []notify.EmailMessage
	fail     bool
}

func (q *memoryQueue) Enqueue(_ context.Context, msg notify.EmailMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return context.DeadlineExceeded
	}
	q.messages = append(q.messages, msg)
	return nil
}

func (q *memoryQueue) Dequeue(context.Context, time.Duration) (*notify.EmailMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.messages) == 0 {
		return nil, nil
	}
	msg := q.messages[0]
	q.messages = q.messages[1:]
	return &msg, nil
}

func (q *memoryQueue) all() []notify.EmailMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]notify.EmailMessage{}, q.messages...)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.EmailMessage
}

func (m *recordingMailer) Send(_ context.Context, msg notify.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) all() []notify.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.EmailMessage{}, m.sent...)
}

func notificationUsers() *fakeUserStore {
	return newFakeUserStore(
		domain.User{ID: 1, Name: "Ada", Email: "admin@example.com", Role: domain.RoleAdmin, Active: true},
		domain.User{ID: 2, Name: "Morgan", Email: "it-manager@example.com", Role: domain.RoleManager, Department: "IT", Active: true},
		domain.User{ID: 3, Name: "Fin", Email: "fin-manager@example.com", Role: domain.RoleManager, Department: "Finance", Active: true},
		domain.User{ID: 7, Name: "Evan", Email: "evan@example.com", Role: domain.RoleEmployee, Department: "IT", Active: true},
	)
}

func TestTicketCreatedNotifiesDepartmentManagers(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	queue := &memoryQueue{}
	svc := NewNotificationService(dispatcher, notificationUsers(), queue, &recordingMailer{}, zap.NewNop())
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketCreated,
		TicketID: 1,
		ActorID:  7,
		Payload: events.TicketCreatedPayload{
			TicketNumber: "TKT-AB12CD34",
			Subject:      "laptop will not boot",
			Priority:     domain.TicketPriorityHigh,
			RequesterID:  7,
			Department:   "IT",
		},
	})
	require.NoError(t, err)

	queued := queue.all()
	require.Len(t, queued, 1, "only the IT manager is notified")
	require.Equal(t, "it-manager@example.com", queued[0].To)
	require.Contains(t, queued[0].Subject, "TKT-AB12CD34")
}

func TestTicketApprovedNotifiesRequesterAndAdmins(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	queue := &memoryQueue{}
	svc := NewNotificationService(dispatcher, notificationUsers(), queue, &recordingMailer{}, zap.NewNop())
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketApproved,
		TicketID: 1,
		ActorID:  2,
		Payload: events.TicketApprovedPayload{
			TicketNumber: "TKT-AB12CD34",
			Subject:      "laptop will not boot",
			RequesterID:  7,
			ApproverName: "Morgan",
		},
	})
	require.NoError(t, err)

	queued := queue.all()
	require.Len(t, queued, 2)
	require.Equal(t, "evan@example.com", queued[0].To)
	require.Equal(t, "admin@example.com", queued[1].To)
}

func TestTicketRejectedNotifiesRequesterOnly(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	queue := &memoryQueue{}
	svc := NewNotificationService(dispatcher, notificationUsers(), queue, &recordingMailer{}, zap.NewNop())
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketRejected,
		TicketID: 1,
		ActorID:  2,
		Payload: events.TicketRejectedPayload{
			TicketNumber: "TKT-AB12CD34",
			Subject:      "laptop will not boot",
			RequesterID:  7,
			RejecterName: "Morgan",
			Notes:        "out of warranty, replacing instead",
		},
	})
	require.NoError(t, err)

	queued := queue.all()
	require.Len(t, queued, 1)
	require.Equal(t, "evan@example.com", queued[0].To)
	require.Contains(t, queued[0].HTMLBody, "out of warranty")
}

func TestDeliverFallsBackToMailer(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	queue := &memoryQueue{fail: true}
	mailer := &recordingMailer{}
	svc := NewNotificationService(dispatcher, notificationUsers(), queue, mailer, zap.NewNop())
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventTicketAssigned,
		ActorID: 2,
		Payload: events.TicketAssignedPayload{
			TicketNumber: "TKT-AB12CD34",
			Subject:      "laptop will not boot",
			AssigneeID:   7,
		},
	})
	require.NoError(t, err)

	require.Empty(t, queue.all())
	sent := mailer.all()
	require.Len(t, sent, 1)
	require.Equal(t, "evan@example.com", sent[0].To)
}
