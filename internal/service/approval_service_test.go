package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type approvalFixture struct {
	svc        *ApprovalService
	tickets    *fakeTicketStore
	history    *fakeHistoryStore
	dispatcher events.Dispatcher
	received   *eventSink
}

type eventSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *eventSink) record(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *eventSink) all() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event{}, s.events...)
}

func newApprovalFixture(t *testing.T) *approvalFixture {
	t.Helper()
	tickets := newFakeTicketStore()
	history := newFakeHistoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	sink := &eventSink{}
	dispatcher.Subscribe(events.EventTicketApproved, sink.record)
	dispatcher.Subscribe(events.EventTicketRejected, sink.record)

	svc := NewApprovalService(ApprovalDependencies{
		DB:          fakeTxRunner{},
		TicketRepo:  tickets,
		HistoryRepo: history,
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
	})
	return &approvalFixture{svc: svc, tickets: tickets, history: history, dispatcher: dispatcher, received: sink}
}

func pendingTicket(department string) domain.Ticket {
	return domain.Ticket{
		Type:                domain.TicketTypeRepair,
		Priority:            domain.TicketPriorityMedium,
		Status:              domain.TicketStatusOpen,
		ApprovalStatus:      domain.ApprovalStatusPending,
		RequesterID:         7,
		RequesterDepartment: department,
		Subject:             "laptop will not boot",
		Description:         "screen stays black after power on",
	}
}

func manager(id int64, department string) *domain.User {
	return &domain.User{ID: id, Name: "Morgan", Role: domain.RoleManager, Department: department, Active: true}
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	return domainErr.Code
}

func TestApproveRecordsOutcomeAndAudit(t *testing.T) {
	fx := newApprovalFixture(t)
	ticket := fx.tickets.seed(pendingTicket("IT"))

	result, err := fx.svc.Approve(context.Background(), manager(2, "IT"), ticket.ID, "go ahead")
	require.NoError(t, err)
	require.Equal(t, domain.ApprovalStatusApproved, result.ApprovalStatus)
	require.Equal(t, domain.TicketStatusOpen, result.Status)
	require.NotNil(t, result.ApprovedBy)
	require.Equal(t, int64(2), *result.ApprovedBy)
	require.NotNil(t, result.ApprovedAt)
	require.Equal(t, "go ahead", result.ManagerNotes)

	stored := fx.tickets.get(ticket.ID)
	require.Equal(t, domain.ApprovalStatusApproved, stored.ApprovalStatus)

	entries := fx.history.byAction(domain.HistoryActionApprovalChange)
	require.Len(t, entries, 1)
	require.Equal(t, ticket.ID, entries[0].TicketID)
	require.NotNil(t, entries[0].NewValue)
	require.Equal(t, string(domain.ApprovalStatusApproved), *entries[0].NewValue)
	require.Equal(t, int64(2), entries[0].PerformedBy)

	published := fx.received.all()
	require.Len(t, published, 1)
	require.Equal(t, events.EventTicketApproved, published[0].Type)
	require.Equal(t, ticket.ID, published[0].TicketID)
}

func TestRejectClosesTicket(t *testing.T) {
	fx := newApprovalFixture(t)
	ticket := fx.tickets.seed(pendingTicket("IT"))

	result, err := fx.svc.Reject(context.Background(), manager(2, "IT"), ticket.ID, "not in budget")
	require.NoError(t, err)
	require.Equal(t, domain.ApprovalStatusRejected, result.ApprovalStatus)
	require.Equal(t, domain.TicketStatusClosed, result.Status)
	require.NotNil(t, result.RejectedBy)
	require.Equal(t, int64(2), *result.RejectedBy)
	require.NotNil(t, result.RejectedAt)

	stored := fx.tickets.get(ticket.ID)
	require.Equal(t, domain.TicketStatusClosed, stored.Status)
	require.Equal(t, domain.ApprovalStatusRejected, stored.ApprovalStatus)

	published := fx.received.all()
	require.Len(t, published, 1)
	require.Equal(t, events.EventTicketRejected, published[0].Type)
}

func TestDecisionRequiresManagerRole(t *testing.T) {
	fx := newApprovalFixture(t)
	ticket := fx.tickets.seed(pendingTicket("IT"))

	cases := []struct {
		name  string
		actor *domain.User
	}{
		{"employee", &domain.User{ID: 7, Role: domain.RoleEmployee, Department: "IT", Active: true}},
		{"admin", &domain.User{ID: 9, Role: domain.RoleAdmin, Department: "IT", Active: true}},
		{"nil principal", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.svc.Approve(context.Background(), tc.actor, ticket.ID, "")
			require.Error(t, err)
			require.Equal(t, "FORBIDDEN", domainCode(t, err))
		})
	}
}

func TestDecisionOutsideDepartmentIsNotFound(t *testing.T) {
	fx := newApprovalFixture(t)
	ticket := fx.tickets.seed(pendingTicket("Finance"))

	_, err := fx.svc.Approve(context.Background(), manager(2, "IT"), ticket.ID, "")
	require.Error(t, err)
	require.Equal(t, "NOT_FOUND", domainCode(t, err))

	// Nothing changed and no audit entry was written.
	stored := fx.tickets.get(ticket.ID)
	require.Equal(t, domain.ApprovalStatusPending, stored.ApprovalStatus)
	require.Empty(t, fx.history.byAction(domain.HistoryActionApprovalChange))
}

func TestDecisionOnProcessedTicketConflicts(t *testing.T) {
	fx := newApprovalFixture(t)
	ticket := fx.tickets.seed(pendingTicket("IT"))

	_, err := fx.svc.Approve(context.Background(), manager(2, "IT"), ticket.ID, "")
	require.NoError(t, err)

	_, err = fx.svc.Approve(context.Background(), manager(3, "IT"), ticket.ID, "")
	require.Error(t, err)
	require.Equal(t, "ALREADY_PROCESSED", domainCode(t, err))

	_, err = fx.svc.Reject(context.Background(), manager(3, "IT"), ticket.ID, "")
	require.Error(t, err)
	require.Equal(t, "ALREADY_PROCESSED", domainCode(t, err))

	require.Len(t, fx.history.byAction(domain.HistoryActionApprovalChange), 1)
}

func TestConcurrentDecisionsHaveOneWinner(t *testing.T) {
	fx := newApprovalFixture(t)
	ticket := fx.tickets.seed(pendingTicket("IT"))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = fx.svc.Approve(context.Background(), manager(2, "IT"), ticket.ID, "approving")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = fx.svc.Reject(context.Background(), manager(3, "IT"), ticket.ID, "rejecting")
	}()
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			failures++
			require.Equal(t, "ALREADY_PROCESSED", domainCode(t, err))
		}
	}
	require.Equal(t, 1, failures, "exactly one decision must lose the race")

	stored := fx.tickets.get(ticket.ID)
	require.NotEqual(t, domain.ApprovalStatusPending, stored.ApprovalStatus)
	if stored.ApprovalStatus == domain.ApprovalStatusRejected {
		require.Equal(t, domain.TicketStatusClosed, stored.Status)
	}

	// The audit trail carries exactly one approval transition regardless of
	// which decision won.
	require.Len(t, fx.history.byAction(domain.HistoryActionApprovalChange), 1)
	require.Len(t, fx.received.all(), 1)
}

func TestManagerMayDecideOwnTicket(t *testing.T) {
	fx := newApprovalFixture(t)
	ticket := pendingTicket("IT")
	ticket.RequesterID = 2
	seeded := fx.tickets.seed(ticket)

	_, err := fx.svc.Approve(context.Background(), manager(2, "IT"), seeded.ID, "self-service approval")
	require.NoError(t, err)
}
