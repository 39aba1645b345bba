package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// fakeTxRunner satisfies repository.TxRunner without a database. The nil
// transaction makes every WithTx call on the fakes return the fake itself.
type fakeTxRunner struct{}

func (fakeTxRunner) WithinTx(_ context.Context, fn func(pgx.Tx) error) error {
	return fn(nil)
}

// fakeTicketStore keeps tickets in memory and mirrors the conditional-update
// semantics of the SQL repository, including the zero-rows result when the
// guard fails. All mutations run under one mutex so concurrent callers race
// exactly the way pool connections do.
type fakeTicketStore struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]*domain.Ticket
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{nextID: 1, tickets: make(map[int64]*domain.Ticket)}
}

func (f *fakeTicketStore) WithTx(pgx.Tx) repository.TicketRepository { return f }

func (f *fakeTicketStore) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket.ID = f.nextID
	f.nextID++
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	clone := *ticket
	f.tickets[ticket.ID] = &clone
	return nil
}

func (f *fakeTicketStore) GetScoped(_ context.Context, id int64, scope domain.TicketScope) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok || !inScope(ticket, scope) {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (f *fakeTicketStore) ListScoped(_ context.Context, scope domain.TicketScope, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if !inScope(ticket, scope) {
			continue
		}
		if len(filter.ApprovalStatuses) > 0 && !containsApproval(filter.ApprovalStatuses, ticket.ApprovalStatus) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (f *fakeTicketStore) SetApprovalOutcome(_ context.Context, id int64, expected domain.ApprovalStatus, patch repository.ApprovalPatch) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok || ticket.ApprovalStatus != expected {
		return 0, nil
	}
	ticket.ApprovalStatus = patch.Outcome
	ticket.ManagerNotes = patch.Notes
	ticket.UpdatedAt = patch.DecidedAt
	if patch.Outcome == domain.ApprovalStatusRejected {
		deciderID, at := patch.DeciderID, patch.DecidedAt
		ticket.RejectedBy = &deciderID
		ticket.RejectedAt = &at
		ticket.Status = domain.TicketStatusClosed
	} else {
		deciderID, at := patch.DeciderID, patch.DecidedAt
		ticket.ApprovedBy = &deciderID
		ticket.ApprovedAt = &at
	}
	return 1, nil
}

func (f *fakeTicketStore) TransitionStatus(_ context.Context, id int64, from, to domain.TicketStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok || ticket.Status != from || ticket.ApprovalStatus != domain.ApprovalStatusApproved {
		return 0, nil
	}
	ticket.Status = to
	ticket.UpdatedAt = time.Now()
	return 1, nil
}

func (f *fakeTicketStore) Resolve(_ context.Context, id int64, from domain.TicketStatus, resolution string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok || ticket.Status != from || ticket.ApprovalStatus != domain.ApprovalStatusApproved {
		return 0, nil
	}
	now := time.Now()
	ticket.Status = domain.TicketStatusResolved
	ticket.Resolution = resolution
	ticket.ResolvedAt = &now
	ticket.UpdatedAt = now
	return 1, nil
}

func (f *fakeTicketStore) Assign(_ context.Context, id int64, assigneeID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok || ticket.ApprovalStatus != domain.ApprovalStatusApproved || ticket.Status == domain.TicketStatusClosed {
		return 0, nil
	}
	ticket.AssigneeID = &assigneeID
	ticket.UpdatedAt = time.Now()
	return 1, nil
}

func (f *fakeTicketStore) get(id int64) domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.tickets[id]
}

func (f *fakeTicketStore) seed(ticket domain.Ticket) *domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket.ID == 0 {
		ticket.ID = f.nextID
	}
	if ticket.ID >= f.nextID {
		f.nextID = ticket.ID + 1
	}
	if ticket.TicketNumber == "" {
		ticket.TicketNumber = "TKT-TEST"
	}
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	f.tickets[ticket.ID] = &ticket
	return &ticket
}

func inScope(ticket *domain.Ticket, scope domain.TicketScope) bool {
	if scope.RequesterID != nil && ticket.RequesterID != *scope.RequesterID {
		return false
	}
	if scope.Department != nil && ticket.RequesterDepartment != *scope.Department {
		return false
	}
	return true
}

func containsApproval(list []domain.ApprovalStatus, v domain.ApprovalStatus) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsStatus(list []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// fakeHistoryStore records audit entries in insertion order.
type fakeHistoryStore struct {
	mu      sync.Mutex
	nextID  int64
	entries []domain.TicketHistory
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{nextID: 1}
}

func (f *fakeHistoryStore) WithTx(pgx.Tx) repository.TicketHistoryRepository { return f }

func (f *fakeHistoryStore) Create(_ context.Context, entry *domain.TicketHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = f.nextID
	f.nextID++
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryStore) ListByTicket(_ context.Context, ticketID int64, _, _ int) ([]domain.TicketHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.TicketHistory
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].TicketID == ticketID {
			result = append(result, f.entries[i])
		}
	}
	return result, nil
}

func (f *fakeHistoryStore) byAction(action domain.HistoryAction) []domain.TicketHistory {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.TicketHistory
	for _, entry := range f.entries {
		if entry.Action == action {
			result = append(result, entry)
		}
	}
	return result
}

// fakeCommentStore keeps the thread in memory.
type fakeCommentStore struct {
	mu       sync.Mutex
	nextID   int64
	comments []domain.Comment
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{nextID: 1}
}

func (f *fakeCommentStore) WithTx(pgx.Tx) repository.CommentRepository { return f }

func (f *fakeCommentStore) Create(_ context.Context, comment *domain.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment.ID = f.nextID
	f.nextID++
	comment.CreatedAt = time.Now()
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeCommentStore) ListByTicket(_ context.Context, ticketID int64, excludeInternal bool) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Comment
	for _, comment := range f.comments {
		if comment.TicketID != ticketID {
			continue
		}
		if excludeInternal && comment.IsInternal {
			continue
		}
		result = append(result, comment)
	}
	return result, nil
}

// fakeUserStore resolves users by id and email.
type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newFakeUserStore(users ...domain.User) *fakeUserStore {
	store := &fakeUserStore{nextID: 1, users: make(map[int64]*domain.User)}
	for i := range users {
		user := users[i]
		if user.ID == 0 {
			user.ID = store.nextID
		}
		if user.ID >= store.nextID {
			store.nextID = user.ID + 1
		}
		store.users[user.ID] = &user
	}
	return store
}

func (f *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = f.nextID
	f.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) ListActiveByRole(_ context.Context, role domain.Role, department *string) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.User
	for _, user := range f.users {
		if !user.Active || user.Role != role {
			continue
		}
		if department != nil && user.Department != *department {
			continue
		}
		result = append(result, *user)
	}
	return result, nil
}

// fakeAssetStore serves the read-only catalogue.
type fakeAssetStore struct {
	assets map[int64]domain.Asset
}

func newFakeAssetStore(assets ...domain.Asset) *fakeAssetStore {
	store := &fakeAssetStore{assets: make(map[int64]domain.Asset)}
	for _, asset := range assets {
		store.assets[asset.ID] = asset
	}
	return store
}

func (f *fakeAssetStore) GetByID(_ context.Context, id int64) (*domain.Asset, error) {
	asset, ok := f.assets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &asset, nil
}

func (f *fakeAssetStore) List(_ context.Context, _, _ int) ([]domain.Asset, error) {
	var result []domain.Asset
	for _, asset := range f.assets {
		result = append(result, asset)
	}
	return result, nil
}
