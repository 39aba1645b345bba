package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketApproved      EventType = "ticket_approved"
	EventTicketRejected      EventType = "ticket_rejected"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketCommented     EventType = "ticket_commented"
)

// Event represents a domain event emitted by services after a transition
// commits. Handlers must never influence the outcome of the transition that
// produced the event.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Subject      string                `json:"subject"`
	Type         domain.TicketType     `json:"type"`
	Priority     domain.TicketPriority `json:"priority"`
	RequesterID  int64                 `json:"requester_id"`
	Department   string                `json:"department"`
}

// TicketApprovedPayload payload.
type TicketApprovedPayload struct {
	TicketNumber string `json:"ticket_number"`
	Subject      string `json:"subject"`
	RequesterID  int64  `json:"requester_id"`
	ApproverName string `json:"approver_name"`
	Notes        string `json:"notes,omitempty"`
}

// TicketRejectedPayload payload.
type TicketRejectedPayload struct {
	TicketNumber string `json:"ticket_number"`
	Subject      string `json:"subject"`
	RequesterID  int64  `json:"requester_id"`
	RejecterName string `json:"rejecter_name"`
	Notes        string `json:"notes,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	TicketNumber string `json:"ticket_number"`
	Subject      string `json:"subject"`
	AssigneeID   int64  `json:"assignee_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketNumber string              `json:"ticket_number"`
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	RequesterID  int64               `json:"requester_id"`
	Resolution   string              `json:"resolution,omitempty"`
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	TicketNumber string `json:"ticket_number"`
	CommentID    int64  `json:"comment_id"`
	IsInternal   bool   `json:"is_internal"`
	RequesterID  int64  `json:"requester_id"`
	BodyPreview  string `json:"body_preview"`
}
