package domain

import "time"

// TicketStatus enumerates the work lifecycle of a ticket.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// ApprovalStatus enumerates the approval axis. It is independent from
// TicketStatus: a ticket leaves PENDING exactly once and never returns.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// TicketType classifies the kind of request.
type TicketType string

const (
	TicketTypeRepair             TicketType = "REPAIR"
	TicketTypeMaintenance        TicketType = "MAINTENANCE"
	TicketTypeRequestItem        TicketType = "REQUEST_ITEM"
	TicketTypeRequestReplacement TicketType = "REQUEST_REPLACEMENT"
	TicketTypeInquiry            TicketType = "INQUIRY"
	TicketTypeOther              TicketType = "OTHER"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate root for helpdesk requests. RequesterDepartment is
// captured at creation and routes departmental approval; it does not follow
// later changes to the requester's profile.
type Ticket struct {
	ID                  int64
	TicketNumber        string
	Type                TicketType
	Priority            TicketPriority
	Status              TicketStatus
	ApprovalStatus      ApprovalStatus
	RequesterID         int64
	RequesterDepartment string
	AssetID             *int64
	AssigneeID          *int64
	ApprovedBy          *int64
	RejectedBy          *int64
	Subject             string
	Description         string
	ManagerNotes        string
	Resolution          string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ApprovedAt          *time.Time
	RejectedAt          *time.Time
	ResolvedAt          *time.Time
}

// ValidType reports whether t is a known ticket type.
func ValidType(t TicketType) bool {
	switch t {
	case TicketTypeRepair, TicketTypeMaintenance, TicketTypeRequestItem,
		TicketTypeRequestReplacement, TicketTypeInquiry, TicketTypeOther:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

var workTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusResolved},
	TicketStatusInProgress: {TicketStatusResolved},
	TicketStatusResolved:   {TicketStatusClosed},
	TicketStatusClosed:     {},
}

// ValidWorkTransition reports whether the work status may move from current
// to next. Edges only move forward; there is no path back.
func ValidWorkTransition(current, next TicketStatus) bool {
	for _, candidate := range workTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
