package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Type        domain.TicketType     `json:"type"`
	Priority    domain.TicketPriority `json:"priority"`
	AssetID     *int64                `json:"asset_id"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
}

// DecisionRequest payload for approve/reject.
type DecisionRequest struct {
	Notes string `json:"notes"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeID int64 `json:"assignee_id"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
	Note   string              `json:"note"`
}

// ResolveRequest payload.
type ResolveRequest struct {
	Resolution string `json:"resolution"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body       string `json:"body"`
	IsInternal bool   `json:"is_internal"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             int64                 `json:"id"`
	TicketNumber   string                `json:"ticket_number"`
	Type           domain.TicketType     `json:"type"`
	Priority       domain.TicketPriority `json:"priority"`
	Status         domain.TicketStatus   `json:"status"`
	ApprovalStatus domain.ApprovalStatus `json:"approval_status"`
	Subject        string                `json:"subject"`
	AssetID        *int64                `json:"asset_id,omitempty"`
	AssigneeID     *int64                `json:"assignee_id,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	RequesterID         int64                   `json:"requester_id"`
	RequesterDepartment string                  `json:"requester_department"`
	ApprovedBy          *int64                  `json:"approved_by,omitempty"`
	RejectedBy          *int64                  `json:"rejected_by,omitempty"`
	Description         string                  `json:"description"`
	ManagerNotes        string                  `json:"manager_notes,omitempty"`
	Resolution          string                  `json:"resolution,omitempty"`
	ApprovedAt          *time.Time              `json:"approved_at,omitempty"`
	RejectedAt          *time.Time              `json:"rejected_at,omitempty"`
	ResolvedAt          *time.Time              `json:"resolved_at,omitempty"`
	Comments            []CommentResponse       `json:"comments"`
	History             []TicketHistoryResponse `json:"history"`
}

// CommentResponse represents a thread entry.
type CommentResponse struct {
	ID         int64     `json:"id"`
	AuthorID   int64     `json:"author_id"`
	Body       string    `json:"body"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// TicketHistoryResponse represents an audit entry.
type TicketHistoryResponse struct {
	ID          int64                `json:"id"`
	Action      domain.HistoryAction `json:"action"`
	NewValue    *string              `json:"new_value,omitempty"`
	PerformedBy int64                `json:"performed_by"`
	Note        string               `json:"note,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AssetResponse metadata.
type AssetResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
}
