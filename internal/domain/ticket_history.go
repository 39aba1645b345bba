package domain

import "time"

// HistoryAction captures what a history entry records.
type HistoryAction string

const (
	HistoryActionCreated        HistoryAction = "CREATED"
	HistoryActionStatusChanged  HistoryAction = "STATUS_CHANGED"
	HistoryActionApprovalChange HistoryAction = "APPROVAL_STATUS_CHANGED"
	HistoryActionAssigned       HistoryAction = "ASSIGNED"
	HistoryActionCommented      HistoryAction = "COMMENTED"
	HistoryActionUpdated        HistoryAction = "UPDATED"
)

// TicketHistory is an immutable audit trail entry. Entries are only ever
// inserted; the ticket's current state must be reconstructible from this
// log plus the ticket row.
type TicketHistory struct {
	ID          int64
	TicketID    int64
	Action      HistoryAction
	NewValue    *string
	PerformedBy int64
	Note        string
	CreatedAt   time.Time
}
