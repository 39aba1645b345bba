package domain

import "time"

// Comment is an append-only discussion entry on a ticket. Internal comments
// are hidden from the original requester.
type Comment struct {
	ID         int64
	TicketID   int64
	AuthorID   int64
	Body       string
	IsInternal bool
	CreatedAt  time.Time
}
