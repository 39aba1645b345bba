package domain

// TicketScope is the record filter derived from a principal. It is folded
// into the same query that locates a ticket, so an out-of-scope ticket is
// indistinguishable from a missing one.
type TicketScope struct {
	RequesterID *int64
	Department  *string
}

// Global reports whether the scope places no restriction on visibility.
func (s TicketScope) Global() bool {
	return s.RequesterID == nil && s.Department == nil
}

// ScopeFor computes the ticket scope for a principal:
// employees see only their own tickets, managers see their department's,
// admins see everything.
func ScopeFor(u *User) TicketScope {
	if u == nil {
		id := int64(-1)
		return TicketScope{RequesterID: &id}
	}
	switch u.Role {
	case RoleAdmin:
		return TicketScope{}
	case RoleManager:
		dept := u.Department
		return TicketScope{Department: &dept}
	default:
		id := u.ID
		return TicketScope{RequesterID: &id}
	}
}
