package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate for support requests. Status only changes through
// the transition engine; ResolvedAt is non-nil exactly while the ticket has
// passed through RESOLVED since its last reopening.
type Ticket struct {
	ID         string
	Status     TicketStatus
	Priority   TicketPriority
	AssigneeID *string
	CustomerID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
	Version    int64
}

// Clone returns a deep copy safe to mutate inside a transaction.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	copied := *t
	if t.AssigneeID != nil {
		v := *t.AssigneeID
		copied.AssigneeID = &v
	}
	if t.ResolvedAt != nil {
		v := *t.ResolvedAt
		copied.ResolvedAt = &v
	}
	return &copied
}
