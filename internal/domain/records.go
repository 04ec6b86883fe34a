package domain

import "time"

// StatusHistory is an append-only record of a status change.
type StatusHistory struct {
	ID         string
	TicketID   string
	FromStatus TicketStatus
	ToStatus   TicketStatus
	ActorID    string
	Reason     string
	CreatedAt  time.Time
}

// TicketMessage captures a thread entry on a ticket. Internal notes are
// hidden from requesters; the transition engine only writes public messages.
type TicketMessage struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	Internal  bool
	CreatedAt time.Time
}

// AuditAction enumerates mutation types recorded in the audit log.
type AuditAction string

const (
	AuditStatusChange  AuditAction = "STATUS_CHANGE"
	AuditSLAPause      AuditAction = "SLA_PAUSE"
	AuditSLAResume     AuditAction = "SLA_RESUME"
	AuditSLABreach     AuditAction = "SLA_BREACH"
	AuditSLAEscalation AuditAction = "SLA_ESCALATION"
)

// AuditRecord is an immutable audit trail entry; one row per mutation,
// never updated or deleted.
type AuditRecord struct {
	ID        string
	TicketID  string
	ActorID   string
	Action    AuditAction
	Details   map[string]any
	CreatedAt time.Time
}
