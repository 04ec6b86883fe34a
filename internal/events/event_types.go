package events

import (
	"time"

	"github.com/spec-kit/ticket-lifecycle/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventStatusChanged EventType = "ticket_status_changed"
	EventSLAPaused     EventType = "sla_paused"
	EventSLAResumed    EventType = "sla_resumed"
	EventSLABreached   EventType = "sla_breached"
	EventSLAEscalated  EventType = "sla_escalated"
)

// Event represents a domain event emitted after a committed mutation.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reason    string              `json:"reason,omitempty"`
}

// SLAPausedPayload payload.
type SLAPausedPayload struct {
	Reason   string     `json:"reason"`
	ResumeAt *time.Time `json:"resume_at,omitempty"`
}

// SLAResumedPayload payload.
type SLAResumedPayload struct {
	AddedPausedMinutes int64 `json:"added_paused_minutes"`
	TotalPausedMinutes int64 `json:"total_paused_minutes"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Kind           string `json:"kind"` // "response" or "resolution"
	ElapsedMinutes int64  `json:"elapsed_minutes"`
	TargetMinutes  int64  `json:"target_minutes"`
}

// SLAEscalatedPayload payload.
type SLAEscalatedPayload struct {
	ThresholdPercent int   `json:"threshold_percent"`
	ElapsedMinutes   int64 `json:"elapsed_minutes"`
}
