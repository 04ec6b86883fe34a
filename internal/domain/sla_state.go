package domain

import "time"

// SLAState tracks the compliance clock for a single ticket. PausedAt is
// non-nil exactly while a pause interval is open; TotalPausedMinutes only
// grows, and only on resume. Breach flags are written by the periodic
// evaluator, never derived on read.
type SLAState struct {
	TicketID                string
	StartedAt               time.Time
	PausedAt                *time.Time
	TotalPausedMinutes      int64
	BreachedAt              *time.Time
	ResponseBreached        bool
	ResolutionBreached      bool
	LastEscalationAt        *time.Time
	LastEscalationThreshold *int
	Version                 int64
}

// Clone returns a deep copy safe to mutate inside a transaction.
func (s *SLAState) Clone() *SLAState {
	if s == nil {
		return nil
	}
	copied := *s
	if s.PausedAt != nil {
		v := *s.PausedAt
		copied.PausedAt = &v
	}
	if s.BreachedAt != nil {
		v := *s.BreachedAt
		copied.BreachedAt = &v
	}
	if s.LastEscalationAt != nil {
		v := *s.LastEscalationAt
		copied.LastEscalationAt = &v
	}
	if s.LastEscalationThreshold != nil {
		v := *s.LastEscalationThreshold
		copied.LastEscalationThreshold = &v
	}
	return &copied
}
