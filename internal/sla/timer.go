package sla

import (
	"time"

	"github.com/spec-kit/ticket-lifecycle/internal/domain"
)

// TrackStatus reports one SLA track (response or resolution).
type TrackStatus struct {
	TargetMinutes    int64
	Progress         float64
	RemainingMinutes int64
	Breached         bool
}

// Metrics exposes the raw clock figures behind a snapshot.
type Metrics struct {
	ElapsedMinutes     int64
	TotalPausedMinutes int64
	StartedAt          time.Time
	PausedAt           *time.Time
	BreachedAt         *time.Time
	LastEscalationAt   *time.Time
}

// Snapshot is the SLA status of one ticket at a point in time. Breach flags
// come from the persisted state; this type never recomputes them.
type Snapshot struct {
	IsBreached  bool
	IsPaused    bool
	IsCompleted bool
	Response    TrackStatus
	Resolution  TrackStatus
	Metrics     Metrics
}

// ElapsedMinutes is the canonical working-time formula:
//
//	endpoint = resolvedAt ?? pausedAt ?? now
//	elapsed  = max(0, (endpoint - startedAt) - totalPausedMinutes)
//
// Every breach determination in the system, on demand or scheduled, goes
// through this function.
func ElapsedMinutes(ticket *domain.Ticket, state *domain.SLAState, now time.Time) int64 {
	endpoint := now
	if state.PausedAt != nil {
		endpoint = *state.PausedAt
	}
	if ticket.ResolvedAt != nil {
		endpoint = *ticket.ResolvedAt
	}
	elapsed := int64(endpoint.Sub(state.StartedAt)/time.Minute) - state.TotalPausedMinutes
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// BuildSnapshot derives the full SLA view for one ticket.
func BuildSnapshot(ticket *domain.Ticket, state *domain.SLAState, now time.Time) Snapshot {
	budget := TargetFor(ticket.Priority)
	elapsed := ElapsedMinutes(ticket, state, now)

	return Snapshot{
		IsBreached:  state.ResponseBreached || state.ResolutionBreached,
		IsPaused:    state.PausedAt != nil,
		IsCompleted: ticket.ResolvedAt != nil,
		Response:    trackStatus(elapsed, budget.ResponseMinutes, state.ResponseBreached),
		Resolution:  trackStatus(elapsed, budget.ResolutionMinutes, state.ResolutionBreached),
		Metrics: Metrics{
			ElapsedMinutes:     elapsed,
			TotalPausedMinutes: state.TotalPausedMinutes,
			StartedAt:          state.StartedAt,
			PausedAt:           state.PausedAt,
			BreachedAt:         state.BreachedAt,
			LastEscalationAt:   state.LastEscalationAt,
		},
	}
}

func trackStatus(elapsed, target int64, breached bool) TrackStatus {
	progress := float64(0)
	if target > 0 {
		progress = float64(elapsed) / float64(target) * 100
	}
	if progress > 100 {
		progress = 100
	}
	remaining := target - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return TrackStatus{
		TargetMinutes:    target,
		Progress:         progress,
		RemainingMinutes: remaining,
		Breached:         breached,
	}
}
