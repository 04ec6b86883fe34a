package dto

import (
	"time"

	"github.com/spec-kit/ticket-lifecycle/internal/domain"
	"github.com/spec-kit/ticket-lifecycle/internal/lifecycle"
	"github.com/spec-kit/ticket-lifecycle/internal/sla"
)

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	ToStatus string `json:"to_status" validate:"required,oneof=OPEN IN_PROGRESS RESOLVED CLOSED"`
	Reason   string `json:"reason" validate:"max=500"`
	Comment  string `json:"comment" validate:"max=5000"`
}

// PauseSLARequest payload. ResumeAt is advisory only.
type PauseSLARequest struct {
	Reason   string     `json:"reason" validate:"required,max=500"`
	ResumeAt *time.Time `json:"resume_at"`
}

// TicketResponse mirrors the ticket row after a mutation.
type TicketResponse struct {
	ID         string                `json:"id"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	AssigneeID *string               `json:"assignee_id"`
	CustomerID string                `json:"customer_id"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	ResolvedAt *time.Time            `json:"resolved_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:         ticket.ID,
		Status:     ticket.Status,
		Priority:   ticket.Priority,
		AssigneeID: ticket.AssigneeID,
		CustomerID: ticket.CustomerID,
		CreatedAt:  ticket.CreatedAt,
		UpdatedAt:  ticket.UpdatedAt,
		ResolvedAt: ticket.ResolvedAt,
	}
}

// ConditionResponse reports one guard and whether it currently holds.
type ConditionResponse struct {
	Message   string `json:"message"`
	Satisfied bool   `json:"satisfied"`
}

// TransitionOptionResponse is one reachable status.
type TransitionOptionResponse struct {
	ToStatus   domain.TicketStatus `json:"to_status"`
	Conditions []ConditionResponse `json:"conditions"`
}

// NewTransitionOptions maps engine output.
func NewTransitionOptions(options []lifecycle.TransitionOption) []TransitionOptionResponse {
	result := make([]TransitionOptionResponse, 0, len(options))
	for _, option := range options {
		mapped := TransitionOptionResponse{ToStatus: option.ToStatus, Conditions: []ConditionResponse{}}
		for _, cond := range option.Conditions {
			mapped.Conditions = append(mapped.Conditions, ConditionResponse{
				Message:   cond.Message,
				Satisfied: cond.Satisfied,
			})
		}
		result = append(result, mapped)
	}
	return result
}

// SLATrackResponse is one SLA track.
type SLATrackResponse struct {
	TargetMinutes    int64   `json:"target_minutes"`
	Progress         float64 `json:"progress"`
	RemainingMinutes int64   `json:"remaining_minutes"`
	Breached         bool    `json:"breached"`
}

// SLAStatusResponse is the full SLA snapshot.
type SLAStatusResponse struct {
	IsBreached  bool             `json:"is_breached"`
	IsPaused    bool             `json:"is_paused"`
	IsCompleted bool             `json:"is_completed"`
	Response    SLATrackResponse `json:"response"`
	Resolution  SLATrackResponse `json:"resolution"`
	Metrics     SLAMetrics       `json:"metrics"`
}

// SLAMetrics exposes the raw clock figures.
type SLAMetrics struct {
	ElapsedMinutes     int64      `json:"elapsed_minutes"`
	TotalPausedMinutes int64      `json:"total_paused_minutes"`
	StartedAt          time.Time  `json:"started_at"`
	PausedAt           *time.Time `json:"paused_at"`
	BreachedAt         *time.Time `json:"breached_at"`
	LastEscalationAt   *time.Time `json:"last_escalation_at"`
}

// NewSLAStatusResponse maps a snapshot.
func NewSLAStatusResponse(snapshot *sla.Snapshot) SLAStatusResponse {
	return SLAStatusResponse{
		IsBreached:  snapshot.IsBreached,
		IsPaused:    snapshot.IsPaused,
		IsCompleted: snapshot.IsCompleted,
		Response:    newTrackResponse(snapshot.Response),
		Resolution:  newTrackResponse(snapshot.Resolution),
		Metrics: SLAMetrics{
			ElapsedMinutes:     snapshot.Metrics.ElapsedMinutes,
			TotalPausedMinutes: snapshot.Metrics.TotalPausedMinutes,
			StartedAt:          snapshot.Metrics.StartedAt,
			PausedAt:           snapshot.Metrics.PausedAt,
			BreachedAt:         snapshot.Metrics.BreachedAt,
			LastEscalationAt:   snapshot.Metrics.LastEscalationAt,
		},
	}
}

func newTrackResponse(track sla.TrackStatus) SLATrackResponse {
	return SLATrackResponse{
		TargetMinutes:    track.TargetMinutes,
		Progress:         track.Progress,
		RemainingMinutes: track.RemainingMinutes,
		Breached:         track.Breached,
	}
}

// SLAStateResponse mirrors the SLA state row after pause/resume.
type SLAStateResponse struct {
	TicketID           string     `json:"ticket_id"`
	StartedAt          time.Time  `json:"started_at"`
	PausedAt           *time.Time `json:"paused_at"`
	TotalPausedMinutes int64      `json:"total_paused_minutes"`
}

// NewSLAStateResponse maps a domain SLA state.
func NewSLAStateResponse(state *domain.SLAState) SLAStateResponse {
	return SLAStateResponse{
		TicketID:           state.TicketID,
		StartedAt:          state.StartedAt,
		PausedAt:           state.PausedAt,
		TotalPausedMinutes: state.TotalPausedMinutes,
	}
}
