package sla

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-lifecycle/internal/clock"
	"github.com/spec-kit/ticket-lifecycle/internal/domain"
	"github.com/spec-kit/ticket-lifecycle/internal/events"
	"github.com/spec-kit/ticket-lifecycle/internal/store"
	"github.com/spec-kit/ticket-lifecycle/pkg/util"
)

// Service owns the pause/resume mutations on the SLA clock and the on-demand
// status read.
type Service struct {
	store      store.Store
	clock      clock.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewService constructs the SLA service.
func NewService(st store.Store, clk clock.Clock, dispatcher events.Dispatcher, logger *zap.Logger) *Service {
	return &Service{store: st, clock: clk, dispatcher: dispatcher, logger: logger}
}

// GetStatus returns the SLA snapshot for a ticket. Pure read.
func (s *Service) GetStatus(ctx context.Context, ticketID string) (*Snapshot, error) {
	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	state, err := s.store.GetSLAState(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	snapshot := BuildSnapshot(ticket, state, s.clock.Now())
	return &snapshot, nil
}

// Pause opens a pause interval on the ticket's SLA clock. resumeAt is
// advisory only; nothing resumes the clock automatically.
func (s *Service) Pause(ctx context.Context, ticketID string, actor domain.Actor, reason string, resumeAt *time.Time) (*domain.SLAState, error) {
	var updated *domain.SLAState

	err := s.store.RunInTicketTx(ctx, ticketID, func(tx store.Tx) error {
		state := tx.SLAState()
		if state.PausedAt != nil {
			return util.NewSLAAlreadyPaused(ticketID)
		}

		now := s.clock.Now()
		state.PausedAt = &now
		if err := tx.UpdateSLAState(ctx, state); err != nil {
			return err
		}

		details := map[string]any{"reason": reason}
		if resumeAt != nil {
			details["resume_at"] = resumeAt.UTC().Format(time.RFC3339)
		}
		if err := tx.AppendAudit(ctx, &domain.AuditRecord{
			TicketID:  ticketID,
			ActorID:   actor.ID,
			Action:    domain.AuditSLAPause,
			Details:   details,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		updated = state.Clone()
		updated.Version = state.Version + 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sla paused", zap.String("ticket_id", ticketID), zap.String("actor_id", actor.ID), zap.String("reason", reason))
	events.Publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventSLAPaused,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload:  events.SLAPausedPayload{Reason: reason, ResumeAt: resumeAt},
	})
	return updated, nil
}

// Resume closes the open pause interval, folding its whole-minute length into
// TotalPausedMinutes.
func (s *Service) Resume(ctx context.Context, ticketID string, actor domain.Actor) (*domain.SLAState, error) {
	var updated *domain.SLAState
	var added int64

	err := s.store.RunInTicketTx(ctx, ticketID, func(tx store.Tx) error {
		state := tx.SLAState()
		if state.PausedAt == nil {
			return util.NewSLANotPaused(ticketID)
		}

		now := s.clock.Now()
		added = int64(now.Sub(*state.PausedAt) / time.Minute)
		if added < 0 {
			added = 0
		}
		state.TotalPausedMinutes += added
		state.PausedAt = nil
		if err := tx.UpdateSLAState(ctx, state); err != nil {
			return err
		}

		if err := tx.AppendAudit(ctx, &domain.AuditRecord{
			TicketID:  ticketID,
			ActorID:   actor.ID,
			Action:    domain.AuditSLAResume,
			Details:   map[string]any{"added_paused_minutes": added},
			CreatedAt: now,
		}); err != nil {
			return err
		}

		updated = state.Clone()
		updated.Version = state.Version + 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sla resumed", zap.String("ticket_id", ticketID), zap.String("actor_id", actor.ID), zap.Int64("added_paused_minutes", added))
	events.Publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventSLAResumed,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload:  events.SLAResumedPayload{AddedPausedMinutes: added, TotalPausedMinutes: updated.TotalPausedMinutes},
	})
	return updated, nil
}
