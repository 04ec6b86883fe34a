package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-lifecycle/internal/clock"
	"github.com/spec-kit/ticket-lifecycle/internal/domain"
	"github.com/spec-kit/ticket-lifecycle/internal/events"
	"github.com/spec-kit/ticket-lifecycle/internal/sla"
	"github.com/spec-kit/ticket-lifecycle/internal/store"
)

// BreachEvaluator periodically re-evaluates unresolved tickets and persists
// breach and escalation flags. It uses the same elapsed-time formula as the
// on-demand snapshot path; the two must never diverge.
type BreachEvaluator struct {
	store      store.Store
	clock      clock.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger
	interval   time.Duration
	thresholds []int
}

// NewBreachEvaluator constructs the evaluator. thresholds are resolution
// progress percentages, ascending, at which escalations fire.
func NewBreachEvaluator(st store.Store, clk clock.Clock, dispatcher events.Dispatcher, logger *zap.Logger, interval time.Duration, thresholds []int) *BreachEvaluator {
	if interval <= 0 {
		interval = time.Minute
	}
	return &BreachEvaluator{
		store:      st,
		clock:      clk,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   interval,
		thresholds: thresholds,
	}
}

// Run ticks until the context is cancelled.
func (w *BreachEvaluator) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.EvaluateAll(ctx); err != nil {
				w.logger.Error("sla evaluation sweep failed", zap.Error(err))
			}
		}
	}
}

// EvaluateAll sweeps every unresolved ticket once.
func (w *BreachEvaluator) EvaluateAll(ctx context.Context) error {
	ids, err := w.store.ListUnresolvedTicketIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := w.EvaluateTicket(ctx, id); err != nil {
			w.logger.Warn("sla evaluation failed", zap.String("ticket_id", id), zap.Error(err))
		}
	}
	return nil
}

// EvaluateTicket recomputes breach and escalation state for one ticket inside
// a transaction. No-op when nothing changed.
func (w *BreachEvaluator) EvaluateTicket(ctx context.Context, ticketID string) error {
	var emitted []events.Event

	err := w.store.RunInTicketTx(ctx, ticketID, func(tx store.Tx) error {
		ticket := tx.Ticket()
		state := tx.SLAState()
		now := w.clock.Now()

		budget := sla.TargetFor(ticket.Priority)
		elapsed := sla.ElapsedMinutes(ticket, state, now)
		changed := false

		if !state.ResponseBreached && elapsed >= budget.ResponseMinutes {
			state.ResponseBreached = true
			if state.BreachedAt == nil {
				state.BreachedAt = &now
			}
			changed = true
			emitted = append(emitted, breachEvent(ticketID, "response", elapsed, budget.ResponseMinutes))
		}
		if !state.ResolutionBreached && elapsed >= budget.ResolutionMinutes {
			state.ResolutionBreached = true
			if state.BreachedAt == nil {
				state.BreachedAt = &now
			}
			changed = true
			emitted = append(emitted, breachEvent(ticketID, "resolution", elapsed, budget.ResolutionMinutes))
		}

		if threshold, crossed := w.crossedThreshold(state, elapsed, budget.ResolutionMinutes); crossed {
			state.LastEscalationAt = &now
			state.LastEscalationThreshold = &threshold
			changed = true
			emitted = append(emitted, events.Event{
				Type:     events.EventSLAEscalated,
				TicketID: ticketID,
				Payload: events.SLAEscalatedPayload{
					ThresholdPercent: threshold,
					ElapsedMinutes:   elapsed,
				},
			})
		}

		if !changed {
			return nil
		}
		if err := tx.UpdateSLAState(ctx, state); err != nil {
			return err
		}
		return w.appendAudits(ctx, tx, ticketID, emitted, now)
	})
	if err != nil {
		return err
	}

	for _, event := range emitted {
		events.Publish(ctx, w.dispatcher, event)
	}
	return nil
}

// crossedThreshold reports the highest configured threshold at or below the
// current resolution progress that has not been escalated yet.
func (w *BreachEvaluator) crossedThreshold(state *domain.SLAState, elapsed, target int64) (int, bool) {
	if target <= 0 {
		return 0, false
	}
	progress := int(float64(elapsed) / float64(target) * 100)
	best := 0
	for _, threshold := range w.thresholds {
		if progress >= threshold && threshold > best {
			best = threshold
		}
	}
	if best == 0 {
		return 0, false
	}
	if state.LastEscalationThreshold != nil && *state.LastEscalationThreshold >= best {
		return 0, false
	}
	return best, true
}

func (w *BreachEvaluator) appendAudits(ctx context.Context, tx store.Tx, ticketID string, emitted []events.Event, now time.Time) error {
	for _, event := range emitted {
		action := domain.AuditSLABreach
		details := map[string]any{}
		switch payload := event.Payload.(type) {
		case events.SLABreachedPayload:
			details["kind"] = payload.Kind
			details["elapsed_minutes"] = payload.ElapsedMinutes
			details["target_minutes"] = payload.TargetMinutes
		case events.SLAEscalatedPayload:
			action = domain.AuditSLAEscalation
			details["threshold_percent"] = payload.ThresholdPercent
			details["elapsed_minutes"] = payload.ElapsedMinutes
		}
		if err := tx.AppendAudit(ctx, &domain.AuditRecord{
			TicketID:  ticketID,
			ActorID:   "system",
			Action:    action,
			Details:   details,
			CreatedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func breachEvent(ticketID, kind string, elapsed, target int64) events.Event {
	return events.Event{
		Type:     events.EventSLABreached,
		TicketID: ticketID,
		Payload: events.SLABreachedPayload{
			Kind:           kind,
			ElapsedMinutes: elapsed,
			TargetMinutes:  target,
		},
	}
}
