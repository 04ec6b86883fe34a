package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-lifecycle/internal/clock"
	"github.com/spec-kit/ticket-lifecycle/internal/domain"
	"github.com/spec-kit/ticket-lifecycle/internal/events"
	"github.com/spec-kit/ticket-lifecycle/internal/store"
	"github.com/spec-kit/ticket-lifecycle/pkg/util"
)

// Engine is the only path by which a ticket's status changes. It validates a
// proposed transition against the rule table, the current ticket state, and
// the actor's role, then applies it atomically.
type Engine struct {
	store      store.Store
	clock      clock.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewEngine constructs the transition engine.
func NewEngine(st store.Store, clk clock.Clock, dispatcher events.Dispatcher, logger *zap.Logger) *Engine {
	return &Engine{store: st, clock: clk, dispatcher: dispatcher, logger: logger}
}

// ConditionStatus reports whether one guard currently holds.
type ConditionStatus struct {
	Message   string
	Satisfied bool
}

// TransitionOption describes one reachable target status and the state of
// its guards.
type TransitionOption struct {
	ToStatus   domain.TicketStatus
	Conditions []ConditionStatus
}

// ListAvailableTransitions returns the transitions reachable from the
// ticket's current status for an actor holding role, with each guard
// evaluated against current state. Read-only; the only failure is an unknown
// ticket.
func (e *Engine) ListAvailableTransitions(ctx context.Context, ticketID string, role domain.Role) ([]TransitionOption, error) {
	ticket, err := e.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	actor := domain.Actor{Role: role}
	options := []TransitionOption{}
	for _, rule := range RulesFrom(ticket.Status) {
		if rule.RequiredRole != nil && *rule.RequiredRole != role {
			continue
		}
		option := TransitionOption{ToStatus: rule.To}
		for _, cond := range rule.Conditions {
			option.Conditions = append(option.Conditions, ConditionStatus{
				Message:   cond.Message(),
				Satisfied: cond.Satisfied(ticket, actor, TransitionInput{}, now),
			})
		}
		options = append(options, option)
	}
	return options, nil
}

// ApplyTransition moves the ticket to toStatus when the matching rule's role
// and guard checks pass. The status write, history row, optional thread
// message, and audit row commit atomically; any failure leaves every row
// untouched.
func (e *Engine) ApplyTransition(ctx context.Context, ticketID string, toStatus domain.TicketStatus, actor domain.Actor, input TransitionInput) (*domain.Ticket, error) {
	if !toStatus.Valid() {
		return nil, util.NewValidationError("unknown target status", map[string]any{"to_status": toStatus})
	}

	var updated *domain.Ticket
	var fromStatus domain.TicketStatus

	err := e.store.RunInTicketTx(ctx, ticketID, func(tx store.Tx) error {
		ticket := tx.Ticket()
		fromStatus = ticket.Status

		rule, ok := findRule(ticket.Status, toStatus)
		if !ok {
			return util.NewInvalidTransition(string(ticket.Status), string(toStatus))
		}
		if rule.RequiredRole != nil && actor.Role != *rule.RequiredRole {
			return util.NewPermissionDenied("transition requires role " + string(*rule.RequiredRole))
		}

		now := e.clock.Now()
		var failed []string
		for _, cond := range rule.Conditions {
			if !cond.Satisfied(ticket, actor, input, now) {
				failed = append(failed, cond.Message())
			}
		}
		if len(failed) > 0 {
			return util.NewConditionUnsatisfied(failed)
		}

		ticket.Status = toStatus
		switch {
		case toStatus == domain.TicketStatusResolved:
			// Re-resolving overwrites the timestamp, resetting the
			// close-eligibility clock.
			resolvedAt := now
			ticket.ResolvedAt = &resolvedAt
		case toStatus == domain.TicketStatusOpen || toStatus == domain.TicketStatusInProgress:
			// Reopening restarts the resolution clock.
			ticket.ResolvedAt = nil
		}
		ticket.UpdatedAt = now
		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return err
		}

		if err := tx.AppendHistory(ctx, &domain.StatusHistory{
			TicketID:   ticketID,
			FromStatus: fromStatus,
			ToStatus:   toStatus,
			ActorID:    actor.ID,
			Reason:     input.Reason,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		if input.Comment != "" {
			if err := tx.AppendMessage(ctx, &domain.TicketMessage{
				TicketID:  ticketID,
				AuthorID:  actor.ID,
				Body:      input.Comment,
				Internal:  false,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		details := map[string]any{
			"from_status": string(fromStatus),
			"to_status":   string(toStatus),
		}
		if input.Reason != "" {
			details["reason"] = input.Reason
		}
		if input.Comment != "" {
			details["comment"] = input.Comment
		}
		if err := tx.AppendAudit(ctx, &domain.AuditRecord{
			TicketID:  ticketID,
			ActorID:   actor.ID,
			Action:    domain.AuditStatusChange,
			Details:   details,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		updated = ticket.Clone()
		updated.Version = ticket.Version + 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("ticket status changed",
		zap.String("ticket_id", ticketID),
		zap.String("from", string(fromStatus)),
		zap.String("to", string(toStatus)),
		zap.String("actor_id", actor.ID),
	)
	events.Publish(ctx, e.dispatcher, events.Event{
		Type:     events.EventStatusChanged,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload: events.StatusChangedPayload{
			OldStatus: fromStatus,
			NewStatus: toStatus,
			Reason:    input.Reason,
		},
	})
	return updated, nil
}
