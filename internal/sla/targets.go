package sla

import "github.com/spec-kit/ticket-lifecycle/internal/domain"

// Budget holds the time targets for one priority, in minutes.
type Budget struct {
	ResponseMinutes   int64
	ResolutionMinutes int64
}

// targets maps priority to response/resolution budgets. Immutable; both the
// on-demand snapshot path and the periodic evaluator read from here so breach
// determinations can never diverge.
var targets = map[domain.TicketPriority]Budget{
	domain.TicketPriorityLow:    {ResponseMinutes: 24 * 60, ResolutionMinutes: 7 * 24 * 60},
	domain.TicketPriorityMedium: {ResponseMinutes: 8 * 60, ResolutionMinutes: 3 * 24 * 60},
	domain.TicketPriorityHigh:   {ResponseMinutes: 4 * 60, ResolutionMinutes: 24 * 60},
	domain.TicketPriorityUrgent: {ResponseMinutes: 60, ResolutionMinutes: 8 * 60},
}

// TargetFor returns the budget for a priority, defaulting to MEDIUM for
// unknown values.
func TargetFor(priority domain.TicketPriority) Budget {
	if budget, ok := targets[priority]; ok {
		return budget
	}
	return targets[domain.TicketPriorityMedium]
}
