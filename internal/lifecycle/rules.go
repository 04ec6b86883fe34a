package lifecycle

import "github.com/spec-kit/ticket-lifecycle/internal/domain"

// Rule is one legal edge in the status state machine.
type Rule struct {
	From         domain.TicketStatus
	To           domain.TicketStatus
	RequiredRole *domain.Role
	Conditions   []Condition
}

// CloseAfterResolvedHours is how long a ticket must stay resolved before it
// can be closed.
const CloseAfterResolvedHours = 24

var roleAdmin = domain.RoleAdmin

// transitionRules is the immutable rule table, keyed by from-status and built
// once at package init. All legality checks read from here; nothing writes
// to it after startup.
var transitionRules = map[domain.TicketStatus][]Rule{
	domain.TicketStatusOpen: {
		{
			From: domain.TicketStatusOpen,
			To:   domain.TicketStatusInProgress,
			Conditions: []Condition{
				RequiredField{Field: FieldAssigneeID, Msg: "Ticket must be assigned to an agent"},
			},
		},
	},
	domain.TicketStatusInProgress: {
		{
			From: domain.TicketStatusInProgress,
			To:   domain.TicketStatusResolved,
			Conditions: []Condition{
				RequiredField{Field: FieldResolutionComment, Msg: "Resolution comment is required"},
			},
		},
		{
			From: domain.TicketStatusInProgress,
			To:   domain.TicketStatusOpen,
		},
	},
	domain.TicketStatusResolved: {
		{
			From: domain.TicketStatusResolved,
			To:   domain.TicketStatusClosed,
			Conditions: []Condition{
				TimeRestriction{Hours: CloseAfterResolvedHours, Msg: "Must be resolved for at least 24 hours"},
			},
		},
		{
			From: domain.TicketStatusResolved,
			To:   domain.TicketStatusInProgress,
		},
	},
	domain.TicketStatusClosed: {
		{
			From:         domain.TicketStatusClosed,
			To:           domain.TicketStatusInProgress,
			RequiredRole: &roleAdmin,
			Conditions: []Condition{
				Permission{Role: domain.RoleAdmin, Msg: "Only administrators can reopen closed tickets"},
			},
		},
	},
}

// RulesFrom returns the outgoing rules for a status.
func RulesFrom(status domain.TicketStatus) []Rule {
	return transitionRules[status]
}

func findRule(from, to domain.TicketStatus) (Rule, bool) {
	for _, rule := range transitionRules[from] {
		if rule.To == to {
			return rule, true
		}
	}
	return Rule{}, false
}
