package lifecycle

import (
	"testing"
	"time"

	"github.com/spec-kit/ticket-lifecycle/internal/domain"
)

func TestRuleTableEdges(t *testing.T) {
	tests := []struct {
		name  string
		from  domain.TicketStatus
		to    domain.TicketStatus
		exist bool
	}{
		{"open to in progress", domain.TicketStatusOpen, domain.TicketStatusInProgress, true},
		{"in progress to resolved", domain.TicketStatusInProgress, domain.TicketStatusResolved, true},
		{"in progress back to open", domain.TicketStatusInProgress, domain.TicketStatusOpen, true},
		{"resolved to closed", domain.TicketStatusResolved, domain.TicketStatusClosed, true},
		{"resolved back to in progress", domain.TicketStatusResolved, domain.TicketStatusInProgress, true},
		{"closed to in progress", domain.TicketStatusClosed, domain.TicketStatusInProgress, true},
		{"open to resolved", domain.TicketStatusOpen, domain.TicketStatusResolved, false},
		{"open to closed", domain.TicketStatusOpen, domain.TicketStatusClosed, false},
		{"closed to open", domain.TicketStatusClosed, domain.TicketStatusOpen, false},
		{"resolved to open", domain.TicketStatusResolved, domain.TicketStatusOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := findRule(tt.from, tt.to)
			if ok != tt.exist {
				t.Errorf("findRule(%s, %s) = %v, want %v", tt.from, tt.to, ok, tt.exist)
			}
		})
	}
}

func TestReopenClosedRequiresAdmin(t *testing.T) {
	rule, ok := findRule(domain.TicketStatusClosed, domain.TicketStatusInProgress)
	if !ok {
		t.Fatal("expected closed -> in progress rule")
	}
	if rule.RequiredRole == nil || *rule.RequiredRole != domain.RoleAdmin {
		t.Errorf("RequiredRole = %v, want admin", rule.RequiredRole)
	}
}

func TestRequiredFieldCondition(t *testing.T) {
	now := time.Now()
	assignee := "agent-1"

	tests := []struct {
		name   string
		cond   RequiredField
		ticket domain.Ticket
		input  TransitionInput
		want   bool
	}{
		{"assignee present", RequiredField{Field: FieldAssigneeID}, domain.Ticket{AssigneeID: &assignee}, TransitionInput{}, true},
		{"assignee missing", RequiredField{Field: FieldAssigneeID}, domain.Ticket{}, TransitionInput{}, false},
		{"comment present", RequiredField{Field: FieldResolutionComment}, domain.Ticket{}, TransitionInput{Comment: "fixed"}, true},
		{"comment blank", RequiredField{Field: FieldResolutionComment}, domain.Ticket{}, TransitionInput{Comment: "   "}, false},
		{"unknown field never satisfied", RequiredField{Field: "nope"}, domain.Ticket{}, TransitionInput{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cond.Satisfied(&tt.ticket, domain.Actor{}, tt.input, now)
			if got != tt.want {
				t.Errorf("Satisfied() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeRestrictionCondition(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cond := TimeRestriction{Hours: 24}

	tenHoursAgo := now.Add(-10 * time.Hour)
	thirtyHoursAgo := now.Add(-30 * time.Hour)

	if cond.Satisfied(&domain.Ticket{ResolvedAt: &tenHoursAgo}, domain.Actor{}, TransitionInput{}, now) {
		t.Error("10 hours since resolution should not satisfy a 24 hour restriction")
	}
	if !cond.Satisfied(&domain.Ticket{ResolvedAt: &thirtyHoursAgo}, domain.Actor{}, TransitionInput{}, now) {
		t.Error("30 hours since resolution should satisfy a 24 hour restriction")
	}
	if cond.Satisfied(&domain.Ticket{}, domain.Actor{}, TransitionInput{}, now) {
		t.Error("nil resolvedAt should never satisfy a time restriction")
	}
}

func TestPermissionCondition(t *testing.T) {
	cond := Permission{Role: domain.RoleAdmin}
	if cond.Satisfied(nil, domain.Actor{Role: domain.RoleAgent}, TransitionInput{}, time.Now()) {
		t.Error("agent should not satisfy admin permission")
	}
	if !cond.Satisfied(nil, domain.Actor{Role: domain.RoleAdmin}, TransitionInput{}, time.Now()) {
		t.Error("admin should satisfy admin permission")
	}
}
