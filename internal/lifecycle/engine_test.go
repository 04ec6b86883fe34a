package lifecycle

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-lifecycle/internal/clock"
	"github.com/spec-kit/ticket-lifecycle/internal/domain"
	"github.com/spec-kit/ticket-lifecycle/internal/store"
	"github.com/spec-kit/ticket-lifecycle/pkg/util"
)

var testStart = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore, *clock.Fake) {
	t.Helper()
	st := store.NewMemoryStore()
	clk := clock.NewFake(testStart)
	return NewEngine(st, clk, nil, zap.NewNop()), st, clk
}

func seedTicket(st *store.MemoryStore, status domain.TicketStatus, mutate func(*domain.Ticket)) *domain.Ticket {
	ticket := &domain.Ticket{
		ID:         "tck-1",
		Status:     status,
		Priority:   domain.TicketPriorityMedium,
		CustomerID: "cust-1",
		CreatedAt:  testStart.Add(-time.Hour),
		UpdatedAt:  testStart.Add(-time.Hour),
	}
	if mutate != nil {
		mutate(ticket)
	}
	st.Seed(ticket, &domain.SLAState{TicketID: ticket.ID, StartedAt: ticket.CreatedAt})
	return ticket
}

func failedConditions(t *testing.T, err error) []string {
	t.Helper()
	domainErr := util.ToDomainError(err)
	if domainErr.Code != util.CodeConditionUnsatisfied {
		t.Fatalf("expected CONDITION_UNSATISFIED, got %s (%v)", domainErr.Code, err)
	}
	failed, ok := domainErr.Details["failed_conditions"].([]string)
	if !ok {
		t.Fatalf("failed_conditions missing from details: %v", domainErr.Details)
	}
	return failed
}

func TestApplyTransitionUnassignedOpenTicket(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedTicket(st, domain.TicketStatusOpen, nil)

	_, err := engine.ApplyTransition(context.Background(), "tck-1", domain.TicketStatusInProgress,
		domain.Actor{ID: "agent-1", Role: domain.RoleAgent}, TransitionInput{})

	failed := failedConditions(t, err)
	if len(failed) != 1 || failed[0] != "Ticket must be assigned to an agent" {
		t.Errorf("failed conditions = %v", failed)
	}
}

func TestApplyTransitionResolveWithComment(t *testing.T) {
	engine, st, clk := newTestEngine(t)
	assignee := "agent-1"
	seedTicket(st, domain.TicketStatusInProgress, func(ticket *domain.Ticket) {
		ticket.AssigneeID = &assignee
	})

	updated, err := engine.ApplyTransition(context.Background(), "tck-1", domain.TicketStatusResolved,
		domain.Actor{ID: "agent-1", Role: domain.RoleAgent}, TransitionInput{Comment: "fixed"})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}

	if updated.Status != domain.TicketStatusResolved {
		t.Errorf("status = %s, want RESOLVED", updated.Status)
	}
	if updated.ResolvedAt == nil || !updated.ResolvedAt.Equal(clk.Now()) {
		t.Errorf("resolvedAt = %v, want %v", updated.ResolvedAt, clk.Now())
	}

	msgs, _ := st.ListMessages(context.Background(), "tck-1")
	if len(msgs) != 1 || msgs[0].Body != "fixed" || msgs[0].Internal {
		t.Errorf("messages = %+v, want one public message with body 'fixed'", msgs)
	}
	history, _ := st.ListHistory(context.Background(), "tck-1")
	if len(history) != 1 || history[0].FromStatus != domain.TicketStatusInProgress || history[0].ToStatus != domain.TicketStatusResolved {
		t.Errorf("history = %+v", history)
	}
	audits, _ := st.ListAudit(context.Background(), "tck-1")
	if len(audits) != 1 || audits[0].Action != domain.AuditStatusChange {
		t.Errorf("audits = %+v", audits)
	}
}

func TestApplyTransitionResolveWithoutComment(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	assignee := "agent-1"
	seedTicket(st, domain.TicketStatusInProgress, func(ticket *domain.Ticket) {
		ticket.AssigneeID = &assignee
	})

	_, err := engine.ApplyTransition(context.Background(), "tck-1", domain.TicketStatusResolved,
		domain.Actor{ID: "agent-1", Role: domain.RoleAgent}, TransitionInput{})

	failed := failedConditions(t, err)
	if len(failed) != 1 || failed[0] != "Resolution comment is required" {
		t.Errorf("failed conditions = %v", failed)
	}
}

func TestApplyTransitionCloseTooSoon(t *testing.T) {
	engine, st, clk := newTestEngine(t)
	resolvedAt := clk.Now().Add(-10 * time.Hour)
	seedTicket(st, domain.TicketStatusResolved, func(ticket *domain.Ticket) {
		ticket.ResolvedAt = &resolvedAt
	})

	_, err := engine.ApplyTransition(context.Background(), "tck-1", domain.TicketStatusClosed,
		domain.Actor{ID: "agent-1", Role: domain.RoleAgent}, TransitionInput{})

	failed := failedConditions(t, err)
	if len(failed) != 1 || failed[0] != "Must be resolved for at least 24 hours" {
		t.Errorf("failed conditions = %v", failed)
	}
}

func TestApplyTransitionCloseAfterWindow(t *testing.T) {
	engine, st, clk := newTestEngine(t)
	resolvedAt := clk.Now().Add(-30 * time.Hour)
	seedTicket(st, domain.TicketStatusResolved, func(ticket *domain.Ticket) {
		ticket.ResolvedAt = &resolvedAt
	})

	updated, err := engine.ApplyTransition(context.Background(), "tck-1", domain.TicketStatusClosed,
		domain.Actor{ID: "agent-1", Role: domain.RoleAgent}, TransitionInput{})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if updated.Status != domain.TicketStatusClosed {
		t.Errorf("status = %s, want CLOSED", updated.Status)
	}
	if updated.ResolvedAt == nil {
		t.Error("closing must not clear resolvedAt")
	}
}

func TestApplyTransitionReopenClosedRequiresAdmin(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedTicket(st, domain.TicketStatusClosed, nil)

	_, err := engine.ApplyTransition(context.Background(), "tck-1", domain.TicketStatusInProgress,
		domain.Actor{ID: "agent-1", Role: domain.RoleAgent}, TransitionInput{})
	if !util.HasCode(err, util.CodePermissionDenied) {
		t.Fatalf("expected PERMISSION_DENIED, got %v", err)
	}

	updated, err := engine.ApplyTransition(context.Background(), "tck-1", domain.TicketStatusInProgress,
		domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}, TransitionInput{})
	if err != nil {
		t.Fatalf("admin reopen: %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", updated.Status)
	}
	if updated.ResolvedAt != nil {
		t.Error("reopening a closed ticket must clear resolvedAt")
	}
}

func TestApplyTransitionInvalidEdge(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedTicket(st, domain.TicketStatusOpen, nil)

	_, err := engine.ApplyTransition(context.Background(), "tck-1", domain.TicketStatusClosed,
		domain.Actor{ID: "agent-1", Role: domain.RoleAgent}, TransitionInput{})
	if !util.HasCode(err, util.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestApplyTransitionUnknownTicket(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.ApplyTransition(context.Background(), "missing", domain.TicketStatusInProgress,
		domain.Actor{ID: "agent-1", Role: domain.RoleAgent}, TransitionInput{})
	if !util.HasCode(err, util.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

// A failed transition must leave every row untouched.
func TestApplyTransitionFailureMutatesNothing(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedTicket(st, domain.TicketStatusOpen, nil)

	before, _ := st.GetTicket(context.Background(), "tck-1")
	stateBefore, _ := st.GetSLAState(context.Background(), "tck-1")

	_, err := engine.ApplyTransition(context.Background(), "tck-1", domain.TicketStatusInProgress,
		domain.Actor{ID: "agent-1", Role: domain.RoleAgent}, TransitionInput{})
	if err == nil {
		t.Fatal("expected condition failure")
	}

	after, _ := st.GetTicket(context.Background(), "tck-1")
	stateAfter, _ := st.GetSLAState(context.Background(), "tck-1")
	if !reflect.DeepEqual(before, after) {
		t.Errorf("ticket mutated on failed transition: %+v vs %+v", before, after)
	}
	if !reflect.DeepEqual(stateBefore, stateAfter) {
		t.Errorf("sla state mutated on failed transition: %+v vs %+v", stateBefore, stateAfter)
	}
	history, _ := st.ListHistory(context.Background(), "tck-1")
	audits, _ := st.ListAudit(context.Background(), "tck-1")
	msgs, _ := st.ListMessages(context.Background(), "tck-1")
	if len(history)+len(audits)+len(msgs) != 0 {
		t.Errorf("append-only rows written on failed transition: history=%d audits=%d msgs=%d",
			len(history), len(audits), len(msgs))
	}
}

// Re-resolving overwrites resolvedAt, resetting the 24-hour close clock.
func TestReResolveOverwritesResolvedAt(t *testing.T) {
	engine, st, clk := newTestEngine(t)
	assignee := "agent-1"
	seedTicket(st, domain.TicketStatusInProgress, func(ticket *domain.Ticket) {
		ticket.AssigneeID = &assignee
	})

	ctx := context.Background()
	actor := domain.Actor{ID: "agent-1", Role: domain.RoleAgent}

	first, err := engine.ApplyTransition(ctx, "tck-1", domain.TicketStatusResolved, actor, TransitionInput{Comment: "fixed"})
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	if _, err := engine.ApplyTransition(ctx, "tck-1", domain.TicketStatusInProgress, actor, TransitionInput{}); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reopened, _ := st.GetTicket(ctx, "tck-1")
	if reopened.ResolvedAt != nil {
		t.Fatal("reopening from RESOLVED must clear resolvedAt")
	}

	clk.Advance(6 * time.Hour)
	second, err := engine.ApplyTransition(ctx, "tck-1", domain.TicketStatusResolved, actor, TransitionInput{Comment: "fixed again"})
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !second.ResolvedAt.After(*first.ResolvedAt) {
		t.Errorf("second resolvedAt %v should be after first %v", second.ResolvedAt, first.ResolvedAt)
	}
}

func TestListAvailableTransitions(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedTicket(st, domain.TicketStatusOpen, nil)

	options, err := engine.ListAvailableTransitions(context.Background(), "tck-1", domain.RoleAgent)
	if err != nil {
		t.Fatalf("ListAvailableTransitions: %v", err)
	}
	if len(options) != 1 || options[0].ToStatus != domain.TicketStatusInProgress {
		t.Fatalf("options = %+v", options)
	}
	cond := options[0].Conditions[0]
	if cond.Satisfied || !strings.Contains(cond.Message, "assigned") {
		t.Errorf("condition = %+v, want unsatisfied assignment condition", cond)
	}
}

func TestListAvailableTransitionsFiltersByRole(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedTicket(st, domain.TicketStatusClosed, nil)

	agentOptions, err := engine.ListAvailableTransitions(context.Background(), "tck-1", domain.RoleAgent)
	if err != nil {
		t.Fatalf("ListAvailableTransitions: %v", err)
	}
	if len(agentOptions) != 0 {
		t.Errorf("agent should see no transitions from CLOSED, got %+v", agentOptions)
	}

	adminOptions, err := engine.ListAvailableTransitions(context.Background(), "tck-1", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("ListAvailableTransitions: %v", err)
	}
	if len(adminOptions) != 1 || adminOptions[0].ToStatus != domain.TicketStatusInProgress {
		t.Errorf("admin options = %+v", adminOptions)
	}
}

func TestListAvailableTransitionsUnknownTicket(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.ListAvailableTransitions(context.Background(), "missing", domain.RoleAgent)
	if !util.HasCode(err, util.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
