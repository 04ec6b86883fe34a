package sla

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-lifecycle/internal/clock"
	"github.com/spec-kit/ticket-lifecycle/internal/domain"
	"github.com/spec-kit/ticket-lifecycle/internal/store"
	"github.com/spec-kit/ticket-lifecycle/pkg/util"
)

var serviceStart = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *clock.Fake) {
	t.Helper()
	st := store.NewMemoryStore()
	clk := clock.NewFake(serviceStart)
	return NewService(st, clk, nil, zap.NewNop()), st, clk
}

func seedTicket(st *store.MemoryStore, priority domain.TicketPriority) string {
	const id = "tkt-sla-1"
	st.Seed(
		&domain.Ticket{
			ID:         id,
			Status:     domain.TicketStatusOpen,
			Priority:   priority,
			CustomerID: "cust-1",
			CreatedAt:  serviceStart,
			UpdatedAt:  serviceStart,
			Version:    1,
		},
		&domain.SLAState{TicketID: id, StartedAt: serviceStart, Version: 1},
	)
	return id
}

func TestPauseResumeCycle(t *testing.T) {
	svc, st, clk := newTestService(t)
	id := seedTicket(st, domain.TicketPriorityHigh)
	actor := domain.Actor{ID: "agent-1", Role: domain.RoleAgent}

	clk.Advance(30 * time.Minute)
	resumeAt := clk.Now().Add(2 * time.Hour)
	paused, err := svc.Pause(context.Background(), id, actor, "waiting on customer", &resumeAt)
	if err != nil {
		t.Fatalf("Pause() error: %v", err)
	}
	if paused.PausedAt == nil || !paused.PausedAt.Equal(clk.Now()) {
		t.Fatalf("PausedAt = %v, want %v", paused.PausedAt, clk.Now())
	}

	// Elapsed freezes during the pause.
	clk.Advance(3 * time.Hour)
	snapshot, err := svc.GetStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if snapshot.Metrics.ElapsedMinutes != 30 {
		t.Errorf("elapsed while paused = %d, want 30", snapshot.Metrics.ElapsedMinutes)
	}
	if !snapshot.IsPaused {
		t.Error("snapshot should report paused")
	}

	resumed, err := svc.Resume(context.Background(), id, actor)
	if err != nil {
		t.Fatalf("Resume() error: %v", err)
	}
	if resumed.PausedAt != nil {
		t.Error("Resume must clear PausedAt")
	}
	if resumed.TotalPausedMinutes != 180 {
		t.Errorf("TotalPausedMinutes = %d, want 180", resumed.TotalPausedMinutes)
	}

	// The paused window stays excluded from elapsed after resume.
	clk.Advance(10 * time.Minute)
	snapshot, err = svc.GetStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if snapshot.Metrics.ElapsedMinutes != 40 {
		t.Errorf("elapsed after resume = %d, want 40", snapshot.Metrics.ElapsedMinutes)
	}

	audits, err := st.ListAudit(context.Background(), id)
	if err != nil {
		t.Fatalf("ListAudit() error: %v", err)
	}
	if len(audits) != 2 {
		t.Fatalf("audit rows = %d, want 2", len(audits))
	}
	if audits[0].Action != domain.AuditSLAPause {
		t.Errorf("first audit action = %s, want %s", audits[0].Action, domain.AuditSLAPause)
	}
	if audits[0].Details["reason"] != "waiting on customer" {
		t.Errorf("pause audit reason = %v", audits[0].Details["reason"])
	}
	if audits[0].Details["resume_at"] != resumeAt.UTC().Format(time.RFC3339) {
		t.Errorf("pause audit resume_at = %v", audits[0].Details["resume_at"])
	}
	if audits[1].Action != domain.AuditSLAResume {
		t.Errorf("second audit action = %s, want %s", audits[1].Action, domain.AuditSLAResume)
	}
	if audits[1].Details["added_paused_minutes"] != int64(180) {
		t.Errorf("resume audit added_paused_minutes = %v, want 180", audits[1].Details["added_paused_minutes"])
	}
}

func TestRepeatedCyclesAccumulate(t *testing.T) {
	svc, st, clk := newTestService(t)
	id := seedTicket(st, domain.TicketPriorityLow)
	actor := domain.Actor{ID: "agent-1", Role: domain.RoleAgent}

	for i := 0; i < 3; i++ {
		clk.Advance(10 * time.Minute)
		if _, err := svc.Pause(context.Background(), id, actor, "hold", nil); err != nil {
			t.Fatalf("Pause() cycle %d error: %v", i, err)
		}
		clk.Advance(20 * time.Minute)
		if _, err := svc.Resume(context.Background(), id, actor); err != nil {
			t.Fatalf("Resume() cycle %d error: %v", i, err)
		}
	}

	state, err := st.GetSLAState(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSLAState() error: %v", err)
	}
	if state.TotalPausedMinutes != 60 {
		t.Errorf("TotalPausedMinutes = %d, want 60", state.TotalPausedMinutes)
	}

	snapshot, err := svc.GetStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if snapshot.Metrics.ElapsedMinutes != 30 {
		t.Errorf("elapsed = %d, want 30", snapshot.Metrics.ElapsedMinutes)
	}
}

func TestPauseWhilePaused(t *testing.T) {
	svc, st, _ := newTestService(t)
	id := seedTicket(st, domain.TicketPriorityMedium)
	actor := domain.Actor{ID: "agent-1", Role: domain.RoleAgent}

	if _, err := svc.Pause(context.Background(), id, actor, "first", nil); err != nil {
		t.Fatalf("Pause() error: %v", err)
	}
	_, err := svc.Pause(context.Background(), id, actor, "second", nil)
	if !util.HasCode(err, util.CodeSLAAlreadyPaused) {
		t.Fatalf("second Pause() error = %v, want %s", err, util.CodeSLAAlreadyPaused)
	}

	// The failed attempt must not add an audit row.
	audits, _ := st.ListAudit(context.Background(), id)
	if len(audits) != 1 {
		t.Errorf("audit rows = %d, want 1", len(audits))
	}
}

func TestResumeWhileRunning(t *testing.T) {
	svc, st, _ := newTestService(t)
	id := seedTicket(st, domain.TicketPriorityMedium)

	_, err := svc.Resume(context.Background(), id, domain.Actor{ID: "agent-1", Role: domain.RoleAgent})
	if !util.HasCode(err, util.CodeSLANotPaused) {
		t.Fatalf("Resume() error = %v, want %s", err, util.CodeSLANotPaused)
	}
}

func TestPauseUnknownTicket(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Pause(context.Background(), "missing", domain.Actor{ID: "agent-1"}, "hold", nil)
	if !util.HasCode(err, util.CodeNotFound) {
		t.Fatalf("Pause() error = %v, want %s", err, util.CodeNotFound)
	}
}

// Two racing pause requests: exactly one wins, the other gets the
// already-paused error.
func TestConcurrentPause(t *testing.T) {
	svc, st, _ := newTestService(t)
	id := seedTicket(st, domain.TicketPriorityHigh)
	actor := domain.Actor{ID: "agent-1", Role: domain.RoleAgent}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Pause(context.Background(), id, actor, "race", nil)
		}(i)
	}
	wg.Wait()

	var ok, alreadyPaused int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case util.HasCode(err, util.CodeSLAAlreadyPaused):
			alreadyPaused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || alreadyPaused != 1 {
		t.Fatalf("results: ok=%d alreadyPaused=%d, want 1/1", ok, alreadyPaused)
	}
}

func TestGetStatusAfterResolve(t *testing.T) {
	svc, st, clk := newTestService(t)
	id := seedTicket(st, domain.TicketPriorityUrgent)

	resolvedAt := serviceStart.Add(50 * time.Minute)
	ticket, _ := st.GetTicket(context.Background(), id)
	ticket.Status = domain.TicketStatusResolved
	ticket.ResolvedAt = &resolvedAt
	st.Seed(ticket, nil)

	clk.Advance(6 * time.Hour)
	snapshot, err := svc.GetStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if !snapshot.IsCompleted {
		t.Error("snapshot should report completed")
	}
	if snapshot.Metrics.ElapsedMinutes != 50 {
		t.Errorf("elapsed = %d, want 50 (frozen at resolution)", snapshot.Metrics.ElapsedMinutes)
	}
}
