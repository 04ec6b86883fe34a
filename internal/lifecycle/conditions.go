package lifecycle

import (
	"strings"
	"time"

	"github.com/spec-kit/ticket-lifecycle/internal/domain"
)

// TransitionInput carries the caller-supplied fields a guard condition may
// inspect. Reason goes to the status history; Comment doubles as the
// resolution comment and, when present, is appended to the ticket thread.
type TransitionInput struct {
	Reason  string
	Comment string
}

// Condition is one guard on a transition rule. Each variant carries its own
// data and a human-readable message surfaced verbatim on failure.
type Condition interface {
	Message() string
	Satisfied(ticket *domain.Ticket, actor domain.Actor, input TransitionInput, now time.Time) bool
}

// Fields a RequiredField condition may reference.
const (
	FieldAssigneeID        = "assignee_id"
	FieldResolutionComment = "resolution_comment"
)

// RequiredField requires a ticket field or request field to be present.
type RequiredField struct {
	Field string
	Msg   string
}

func (c RequiredField) Message() string { return c.Msg }

func (c RequiredField) Satisfied(ticket *domain.Ticket, _ domain.Actor, input TransitionInput, _ time.Time) bool {
	switch c.Field {
	case FieldAssigneeID:
		return ticket.AssigneeID != nil && *ticket.AssigneeID != ""
	case FieldResolutionComment:
		return strings.TrimSpace(input.Comment) != ""
	}
	return false
}

// TimeRestriction requires at least Hours to have elapsed since the ticket
// was resolved.
type TimeRestriction struct {
	Hours int
	Msg   string
}

func (c TimeRestriction) Message() string { return c.Msg }

func (c TimeRestriction) Satisfied(ticket *domain.Ticket, _ domain.Actor, _ TransitionInput, now time.Time) bool {
	if ticket.ResolvedAt == nil {
		return false
	}
	return now.Sub(*ticket.ResolvedAt) >= time.Duration(c.Hours)*time.Hour
}

// Permission requires the actor to hold the rule's required role. Evaluated
// the same way in listing and application so the guard logic stays
// single-sourced.
type Permission struct {
	Role domain.Role
	Msg  string
}

func (c Permission) Message() string { return c.Msg }

func (c Permission) Satisfied(_ *domain.Ticket, actor domain.Actor, _ TransitionInput, _ time.Time) bool {
	return actor.Role == c.Role
}
