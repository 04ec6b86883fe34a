package store

import (
	"context"

	"github.com/spec-kit/ticket-lifecycle/internal/domain"
)

// Tx exposes the rows visible inside one per-ticket transaction. The ticket
// and SLA state handed out are locked copies; mutate them and call the update
// methods before the transaction function returns. Updates compare the row
// version and fail with a Conflict error when a concurrent writer won.
type Tx interface {
	Ticket() *domain.Ticket
	SLAState() *domain.SLAState
	UpdateTicket(ctx context.Context, ticket *domain.Ticket) error
	UpdateSLAState(ctx context.Context, state *domain.SLAState) error
	AppendHistory(ctx context.Context, entry *domain.StatusHistory) error
	AppendMessage(ctx context.Context, msg *domain.TicketMessage) error
	AppendAudit(ctx context.Context, record *domain.AuditRecord) error
}

// Store is the transactional persistence contract the lifecycle core depends
// on. Implementations must give per-ticket mutual exclusion: two concurrent
// RunInTicketTx calls for the same ticket must not both observe the same
// starting state and both commit.
type Store interface {
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	GetSLAState(ctx context.Context, ticketID string) (*domain.SLAState, error)
	ListHistory(ctx context.Context, ticketID string) ([]domain.StatusHistory, error)
	ListAudit(ctx context.Context, ticketID string) ([]domain.AuditRecord, error)
	ListUnresolvedTicketIDs(ctx context.Context) ([]string, error)

	// RunInTicketTx loads the ticket and its SLA state under a lock, runs fn,
	// and commits every write atomically. Any error from fn rolls the whole
	// transaction back; no partial state is ever visible.
	RunInTicketTx(ctx context.Context, ticketID string, fn func(tx Tx) error) error
}
