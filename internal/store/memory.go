package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-lifecycle/internal/domain"
	"github.com/spec-kit/ticket-lifecycle/pkg/util"
)

// MemoryStore is an in-process Store used by tests and by dev mode when no
// Postgres DSN is configured. Mutual exclusion is a per-ticket mutex; writes
// are staged inside the transaction and applied only on commit.
type MemoryStore struct {
	mu       sync.Mutex
	tickets  map[string]*domain.Ticket
	slas     map[string]*domain.SLAState
	history  map[string][]domain.StatusHistory
	messages map[string][]domain.TicketMessage
	audits   map[string][]domain.AuditRecord
	locks    map[string]*sync.Mutex
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:  make(map[string]*domain.Ticket),
		slas:     make(map[string]*domain.SLAState),
		history:  make(map[string][]domain.StatusHistory),
		messages: make(map[string][]domain.TicketMessage),
		audits:   make(map[string][]domain.AuditRecord),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Seed inserts a ticket with its SLA state. Test helper and dev fixture path.
func (m *MemoryStore) Seed(ticket *domain.Ticket, state *domain.SLAState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[ticket.ID] = ticket.Clone()
	if state != nil {
		m.slas[ticket.ID] = state.Clone()
	}
}

func (m *MemoryStore) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return ticket.Clone(), nil
}

func (m *MemoryStore) GetSLAState(ctx context.Context, ticketID string) (*domain.SLAState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.slas[ticketID]
	if !ok {
		return nil, util.NewNotFound("sla state", map[string]any{"ticket_id": ticketID})
	}
	return state.Clone(), nil
}

func (m *MemoryStore) ListHistory(ctx context.Context, ticketID string) ([]domain.StatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StatusHistory(nil), m.history[ticketID]...), nil
}

func (m *MemoryStore) ListAudit(ctx context.Context, ticketID string) ([]domain.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditRecord(nil), m.audits[ticketID]...), nil
}

// ListMessages returns the thread for a ticket. Used by tests.
func (m *MemoryStore) ListMessages(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TicketMessage(nil), m.messages[ticketID]...), nil
}

func (m *MemoryStore) ListUnresolvedTicketIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.tickets))
	for id, ticket := range m.tickets {
		if ticket.Status == domain.TicketStatusOpen || ticket.Status == domain.TicketStatusInProgress {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) RunInTicketTx(ctx context.Context, ticketID string, fn func(tx Tx) error) error {
	lock := m.ticketLock(ticketID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	ticket, ok := m.tickets[ticketID]
	if !ok {
		m.mu.Unlock()
		return util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	state, ok := m.slas[ticketID]
	if !ok {
		m.mu.Unlock()
		return util.NewNotFound("sla state", map[string]any{"ticket_id": ticketID})
	}
	tx := &memoryTx{
		ticket: ticket.Clone(),
		state:  state.Clone(),
	}
	m.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}
	return m.commit(ticketID, tx)
}

func (m *MemoryStore) commit(ticketID string, tx *memoryTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.updatedTicket != nil {
		current := m.tickets[ticketID]
		if current == nil || current.Version != tx.ticketVersion {
			return util.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticketID})
		}
		applied := tx.updatedTicket.Clone()
		applied.Version = current.Version + 1
		m.tickets[ticketID] = applied
	}
	if tx.updatedState != nil {
		current := m.slas[ticketID]
		if current == nil || current.Version != tx.stateVersion {
			return util.NewConflict("sla state was modified concurrently", map[string]any{"ticket_id": ticketID})
		}
		applied := tx.updatedState.Clone()
		applied.Version = current.Version + 1
		m.slas[ticketID] = applied
	}
	m.history[ticketID] = append(m.history[ticketID], tx.newHistory...)
	m.messages[ticketID] = append(m.messages[ticketID], tx.newMessages...)
	m.audits[ticketID] = append(m.audits[ticketID], tx.newAudits...)
	return nil
}

func (m *MemoryStore) ticketLock(ticketID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[ticketID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[ticketID] = lock
	}
	return lock
}

type memoryTx struct {
	ticket        *domain.Ticket
	state         *domain.SLAState
	ticketVersion int64
	stateVersion  int64
	updatedTicket *domain.Ticket
	updatedState  *domain.SLAState
	newHistory    []domain.StatusHistory
	newMessages   []domain.TicketMessage
	newAudits     []domain.AuditRecord
}

func (t *memoryTx) Ticket() *domain.Ticket     { return t.ticket }
func (t *memoryTx) SLAState() *domain.SLAState { return t.state }

func (t *memoryTx) UpdateTicket(ctx context.Context, ticket *domain.Ticket) error {
	t.ticketVersion = ticket.Version
	t.updatedTicket = ticket.Clone()
	return nil
}

func (t *memoryTx) UpdateSLAState(ctx context.Context, state *domain.SLAState) error {
	t.stateVersion = state.Version
	t.updatedState = state.Clone()
	return nil
}

func (t *memoryTx) AppendHistory(ctx context.Context, entry *domain.StatusHistory) error {
	entry.ID = uuid.NewString()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	t.newHistory = append(t.newHistory, *entry)
	return nil
}

func (t *memoryTx) AppendMessage(ctx context.Context, msg *domain.TicketMessage) error {
	msg.ID = uuid.NewString()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	t.newMessages = append(t.newMessages, *msg)
	return nil
}

func (t *memoryTx) AppendAudit(ctx context.Context, record *domain.AuditRecord) error {
	record.ID = uuid.NewString()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	t.newAudits = append(t.newAudits, *record)
	return nil
}
