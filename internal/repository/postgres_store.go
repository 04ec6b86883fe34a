package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-lifecycle/internal/domain"
	"github.com/spec-kit/ticket-lifecycle/internal/store"
	"github.com/spec-kit/ticket-lifecycle/pkg/util"
)

const ticketColumns = `id, status, priority, assignee_id, customer_id, created_at, updated_at, resolved_at, version`

const slaColumns = `ticket_id, started_at, paused_at, total_paused_minutes, breached_at,
       response_breached, resolution_breached, last_escalation_at, last_escalation_threshold, version`

// PostgresStore implements store.Store over pgx. Mutating operations run in a
// single transaction with SELECT ... FOR UPDATE on the ticket and SLA rows,
// so two concurrent callers can never both observe the same starting state
// and both commit.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore builds the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return ticket, err
}

func (s *PostgresStore) GetSLAState(ctx context.Context, ticketID string) (*domain.SLAState, error) {
	const query = `SELECT ` + slaColumns + ` FROM sla_states WHERE ticket_id=$1`
	state, err := scanSLAState(s.pool.QueryRow(ctx, query, ticketID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, util.NewNotFound("sla state", map[string]any{"ticket_id": ticketID})
	}
	return state, err
}

func (s *PostgresStore) ListHistory(ctx context.Context, ticketID string) ([]domain.StatusHistory, error) {
	const query = `
        SELECT id, ticket_id, from_status, to_status, actor_id, reason, created_at
        FROM status_history WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistory
	for rows.Next() {
		var entry domain.StatusHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.ActorID,
			&entry.Reason,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (s *PostgresStore) ListAudit(ctx context.Context, ticketID string) ([]domain.AuditRecord, error) {
	const query = `
        SELECT id, ticket_id, actor_id, action, details, created_at
        FROM audit_log WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditRecord
	for rows.Next() {
		var record domain.AuditRecord
		if err := rows.Scan(
			&record.ID,
			&record.TicketID,
			&record.ActorID,
			&record.Action,
			&record.Details,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

func (s *PostgresStore) ListUnresolvedTicketIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM tickets WHERE status IN ('OPEN','IN_PROGRESS') ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) RunInTicketTx(ctx context.Context, ticketID string, fn func(tx store.Tx) error) error {
	pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer pgtx.Rollback(ctx) //nolint:errcheck

	const ticketQuery = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	ticket, err := scanTicket(pgtx.QueryRow(ctx, ticketQuery, ticketID))
	if errors.Is(err, pgx.ErrNoRows) {
		return util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return err
	}

	const slaQuery = `SELECT ` + slaColumns + ` FROM sla_states WHERE ticket_id=$1 FOR UPDATE`
	state, err := scanSLAState(pgtx.QueryRow(ctx, slaQuery, ticketID))
	if errors.Is(err, pgx.ErrNoRows) {
		return util.NewNotFound("sla state", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return err
	}

	tx := &postgresTx{tx: pgtx, ticket: ticket, state: state}
	if err := fn(tx); err != nil {
		return err
	}
	return pgtx.Commit(ctx)
}

type postgresTx struct {
	tx     pgx.Tx
	ticket *domain.Ticket
	state  *domain.SLAState
}

func (t *postgresTx) Ticket() *domain.Ticket     { return t.ticket }
func (t *postgresTx) SLAState() *domain.SLAState { return t.state }

func (t *postgresTx) UpdateTicket(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, assignee_id=$3, resolved_at=$4,
            updated_at=$5, version=version+1
        WHERE id=$6 AND version=$7`
	cmd, err := t.tx.Exec(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.AssigneeID,
		ticket.ResolvedAt,
		ticket.UpdatedAt,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticket.ID})
	}
	return nil
}

func (t *postgresTx) UpdateSLAState(ctx context.Context, state *domain.SLAState) error {
	const query = `
        UPDATE sla_states SET paused_at=$1, total_paused_minutes=$2, breached_at=$3,
            response_breached=$4, resolution_breached=$5, last_escalation_at=$6,
            last_escalation_threshold=$7, version=version+1
        WHERE ticket_id=$8 AND version=$9`
	cmd, err := t.tx.Exec(ctx, query,
		state.PausedAt,
		state.TotalPausedMinutes,
		state.BreachedAt,
		state.ResponseBreached,
		state.ResolutionBreached,
		state.LastEscalationAt,
		state.LastEscalationThreshold,
		state.TicketID,
		state.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewConflict("sla state was modified concurrently", map[string]any{"ticket_id": state.TicketID})
	}
	return nil
}

func (t *postgresTx) AppendHistory(ctx context.Context, entry *domain.StatusHistory) error {
	const query = `
        INSERT INTO status_history (ticket_id, from_status, to_status, actor_id, reason, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return t.tx.QueryRow(ctx, query,
		entry.TicketID,
		entry.FromStatus,
		entry.ToStatus,
		entry.ActorID,
		entry.Reason,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

func (t *postgresTx) AppendMessage(ctx context.Context, msg *domain.TicketMessage) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, author_id, body, internal, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return t.tx.QueryRow(ctx, query,
		msg.TicketID,
		msg.AuthorID,
		msg.Body,
		msg.Internal,
		msg.CreatedAt,
	).Scan(&msg.ID)
}

func (t *postgresTx) AppendAudit(ctx context.Context, record *domain.AuditRecord) error {
	const query = `
        INSERT INTO audit_log (ticket_id, actor_id, action, details, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return t.tx.QueryRow(ctx, query,
		record.TicketID,
		record.ActorID,
		record.Action,
		record.Details,
		record.CreatedAt,
	).Scan(&record.ID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssigneeID,
		&ticket.CustomerID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.Version,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanSLAState(row rowScanner) (*domain.SLAState, error) {
	var state domain.SLAState
	if err := row.Scan(
		&state.TicketID,
		&state.StartedAt,
		&state.PausedAt,
		&state.TotalPausedMinutes,
		&state.BreachedAt,
		&state.ResponseBreached,
		&state.ResolutionBreached,
		&state.LastEscalationAt,
		&state.LastEscalationThreshold,
		&state.Version,
	); err != nil {
		return nil, err
	}
	return &state, nil
}
