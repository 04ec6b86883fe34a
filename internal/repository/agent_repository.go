package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-lifecycle/internal/domain"
	"github.com/spec-kit/ticket-lifecycle/pkg/util"
)

// AgentRepository resolves actor roles from the agents table. The role
// catalog itself is managed elsewhere; this only reads current assignments.
type AgentRepository interface {
	GetRole(ctx context.Context, agentID string) (domain.Role, error)
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository builds the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

func (r *agentRepository) GetRole(ctx context.Context, agentID string) (domain.Role, error) {
	const query = `SELECT role FROM agents WHERE id=$1 AND active`
	var role domain.Role
	if err := r.pool.QueryRow(ctx, query, agentID).Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", util.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return "", err
	}
	return role, nil
}
