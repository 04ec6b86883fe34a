package auth

import (
	"context"

	"github.com/spec-kit/ticket-lifecycle/internal/domain"
	"github.com/spec-kit/ticket-lifecycle/internal/repository"
)

// RoleResolver returns the current role for an actor id. The core never
// caches or manages roles itself; callers inject a resolver (usually wrapped
// in a RoleCache).
type RoleResolver interface {
	Resolve(ctx context.Context, actorID string) (domain.Role, error)
}

// AgentResolver resolves roles from the agents table.
type AgentResolver struct {
	agents repository.AgentRepository
}

// NewAgentResolver builds the resolver.
func NewAgentResolver(agents repository.AgentRepository) *AgentResolver {
	return &AgentResolver{agents: agents}
}

func (r *AgentResolver) Resolve(ctx context.Context, actorID string) (domain.Role, error) {
	return r.agents.GetRole(ctx, actorID)
}

// StaticResolver maps actor ids to fixed roles. Dev mode and tests.
type StaticResolver map[string]domain.Role

func (r StaticResolver) Resolve(ctx context.Context, actorID string) (domain.Role, error) {
	if role, ok := r[actorID]; ok {
		return role, nil
	}
	return domain.RoleAgent, nil
}
