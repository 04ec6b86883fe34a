package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-lifecycle/internal/domain"
	"github.com/spec-kit/ticket-lifecycle/pkg/util"
)

const actorKey = "auth_actor"

// Middleware validates bearer tokens and resolves the caller's current role.
type Middleware struct {
	tokens   *TokenManager
	resolver RoleResolver
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, resolver RoleResolver) *Middleware {
	return &Middleware{tokens: tokens, resolver: resolver}
}

// Handle enforces authentication for protected routes and stores the actor
// in the request context.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return util.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return util.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return util.NewUnauthorized("invalid token")
	}

	role, err := m.resolver.Resolve(c.UserContext(), claims.ActorID)
	if err != nil {
		if util.HasCode(err, util.CodeNotFound) {
			return util.NewUnauthorized("unknown actor")
		}
		return util.MapError(err)
	}

	c.Locals(actorKey, domain.Actor{ID: claims.ActorID, Role: role})
	return c.Next()
}

// ActorFromContext retrieves the authenticated actor.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return domain.Actor{}, false
	}
	actor, ok := val.(domain.Actor)
	return actor, ok
}
