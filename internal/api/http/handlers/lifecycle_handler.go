package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-lifecycle/internal/api/dto"
	"github.com/spec-kit/ticket-lifecycle/internal/auth"
	"github.com/spec-kit/ticket-lifecycle/internal/domain"
	"github.com/spec-kit/ticket-lifecycle/internal/lifecycle"
	"github.com/spec-kit/ticket-lifecycle/pkg/util"
)

// LifecycleHandler exposes the status transition commands.
type LifecycleHandler struct {
	engine   *lifecycle.Engine
	validate *validator.Validate
}

// NewLifecycleHandler constructs handler.
func NewLifecycleHandler(engine *lifecycle.Engine) *LifecycleHandler {
	return &LifecycleHandler{engine: engine, validate: validator.New()}
}

// ListTransitions GET /tickets/:id/transitions.
func (h *LifecycleHandler) ListTransitions(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return util.NewUnauthorized("actor required")
	}
	options, err := h.engine.ListAvailableTransitions(c.UserContext(), c.Params("id"), actor.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransitionOptions(options)})
}

// ChangeStatus POST /tickets/:id/transitions.
func (h *LifecycleHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return util.NewUnauthorized("actor required")
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return util.NewValidationError("invalid payload", ValidationDetails(err))
	}

	ticket, err := h.engine.ApplyTransition(c.UserContext(), c.Params("id"), domain.TicketStatus(req.ToStatus), actor, lifecycle.TransitionInput{
		Reason:  req.Reason,
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ValidationDetails flattens validator errors into a details map.
func ValidationDetails(err error) map[string]any {
	details := map[string]any{}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return details
	}
	for _, fieldErr := range fieldErrors {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}
