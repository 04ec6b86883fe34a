package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-lifecycle/internal/api/dto"
	"github.com/spec-kit/ticket-lifecycle/internal/auth"
	"github.com/spec-kit/ticket-lifecycle/internal/sla"
	"github.com/spec-kit/ticket-lifecycle/pkg/util"
)

// SLAHandler exposes the SLA timer commands.
type SLAHandler struct {
	service  *sla.Service
	validate *validator.Validate
}

// NewSLAHandler constructs handler.
func NewSLAHandler(service *sla.Service) *SLAHandler {
	return &SLAHandler{service: service, validate: validator.New()}
}

// GetStatus GET /tickets/:id/sla.
func (h *SLAHandler) GetStatus(c *fiber.Ctx) error {
	if _, ok := auth.ActorFromContext(c); !ok {
		return util.NewUnauthorized("actor required")
	}
	snapshot, err := h.service.GetStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAStatusResponse(snapshot)})
}

// Pause POST /tickets/:id/sla/pause.
func (h *SLAHandler) Pause(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return util.NewUnauthorized("actor required")
	}
	var req dto.PauseSLARequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return util.NewValidationError("invalid payload", ValidationDetails(err))
	}

	state, err := h.service.Pause(c.UserContext(), c.Params("id"), actor, req.Reason, req.ResumeAt)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": dto.NewSLAStateResponse(state)})
}

// Resume POST /tickets/:id/sla/resume.
func (h *SLAHandler) Resume(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return util.NewUnauthorized("actor required")
	}
	state, err := h.service.Resume(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": dto.NewSLAStateResponse(state)})
}
