package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/medianote/api/internal/model"
	"github.com/medianote/api/internal/service"
	"github.com/medianote/api/pkg/response"
)

type NoteHandler struct {
	service   *service.NoteService
	validator *validator.Validate
}

func NewNoteHandler(svc *service.NoteService, v *validator.Validate) *NoteHandler {
	return &NoteHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/notes/generate. Resubmitting the same video
// returns the existing task token.
func (h *NoteHandler) Generate(c *fiber.Ctx) error {
	var req model.NoteGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Generate(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrVideoUnresolved) {
			return response.ValidationError(c, "Could not resolve a video id from the URL", nil)
		}
		return response.ServiceError(c, "Failed to start note generation")
	}

	return response.OK(c, result)
}

// Status handles GET /api/notes/:taskId/status
func (h *NoteHandler) Status(c *fiber.Ctx) error {
	status, err := h.service.GetStatus(c.Context(), c.Params("taskId"))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return response.NotFound(c, "Task not found")
		}
		return response.ServiceError(c, "Failed to get task status")
	}
	return response.OK(c, status)
}

// Result handles GET /api/notes/:taskId. Only a succeeded task has a result.
func (h *NoteHandler) Result(c *fiber.Ctx) error {
	result, err := h.service.GetResult(c.Context(), c.Params("taskId"))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return response.NotFound(c, "Task not found")
		}
		if errors.Is(err, service.ErrJobNotFinished) {
			return response.ValidationError(c, "Task has not completed yet", nil)
		}
		return response.ServiceError(c, "Failed to get note result")
	}
	return response.OK(c, result)
}
