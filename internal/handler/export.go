package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/medianote/api/internal/export"
	"github.com/medianote/api/internal/model"
	"github.com/medianote/api/internal/service"
	"github.com/medianote/api/pkg/response"
)

type ExportHandler struct {
	service   *service.ExportService
	validator *validator.Validate
}

func NewExportHandler(svc *service.ExportService, v *validator.Validate) *ExportHandler {
	return &ExportHandler{
		service:   svc,
		validator: v,
	}
}

// Export handles POST /api/export
func (h *ExportHandler) Export(c *fiber.Ctx) error {
	var req model.ExportRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Export(c.Context(), &req)
	if err != nil {
		var unsupported *export.UnsupportedFormatError
		if errors.As(err, &unsupported) {
			return response.ValidationError(c, unsupported.Error(), nil)
		}
		return response.ServiceError(c, "Export failed")
	}

	return response.OK(c, result)
}
