package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/medianote/api/internal/model"
	"github.com/medianote/api/internal/service"
	"github.com/medianote/api/internal/store"
	"github.com/medianote/api/pkg/response"
)

type ProviderHandler struct {
	service   *service.ProviderService
	validator *validator.Validate
}

func NewProviderHandler(svc *service.ProviderService, v *validator.Validate) *ProviderHandler {
	return &ProviderHandler{
		service:   svc,
		validator: v,
	}
}

// List handles GET /api/providers. API keys are always masked on the way out.
func (h *ProviderHandler) List(c *fiber.Ctx) error {
	providers, err := h.service.ListAllMasked(c.Context())
	if err != nil {
		return response.ServiceError(c, "Failed to list providers")
	}
	return response.OK(c, providers)
}

// Get handles GET /api/providers/:id
func (h *ProviderHandler) Get(c *fiber.Ctx) error {
	provider, err := h.service.GetMasked(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Provider not found")
		}
		return response.ServiceError(c, "Failed to get provider")
	}
	return response.OK(c, provider)
}

// Create handles POST /api/providers
func (h *ProviderHandler) Create(c *fiber.Ctx) error {
	var req model.ProviderCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	id, err := h.service.Add(c.Context(), &req)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return response.Conflict(c, "Provider already exists")
		}
		return response.ServiceError(c, "Failed to create provider")
	}

	return response.Created(c, fiber.Map{"id": id})
}

// Update handles PUT /api/providers/:id. Absent fields keep their stored
// values.
func (h *ProviderHandler) Update(c *fiber.Ctx) error {
	var req model.ProviderUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.service.Update(c.Context(), c.Params("id"), &req); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Provider not found")
		}
		return response.ServiceError(c, "Failed to update provider")
	}

	return response.OK(c, fiber.Map{"updated": true})
}

// Delete handles DELETE /api/providers/:id. Models under the provider go
// with it.
func (h *ProviderHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Provider not found")
		}
		return response.ServiceError(c, "Failed to delete provider")
	}
	return response.OK(c, fiber.Map{"deleted": true})
}

// CreateModel handles POST /api/providers/:id/models
func (h *ProviderHandler) CreateModel(c *fiber.Ctx) error {
	var req model.ModelCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	req.ProviderID = c.Params("id")

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	m, err := h.service.AddModel(c.Context(), &req)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return response.Conflict(c, "Model already registered for this provider")
		}
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Provider not found")
		}
		return response.ServiceError(c, "Failed to create model")
	}

	return response.Created(c, m)
}

// ListModels handles GET /api/providers/:id/models
func (h *ProviderHandler) ListModels(c *fiber.Ctx) error {
	models, err := h.service.ListModels(c.Context(), c.Params("id"))
	if err != nil {
		return response.ServiceError(c, "Failed to list models")
	}
	return response.OK(c, models)
}

// DeleteModel handles DELETE /api/models/:id
func (h *ProviderHandler) DeleteModel(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return response.ValidationError(c, "Invalid model id", nil)
	}

	if err := h.service.DeleteModel(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Model not found")
		}
		return response.ServiceError(c, "Failed to delete model")
	}
	return response.OK(c, fiber.Map{"deleted": true})
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
