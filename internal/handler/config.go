package handler

import (
	"os/exec"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/medianote/api/internal/client"
	"github.com/medianote/api/internal/model"
	"github.com/medianote/api/internal/store"
	"github.com/medianote/api/pkg/response"
)

// ConfigHandler serves downloader credentials and environment health.
type ConfigHandler struct {
	store     *store.Store
	renderer  client.DocumentRenderer
	validator *validator.Validate
	ytdlpBin  string
	ffmpegBin string
}

func NewConfigHandler(st *store.Store, renderer client.DocumentRenderer, v *validator.Validate, ytdlpBin, ffmpegBin string) *ConfigHandler {
	return &ConfigHandler{
		store:     st,
		renderer:  renderer,
		validator: v,
		ytdlpBin:  ytdlpBin,
		ffmpegBin: ffmpegBin,
	}
}

// GetCookie handles GET /api/config/cookies/:platform
func (h *ConfigHandler) GetCookie(c *fiber.Ctx) error {
	platform := c.Params("platform")
	if !model.Platform(platform).Valid() {
		return response.ValidationError(c, "Unknown platform", nil)
	}

	cookie, ok, err := h.store.GetConfig(c.Context(), platform)
	if err != nil {
		return response.ServiceError(c, "Failed to read cookie")
	}
	if !ok {
		return response.OK(c, fiber.Map{"platform": platform, "cookie": ""})
	}
	return response.OK(c, fiber.Map{"platform": platform, "cookie": cookie})
}

// SetCookie handles PUT /api/config/cookies
func (h *ConfigHandler) SetCookie(c *fiber.Ctx) error {
	var req model.CookieUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.store.SetConfig(c.Context(), req.Platform, req.Cookie); err != nil {
		return response.ServiceError(c, "Failed to store cookie")
	}
	return response.OK(c, fiber.Map{"updated": true})
}

// SystemHealth handles GET /api/config/health. Reports the availability of
// the external tools the pipeline shells out to.
func (h *ConfigHandler) SystemHealth(c *fiber.Ctx) error {
	checks := fiber.Map{
		"ytdlp":  binaryAvailable(h.ytdlpBin),
		"ffmpeg": binaryAvailable(h.ffmpegBin),
		"render": h.renderer.HealthCheck(c.Context()) == nil,
	}
	return response.OK(c, checks)
}

func binaryAvailable(bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}
