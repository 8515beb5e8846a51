package response

import "github.com/gofiber/fiber/v2"

// ErrorResponse is the envelope returned for every failed request
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the machine-readable error code and message
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// OK sends a 200 response with the given payload
func OK(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(data)
}

// Created sends a 201 response with the given payload
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

// ValidationError sends a 400 response for malformed or invalid input
func ValidationError(c *fiber.Ctx, message string, details interface{}) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: ErrorBody{
			Code:    "VALIDATION_ERROR",
			Message: message,
			Details: details,
		},
	})
}

// Unauthorized sends a 401 response
func Unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error: ErrorBody{
			Code:    "UNAUTHORIZED",
			Message: message,
		},
	})
}

// NotFound sends a 404 response
func NotFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
		Error: ErrorBody{
			Code:    "NOT_FOUND",
			Message: message,
		},
	})
}

// Conflict sends a 409 response for duplicate records
func Conflict(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
		Error: ErrorBody{
			Code:    "CONFLICT",
			Message: message,
		},
	})
}

// RateLimited sends a 429 response
func RateLimited(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
		Error: ErrorBody{
			Code:    "RATE_LIMITED",
			Message: "Too many requests, please try again later",
		},
	})
}

// ServiceError sends a 500 response for downstream or internal failures
func ServiceError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: ErrorBody{
			Code:    "SERVICE_ERROR",
			Message: message,
		},
	})
}
