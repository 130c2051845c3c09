package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-polisher/internal/services"
)

// StatusFor maps pipeline errors to HTTP status codes.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	var extractionErr *services.ExtractionError
	var configErr *services.ConfigError
	var transportErr *services.TransportError

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &extractionErr), errors.As(err, &configErr):
		return fiber.StatusBadRequest
	case errors.As(err, &transportErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the error body. A fallback analysis is included for
// upstream failures so clients can still render a result.
func respondError(c *fiber.Ctx, err error, fallback *services.AnalysisResult) error {
	status := StatusFor(err)
	body := fiber.Map{"error": err.Error()}

	if status == fiber.StatusBadGateway && fallback != nil {
		body["analysis"] = fallback
	}
	if status >= fiber.StatusInternalServerError {
		log.Printf("❌ %s %s failed: %v\n", c.Method(), c.Path(), err)
	}

	return c.Status(status).JSON(body)
}
