package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-polisher/internal/models"
	"alfredoptarigan/resume-polisher/internal/services"
)

type OCRStatusHandler struct {
	ocr services.OCRChain
}

func NewOCRStatusHandler(ocr services.OCRChain) *OCRStatusHandler {
	return &OCRStatusHandler{ocr: ocr}
}

// HandleOCRStatus handles GET /ocr-status
func (h *OCRStatusHandler) HandleOCRStatus(c *fiber.Ctx) error {
	available := h.ocr.ListAvailableServices()
	if available == nil {
		available = []string{}
	}

	return c.JSON(models.OCRStatusResponse{
		AvailableServices: available,
		CloudOCRAvailable: h.ocr.IsCloudAvailable(),
		TotalServices:     len(available),
	})
}
