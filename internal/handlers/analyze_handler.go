package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-polisher/internal/models"
	"alfredoptarigan/resume-polisher/internal/services"
)

const defaultContractType = "other"

type AnalyzeHandler struct {
	analyzer    services.DocumentAnalyzer
	maxFileSize int64
}

func NewAnalyzeHandler(analyzer services.DocumentAnalyzer, maxFileSize int64) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer:    analyzer,
		maxFileSize: maxFileSize,
	}
}

// HandleAnalyzeResume handles POST /analyze
func (h *AnalyzeHandler) HandleAnalyzeResume(c *fiber.Ctx) error {
	doc, err := readUpload(c, resumeUpload, h.maxFileSize)
	if err != nil {
		return respondError(c, err, nil)
	}

	jd, err := formText(c, "jd_text", true)
	if err != nil {
		return respondError(c, err, nil)
	}

	params := services.AnalysisParams{
		PromptParams: services.PromptParams{JobDescription: jd},
		Filename:     doc.Filename,
		APIKey:       strings.TrimSpace(c.FormValue("api_key")),
	}

	analysis, err := h.analyzer.Analyze(c.UserContext(), services.ResumeMatch, doc, params)
	if err != nil {
		return respondError(c, err, fallbackOf(analysis))
	}

	return c.JSON(models.AnalyzeResumeResponse{
		Filename:   doc.Filename,
		Analysis:   analysis.Result,
		DBRecordID: analysis.Result.RecordID,
	})
}

// HandleAnalyzeContract handles POST /analyze-contract
func (h *AnalyzeHandler) HandleAnalyzeContract(c *fiber.Ctx) error {
	doc, err := readUpload(c, contractUpload, h.maxFileSize)
	if err != nil {
		return respondError(c, err, nil)
	}

	contractType := strings.TrimSpace(c.FormValue("contract_type"))
	if contractType == "" {
		contractType = defaultContractType
	}

	userContext, err := formText(c, "context", false)
	if err != nil {
		return respondError(c, err, nil)
	}

	params := services.AnalysisParams{
		PromptParams: services.PromptParams{
			ContractType: contractType,
			UserContext:  userContext,
		},
		Filename: doc.Filename,
		APIKey:   strings.TrimSpace(c.FormValue("api_key")),
	}

	analysis, err := h.analyzer.Analyze(c.UserContext(), services.ContractRisk, doc, params)
	if err != nil {
		return respondError(c, err, fallbackOf(analysis))
	}

	return c.JSON(models.AnalyzeContractResponse{
		Filename:     doc.Filename,
		ContractType: contractType,
		Analysis:     analysis.Result,
		KeyClauses:   analysis.KeyClauses,
	})
}

func fallbackOf(analysis *services.DocumentAnalysis) *services.AnalysisResult {
	if analysis == nil {
		return nil
	}
	return analysis.Result
}
