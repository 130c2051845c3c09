package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-polisher/internal/models"
	"alfredoptarigan/resume-polisher/internal/repositories"
	"alfredoptarigan/resume-polisher/internal/services"
)

type JobHandler struct {
	jobRepo        repositories.JobRepository
	storageService services.StorageService
	worker         services.Worker
	maxFileSize    int64
}

func NewJobHandler(
	jobRepo repositories.JobRepository,
	storageService services.StorageService,
	worker services.Worker,
	maxFileSize int64,
) *JobHandler {
	return &JobHandler{
		jobRepo:        jobRepo,
		storageService: storageService,
		worker:         worker,
		maxFileSize:    maxFileSize,
	}
}

// HandleCreateJob handles POST /jobs
func (h *JobHandler) HandleCreateJob(c *fiber.Ctx) error {
	kind := models.JobKind(c.FormValue("kind"))

	job := &models.AnalysisJob{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    models.StatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	var rule uploadRule
	switch kind {
	case models.JobResumeMatch:
		rule = resumeUpload
		jd, err := formText(c, "jd_text", true)
		if err != nil {
			return respondError(c, err, nil)
		}
		job.JobDescription = jd
	case models.JobContractRisk:
		rule = contractUpload
		userContext, err := formText(c, "context", false)
		if err != nil {
			return respondError(c, err, nil)
		}
		job.UserContext = userContext
		job.ContractType = c.FormValue("contract_type", defaultContractType)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("kind must be %q or %q", models.JobResumeMatch, models.JobContractRisk),
		})
	}

	doc, err := readUpload(c, rule, h.maxFileSize)
	if err != nil {
		return respondError(c, err, nil)
	}

	storedName, filePath, err := h.storageService.SaveFile(string(kind), doc.Filename, doc.Data)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save uploaded file: %v", err),
		})
	}

	job.Filename = doc.Filename
	job.FilePath = filePath
	job.MediaType = string(doc.MediaType)

	if err := h.jobRepo.Create(job); err != nil {
		// Cleanup uploaded file if database insert fails
		h.storageService.DeleteFile(storedName)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create analysis job",
		})
	}

	h.worker.EnqueueJob(job.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.CreateJobResponse{
		ID:     job.ID.String(),
		Status: string(models.StatusQueued),
	})
}

// HandleGetJob handles GET /jobs/:id
func (h *JobHandler) HandleGetJob(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job ID format",
		})
	}

	job, err := h.jobRepo.FindByID(jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Job not found",
			})
		}
		return respondError(c, err, nil)
	}

	response := models.JobResultResponse{
		ID:         job.ID.String(),
		Kind:       string(job.Kind),
		Filename:   job.Filename,
		Status:     string(job.Status),
		DBRecordID: job.RecordID,
	}

	if job.Status == models.StatusCompleted && job.Result != nil {
		response.Result = json.RawMessage(*job.Result)
	}

	if job.Status == models.StatusFailed && job.ErrorMessage != nil {
		response.ErrorMessage = job.ErrorMessage
	}

	return c.JSON(response)
}
