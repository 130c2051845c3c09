package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/resume-polisher/internal/models"
)

var ErrJobNotFound = errors.New("job not found")

type JobRepository interface {
	Create(job *models.AnalysisJob) error
	FindByID(id uuid.UUID) (*models.AnalysisJob, error)
	// Claim moves a queued job to processing. It returns false when the job
	// was already claimed by another worker.
	Claim(id uuid.UUID) (bool, error)
	UpdateResult(id uuid.UUID, result string, recordID *uint) error
	UpdateError(id uuid.UUID, errorMsg string) error
	FindPendingJobs(limit int) ([]models.AnalysisJob, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(job *models.AnalysisJob) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *jobRepository) FindByID(id uuid.UUID) (*models.AnalysisJob, error) {
	var job models.AnalysisJob
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return &job, nil
}

func (r *jobRepository) Claim(id uuid.UUID) (bool, error) {
	result := r.db.Model(&models.AnalysisJob{}).
		Where("id = ? AND status = ?", id, models.StatusQueued).
		Updates(map[string]interface{}{
			"status":     models.StatusProcessing,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to claim job: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *jobRepository) UpdateResult(id uuid.UUID, resultJSON string, recordID *uint) error {
	updates := map[string]interface{}{
		"status":     models.StatusCompleted,
		"result":     resultJSON,
		"updated_at": time.Now(),
	}
	if recordID != nil {
		updates["record_id"] = *recordID
	}

	result := r.db.Model(&models.AnalysisJob{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update result: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}

	return nil
}

func (r *jobRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	result := r.db.Model(&models.AnalysisJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": errorMsg,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update error: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}

	return nil
}

func (r *jobRepository) FindPendingJobs(limit int) ([]models.AnalysisJob, error) {
	var jobs []models.AnalysisJob
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}

	return jobs, nil
}
