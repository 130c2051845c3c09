package repositories

import (
	"fmt"

	"gorm.io/gorm"

	"alfredoptarigan/resume-polisher/internal/models"
)

// RecordRepository is append-only.
type RecordRepository interface {
	Insert(record *models.AnalysisRecord) (uint, error)
}

type recordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) Insert(record *models.AnalysisRecord) (uint, error) {
	if err := r.db.Create(record).Error; err != nil {
		return 0, fmt.Errorf("failed to insert analysis record: %w", err)
	}
	return record.ID, nil
}
