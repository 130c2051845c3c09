package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

type JobKind string

const (
	JobResumeMatch  JobKind = "resume_match"
	JobContractRisk JobKind = "contract_risk"
)

// AnalysisJob is an analysis processed asynchronously by the worker pool.
// Jobs always use the process-wide LLM credential.
type AnalysisJob struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Kind           JobKind   `gorm:"type:text;not null" json:"kind"`
	Filename       string    `gorm:"type:text;not null" json:"filename"`
	FilePath       string    `gorm:"type:text;not null" json:"-"`
	MediaType      string    `gorm:"type:text;not null" json:"media_type"`
	JobDescription string    `gorm:"type:text" json:"-"`
	ContractType   string    `gorm:"type:text" json:"contract_type,omitempty"`
	UserContext    string    `gorm:"type:text" json:"-"`
	Status         JobStatus `gorm:"not null;default:'queued'" json:"status"`
	Result         *string   `gorm:"type:text" json:"-"`
	RecordID       *uint     `json:"db_record_id,omitempty"`
	ErrorMessage   *string   `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AnalysisJob) TableName() string {
	return "analysis_jobs"
}
