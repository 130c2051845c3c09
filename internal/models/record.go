package models

import "time"

// AnalysisRecord is appended once per resume analysis. Rows are never updated
// or deleted.
type AnalysisRecord struct {
	ID                    uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Filename              string    `gorm:"type:text;not null" json:"filename"`
	JobDescriptionSnippet string    `gorm:"type:varchar(100)" json:"job_description_snippet"`
	MatchScore            int       `gorm:"not null" json:"match_score"`
	CreatedAt             time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AnalysisRecord) TableName() string {
	return "analysis_records"
}
