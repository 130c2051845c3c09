package models

import "encoding/json"

type AnalyzeResumeResponse struct {
	Filename   string `json:"filename"`
	Analysis   any    `json:"analysis"`
	DBRecordID *uint  `json:"db_record_id"`
}

type AnalyzeContractResponse struct {
	Filename     string   `json:"filename"`
	ContractType string   `json:"contract_type"`
	Analysis     any      `json:"analysis"`
	KeyClauses   []string `json:"key_clauses"`
}

type OCRStatusResponse struct {
	AvailableServices []string `json:"available_services"`
	CloudOCRAvailable bool     `json:"cloud_ocr_available"`
	TotalServices     int      `json:"total_services"`
}

type CreateJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type JobResultResponse struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	Filename     string          `json:"filename"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result,omitempty"`
	DBRecordID   *uint           `json:"db_record_id,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}
