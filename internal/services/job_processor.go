package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"alfredoptarigan/resume-polisher/internal/repositories"
)

type JobProcessor interface {
	ProcessJob(ctx context.Context, jobID uuid.UUID) error
}

type jobProcessor struct {
	jobRepo  repositories.JobRepository
	analyzer DocumentAnalyzer
	metrics  *Metrics
}

func NewJobProcessor(jobRepo repositories.JobRepository, analyzer DocumentAnalyzer, metrics *Metrics) JobProcessor {
	return &jobProcessor{
		jobRepo:  jobRepo,
		analyzer: analyzer,
		metrics:  metrics,
	}
}

func (p *jobProcessor) ProcessJob(ctx context.Context, jobID uuid.UUID) (err error) {
	claimed, err := p.jobRepo.Claim(jobID)
	if err != nil {
		return fmt.Errorf("failed to claim job: %w", err)
	}
	if !claimed {
		log.Printf("⏭️  Job %s already claimed\n", jobID)
		return nil
	}

	job, err := p.jobRepo.FindByID(jobID)
	if err != nil {
		p.fail(jobID, err.Error())
		return fmt.Errorf("failed to get job: %w", err)
	}

	p.metrics.StartJob()
	defer func() { p.metrics.FinishJob(string(job.Kind), err) }()

	log.Printf("🔄 Starting %s analysis for job %s\n", job.Kind, jobID)

	data, err := os.ReadFile(job.FilePath)
	if err != nil {
		p.fail(jobID, fmt.Sprintf("Failed to read uploaded file: %v", err))
		return fmt.Errorf("failed to read job file: %w", err)
	}

	doc := Document{
		Filename:  job.Filename,
		Data:      data,
		MediaType: MediaType(job.MediaType),
	}
	params := AnalysisParams{
		PromptParams: PromptParams{
			JobDescription: job.JobDescription,
			ContractType:   job.ContractType,
			UserContext:    job.UserContext,
		},
		Filename: job.Filename,
	}

	analysis, err := p.analyzer.Analyze(ctx, SchemaKind(job.Kind), doc, params)
	if err != nil {
		p.fail(jobID, err.Error())
		return fmt.Errorf("failed to analyze document: %w", err)
	}

	payload, err := json.Marshal(jobResult(analysis))
	if err != nil {
		p.fail(jobID, err.Error())
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if err := p.jobRepo.UpdateResult(jobID, string(payload), analysis.Result.RecordID); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	log.Printf("✅ Job %s completed (%s)\n", jobID, analysis.Result.Outcome)
	return nil
}

func (p *jobProcessor) fail(jobID uuid.UUID, msg string) {
	if err := p.jobRepo.UpdateError(jobID, msg); err != nil {
		log.Printf("⚠️  Failed to record error for job %s: %v\n", jobID, err)
	}
}

func jobResult(a *DocumentAnalysis) any {
	if a.KeyClauses == nil {
		return a.Result
	}
	return struct {
		Analysis   *AnalysisResult `json:"analysis"`
		KeyClauses []string        `json:"key_clauses"`
	}{a.Result, a.KeyClauses}
}
