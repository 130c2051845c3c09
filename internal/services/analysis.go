package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"alfredoptarigan/resume-polisher/internal/models"
	"alfredoptarigan/resume-polisher/internal/repositories"
)

const jobDescriptionSnippetLength = 100

type AnalysisParams struct {
	PromptParams
	// Filename is stored with the analysis record.
	Filename string
	// APIKey overrides the process-wide credential for this request.
	APIKey string
}

// AnalysisService runs one kind of LLM analysis over extracted text. The
// returned result is never nil. A non-nil error alongside a result means the
// result is a fallback (transport failure) or was not persisted.
type AnalysisService interface {
	Kind() SchemaKind
	Analyze(ctx context.Context, text string, params AnalysisParams) (*AnalysisResult, error)
}

type AnalysisConfig struct {
	Model         string
	DefaultAPIKey string
	Policy        CredentialPolicy
	Timeout       time.Duration
	Language      string
}

type analysisService struct {
	kind        SchemaKind
	schema      *AnalysisSchema
	temperature float32
	maxTokens   int

	cfg           AnalysisConfig
	promptBuilder *PromptBuilder
	transport     LLMTransport
	reconciler    *Reconciler
	records       repositories.RecordRepository
	breakers      *BreakerSet
	metrics       *Metrics
}

// NewResumeMatchService persists an AnalysisRecord for every result that was
// produced from an LLM response. records may be nil.
func NewResumeMatchService(
	transport LLMTransport,
	reconciler *Reconciler,
	records repositories.RecordRepository,
	breakers *BreakerSet,
	metrics *Metrics,
	cfg AnalysisConfig,
) AnalysisService {
	return &analysisService{
		kind:          ResumeMatch,
		schema:        ResumeMatchSchema,
		temperature:   0.2,
		maxTokens:     3000,
		cfg:           cfg,
		promptBuilder: NewPromptBuilder(),
		transport:     transport,
		reconciler:    reconciler,
		records:       records,
		breakers:      breakers,
		metrics:       metrics,
	}
}

func NewContractRiskService(
	transport LLMTransport,
	reconciler *Reconciler,
	breakers *BreakerSet,
	metrics *Metrics,
	cfg AnalysisConfig,
) AnalysisService {
	return &analysisService{
		kind:          ContractRisk,
		schema:        ContractRiskSchema,
		temperature:   0.3,
		maxTokens:     4000,
		cfg:           cfg,
		promptBuilder: NewPromptBuilder(),
		transport:     transport,
		reconciler:    reconciler,
		breakers:      breakers,
		metrics:       metrics,
	}
}

func (s *analysisService) Kind() SchemaKind {
	return s.kind
}

func (s *analysisService) Analyze(ctx context.Context, text string, params AnalysisParams) (*AnalysisResult, error) {
	if _, err := RequireText(text); err != nil {
		return s.schema.failedResult(err), err
	}

	key := params.APIKey
	if key == "" {
		key = s.cfg.DefaultAPIKey
	}
	key, err := s.cfg.Policy.Validate(key)
	if err != nil {
		return s.schema.failedResult(err), err
	}

	if params.Language == "" {
		params.Language = s.cfg.Language
	}
	prompt, err := s.promptBuilder.Build(s.kind, text, params.PromptParams)
	if err != nil {
		return s.schema.failedResult(err), err
	}

	log.Printf("🤖 Running %s analysis with %s (%d characters)\n", s.kind, s.cfg.Model, len(text))

	raw, err := s.complete(ctx, CompletionRequest{
		System:      prompt.System,
		User:        prompt.User,
		Model:       s.cfg.Model,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		APIKey:      key,
	})
	if err != nil {
		log.Printf("❌ %s analysis failed: %v\n", s.kind, err)
		return s.reconciler.TransportFailure(s.schema, err), err
	}

	if raw == "" {
		log.Printf("⚠️ Empty response received from %s\n", s.transport.Name())
	}

	result := s.reconciler.Reconcile(raw, s.schema)

	if s.kind == ResumeMatch && s.records != nil {
		if err := s.persist(result, params); err != nil {
			return result, err
		}
	}

	log.Printf("✅ %s analysis completed (%s)\n", s.kind, result.Outcome)
	return result, nil
}

func (s *analysisService) complete(ctx context.Context, req CompletionRequest) (string, error) {
	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.breakers.Execute("llm."+s.transport.Name(), func() (string, error) {
		return s.transport.Complete(callCtx, req)
	})
	s.metrics.ObserveLLM(string(s.kind), time.Since(start), err)

	if err != nil {
		var transportErr *TransportError
		if !errors.As(err, &transportErr) {
			err = &TransportError{Service: s.transport.Name(), Err: err}
		}
		return "", err
	}

	return raw, nil
}

func (s *analysisService) persist(result *AnalysisResult, params AnalysisParams) error {
	record := &models.AnalysisRecord{
		Filename:              params.Filename,
		JobDescriptionSnippet: truncateRunes(params.JobDescription, jobDescriptionSnippetLength),
		MatchScore:            result.IntField("match_score"),
	}

	id, err := s.records.Insert(record)
	if err != nil {
		return fmt.Errorf("failed to persist analysis record: %w", err)
	}

	result.RecordID = &id
	log.Printf("💾 Saved analysis record %d\n", id)
	return nil
}

// failedResult is the schema's transport-failure payload for errors raised
// before the LLM was called.
func (s *AnalysisSchema) failedResult(err error) *AnalysisResult {
	return &AnalysisResult{
		Schema:  s.Name,
		Outcome: OutcomeTransportFailure,
		Fields:  s.TransportFailurePayload(err.Error()),
		Error:   err.Error(),
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
