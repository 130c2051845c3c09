package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resume-polisher/internal/config"
	"alfredoptarigan/resume-polisher/internal/models"
	"alfredoptarigan/resume-polisher/internal/repositories"
)

type fakeTransport struct {
	response string
	err      error
	block    bool

	calls   int
	lastReq CompletionRequest
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.response, f.err
}

type fakeRecordRepo struct {
	records []*models.AnalysisRecord
	err     error
}

func (r *fakeRecordRepo) Insert(record *models.AnalysisRecord) (uint, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.records = append(r.records, record)
	record.ID = uint(len(r.records))
	return record.ID, nil
}

func testAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Model:         "qwen-max",
		DefaultAPIKey: "sk-server",
		Policy:        CredentialPolicyFor(config.ProviderDashScope),
		Timeout:       time.Second,
		Language:      "English",
	}
}

func TestResumeMatchService_Success(t *testing.T) {
	transport := &fakeTransport{response: "```json\n{\"match_score\": 81, \"missing_keywords\": [\"gRPC\"]}\n```"}
	records := &fakeRecordRepo{}
	svc := NewResumeMatchService(transport, NewReconciler(nil), records, nil, NewMetrics(), testAnalysisConfig())

	jd := strings.Repeat("j", 150)
	result, err := svc.Analyze(context.Background(), "resume text", AnalysisParams{
		PromptParams: PromptParams{JobDescription: jd},
		Filename:     "cv.pdf",
	})
	require.NoError(t, err)

	assert.Equal(t, ResumeMatch, svc.Kind())
	assert.Equal(t, 81, result.IntField("match_score"))
	require.NotNil(t, result.RecordID)
	assert.EqualValues(t, 1, *result.RecordID)

	require.Len(t, records.records, 1)
	assert.Equal(t, "cv.pdf", records.records[0].Filename)
	assert.Equal(t, strings.Repeat("j", 100), records.records[0].JobDescriptionSnippet)
	assert.Equal(t, 81, records.records[0].MatchScore)

	assert.Equal(t, "sk-server", transport.lastReq.APIKey)
	assert.Equal(t, "qwen-max", transport.lastReq.Model)
	assert.InDelta(t, 0.2, transport.lastReq.Temperature, 1e-6)
	assert.Equal(t, 3000, transport.lastReq.MaxTokens)
	assert.Contains(t, transport.lastReq.User, "resume text")
}

func TestResumeMatchService_DegradedResponseIsPersisted(t *testing.T) {
	records := &fakeRecordRepo{}
	svc := NewResumeMatchService(&fakeTransport{response: "no json"}, NewReconciler(nil), records, nil, nil, testAnalysisConfig())

	result, err := svc.Analyze(context.Background(), "resume text", AnalysisParams{
		PromptParams: PromptParams{JobDescription: "jd"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDegraded, result.Outcome)
	require.Len(t, records.records, 1)
	assert.Equal(t, 50, records.records[0].MatchScore)
}

func TestAnalysisService_CredentialChecks(t *testing.T) {
	tests := []struct {
		name       string
		defaultKey string
		requestKey string
	}{
		{"missing key", "", ""},
		{"placeholder key", config.DashScopeKeyPlaceholder, ""},
		{"wrong prefix", "", "pk-abc"},
		{"too long", "", "sk-" + strings.Repeat("a", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{response: `{"match_score": 90}`}
			records := &fakeRecordRepo{}
			cfg := testAnalysisConfig()
			cfg.DefaultAPIKey = tt.defaultKey
			svc := NewResumeMatchService(transport, NewReconciler(nil), records, nil, nil, cfg)

			result, err := svc.Analyze(context.Background(), "resume text", AnalysisParams{
				PromptParams: PromptParams{JobDescription: "jd"},
				APIKey:       tt.requestKey,
			})

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			require.NotNil(t, result)
			assert.Zero(t, transport.calls)
			assert.Empty(t, records.records)
		})
	}
}

func TestAnalysisService_RequestKeyOverridesDefault(t *testing.T) {
	transport := &fakeTransport{response: `{"match_score": 90}`}
	svc := NewResumeMatchService(transport, NewReconciler(nil), nil, nil, nil, testAnalysisConfig())

	_, err := svc.Analyze(context.Background(), "resume text", AnalysisParams{
		PromptParams: PromptParams{JobDescription: "jd"},
		APIKey:       "  sk-user  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "sk-user", transport.lastReq.APIKey)
}

func TestAnalysisService_EmptyTextSkipsTransport(t *testing.T) {
	transport := &fakeTransport{}
	svc := NewContractRiskService(transport, NewReconciler(nil), nil, nil, testAnalysisConfig())

	_, err := svc.Analyze(context.Background(), " \n ", AnalysisParams{})
	requireExtractionKind(t, err, NoTextFound)
	assert.Zero(t, transport.calls)
}

func TestAnalysisService_TransportFailure(t *testing.T) {
	transport := &fakeTransport{err: errors.New("connection reset by peer")}
	records := &fakeRecordRepo{}
	svc := NewResumeMatchService(transport, NewReconciler(nil), records, nil, NewMetrics(), testAnalysisConfig())

	result, err := svc.Analyze(context.Background(), "resume text", AnalysisParams{
		PromptParams: PromptParams{JobDescription: "jd"},
	})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "fake", transportErr.Service)

	require.NotNil(t, result)
	assert.Equal(t, OutcomeTransportFailure, result.Outcome)
	assert.Equal(t, 0, result.IntField("match_score"))
	assert.Contains(t, result.StringList("improvement_suggestions")[0], "connection reset by peer")
	assert.Empty(t, records.records)
}

func TestAnalysisService_Timeout(t *testing.T) {
	transport := &fakeTransport{block: true}
	cfg := testAnalysisConfig()
	cfg.Timeout = 20 * time.Millisecond
	svc := NewContractRiskService(transport, NewReconciler(nil), nil, nil, cfg)

	result, err := svc.Analyze(context.Background(), "contract text", AnalysisParams{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, OutcomeTransportFailure, result.Outcome)
}

func TestAnalysisService_PersistenceFailure(t *testing.T) {
	records := &fakeRecordRepo{err: errors.New("connection refused")}
	svc := NewResumeMatchService(&fakeTransport{response: `{"match_score": 70}`}, NewReconciler(nil), records, nil, nil, testAnalysisConfig())

	result, err := svc.Analyze(context.Background(), "resume text", AnalysisParams{
		PromptParams: PromptParams{JobDescription: "jd"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 70, result.IntField("match_score"))
	assert.Nil(t, result.RecordID)
}

func TestContractRiskService(t *testing.T) {
	transport := &fakeTransport{response: `{"contract_summary": {"overall_risk": "low"}, "risks": []}`}
	svc := NewContractRiskService(transport, NewReconciler(nil), nil, nil, testAnalysisConfig())

	result, err := svc.Analyze(context.Background(), "contract text", AnalysisParams{
		PromptParams: PromptParams{ContractType: "service", UserContext: "I am the client"},
	})
	require.NoError(t, err)

	assert.Equal(t, ContractRisk, svc.Kind())
	assert.Equal(t, ContractRiskSchema.Name, result.Schema)
	assert.Nil(t, result.RecordID)
	assert.InDelta(t, 0.3, transport.lastReq.Temperature, 1e-6)
	assert.Equal(t, 4000, transport.lastReq.MaxTokens)
	assert.Contains(t, transport.lastReq.User, "service agreement")
	assert.Contains(t, transport.lastReq.User, "I am the client")
}

func TestCredentialPolicy(t *testing.T) {
	dash := CredentialPolicyFor(config.ProviderDashScope)

	key, err := dash.Validate(" sk-abc ")
	require.NoError(t, err)
	assert.Equal(t, "sk-abc", key)

	for _, bad := range []string{"", "   ", config.DashScopeKeyPlaceholder, "abc", "sk-" + strings.Repeat("x", 198)} {
		_, err := dash.Validate(bad)
		var cfgErr *ConfigError
		assert.ErrorAs(t, err, &cfgErr, bad)
	}

	gemini := CredentialPolicyFor(config.ProviderGemini)
	key, err = gemini.Validate("AIza-key")
	require.NoError(t, err)
	assert.Equal(t, "AIza-key", key)

	_, err = gemini.Validate("")
	assert.Error(t, err)
}

func TestDashScopeTransport(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if gotAuth == "Bearer sk-bad" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided.","type":"invalid_request_error","code":"invalid_api_key"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"qwen-max","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"match_score\": 77}"}}]}`)
	}))
	defer server.Close()

	transport := NewDashScopeTransport(server.URL + "/")
	assert.Equal(t, config.ProviderDashScope, transport.Name())

	out, err := transport.Complete(context.Background(), CompletionRequest{
		System:      "system prompt",
		User:        "user prompt",
		Model:       "qwen-max",
		Temperature: 0.2,
		MaxTokens:   3000,
		APIKey:      "sk-good",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"match_score": 77}`, out)
	assert.Equal(t, "Bearer sk-good", gotAuth)
	assert.Equal(t, "qwen-max", gotBody["model"])
	assert.Len(t, gotBody["messages"], 2)

	_, err = transport.Complete(context.Background(), CompletionRequest{Model: "qwen-max", APIKey: "sk-bad", User: "u"})
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Contains(t, err.Error(), "status 401")
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(context.Context, []byte, MediaType) (string, error) {
	return f.text, f.err
}

func TestDocumentAnalyzer(t *testing.T) {
	clause := "The landlord may keep the whole deposit if the tenant leaves early for any reason."
	extractor := &fakeExtractor{text: "Short line\n" + clause}
	transport := &fakeTransport{response: `{"match_score": 66}`}
	records := &fakeRecordRepo{}
	reconciler := NewReconciler(nil)

	analyzer := NewDocumentAnalyzer(
		extractor,
		NewResumeMatchService(transport, reconciler, records, nil, nil, testAnalysisConfig()),
		NewContractRiskService(transport, reconciler, nil, nil, testAnalysisConfig()),
	)

	doc := Document{Filename: "file.pdf", Data: []byte("%PDF-"), MediaType: MediaPDF}

	t.Run("resume", func(t *testing.T) {
		analysis, err := analyzer.Analyze(context.Background(), ResumeMatch, doc, AnalysisParams{
			PromptParams: PromptParams{JobDescription: "jd"},
		})
		require.NoError(t, err)
		assert.Equal(t, 66, analysis.Result.IntField("match_score"))
		assert.Nil(t, analysis.KeyClauses)
		require.NotEmpty(t, records.records)
		assert.Equal(t, "file.pdf", records.records[len(records.records)-1].Filename)
	})

	t.Run("contract adds key clauses", func(t *testing.T) {
		analysis, err := analyzer.Analyze(context.Background(), ContractRisk, doc, AnalysisParams{})
		require.NoError(t, err)
		assert.Equal(t, []string{clause}, analysis.KeyClauses)
	})

	t.Run("extraction failure stops the pipeline", func(t *testing.T) {
		calls := transport.calls
		failing := NewDocumentAnalyzer(
			&fakeExtractor{err: &ExtractionError{Kind: NoTextFound}},
			NewResumeMatchService(transport, reconciler, records, nil, nil, testAnalysisConfig()),
		)

		analysis, err := failing.Analyze(context.Background(), ResumeMatch, doc, AnalysisParams{})
		requireExtractionKind(t, err, NoTextFound)
		assert.Nil(t, analysis)
		assert.Equal(t, calls, transport.calls)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := analyzer.Analyze(context.Background(), SchemaKind("cover_letter"), doc, AnalysisParams{})
		assert.Error(t, err)
	})
}

type memoryJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.AnalysisJob
}

func newMemoryJobRepo(jobs ...*models.AnalysisJob) *memoryJobRepo {
	r := &memoryJobRepo{jobs: make(map[uuid.UUID]*models.AnalysisJob)}
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	return r
}

func (r *memoryJobRepo) Create(job *models.AnalysisJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *memoryJobRepo) FindByID(id uuid.UUID) (*models.AnalysisJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, repositories.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (r *memoryJobRepo) Claim(id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != models.StatusQueued {
		return false, nil
	}
	job.Status = models.StatusProcessing
	return true, nil
}

func (r *memoryJobRepo) UpdateResult(id uuid.UUID, result string, recordID *uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job := r.jobs[id]
	job.Status = models.StatusCompleted
	job.Result = &result
	job.RecordID = recordID
	return nil
}

func (r *memoryJobRepo) UpdateError(id uuid.UUID, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return repositories.ErrJobNotFound
	}
	job.Status = models.StatusFailed
	job.ErrorMessage = &errorMsg
	return nil
}

func (r *memoryJobRepo) FindPendingJobs(limit int) ([]models.AnalysisJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AnalysisJob
	for _, j := range r.jobs {
		if j.Status == models.StatusQueued && len(out) < limit {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (r *memoryJobRepo) status(id uuid.UUID) models.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id].Status
}

type stubAnalyzer struct {
	mu       sync.Mutex
	analysis *DocumentAnalysis
	err      error
	calls    int
	lastKind SchemaKind
	lastDoc  Document
}

func (s *stubAnalyzer) Analyze(_ context.Context, kind SchemaKind, doc Document, _ AnalysisParams) (*DocumentAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastKind = kind
	s.lastDoc = doc
	return s.analysis, s.err
}

func writeJobFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func queuedJob(kind models.JobKind, path string) *models.AnalysisJob {
	return &models.AnalysisJob{
		ID:        uuid.New(),
		Kind:      kind,
		Filename:  filepath.Base(path),
		FilePath:  path,
		MediaType: string(MediaPDF),
		Status:    models.StatusQueued,
	}
}

func TestJobProcessor_CompletesResumeJob(t *testing.T) {
	job := queuedJob(models.JobResumeMatch, writeJobFile(t, "cv.pdf", []byte("%PDF-1.4")))
	repo := newMemoryJobRepo(job)
	recordID := uint(9)
	analyzer := &stubAnalyzer{analysis: &DocumentAnalysis{Result: &AnalysisResult{
		Schema:   ResumeMatchSchema.Name,
		Outcome:  OutcomeValid,
		Fields:   map[string]any{"match_score": 75},
		RecordID: &recordID,
	}}}

	err := NewJobProcessor(repo, analyzer, NewMetrics()).ProcessJob(context.Background(), job.ID)
	require.NoError(t, err)

	stored := repo.jobs[job.ID]
	assert.Equal(t, models.StatusCompleted, stored.Status)
	require.NotNil(t, stored.Result)
	assert.JSONEq(t, `{"match_score": 75}`, *stored.Result)
	assert.Equal(t, &recordID, stored.RecordID)
	assert.Equal(t, ResumeMatch, analyzer.lastKind)
	assert.Equal(t, []byte("%PDF-1.4"), analyzer.lastDoc.Data)
}

func TestJobProcessor_ContractResultIncludesClauses(t *testing.T) {
	job := queuedJob(models.JobContractRisk, writeJobFile(t, "lease.pdf", []byte("%PDF-1.4")))
	repo := newMemoryJobRepo(job)
	analyzer := &stubAnalyzer{analysis: &DocumentAnalysis{
		Result:     &AnalysisResult{Schema: ContractRiskSchema.Name, Outcome: OutcomeValid, Fields: map[string]any{"risks": []map[string]any{}}},
		KeyClauses: []string{"clause"},
	}}

	require.NoError(t, NewJobProcessor(repo, analyzer, nil).ProcessJob(context.Background(), job.ID))
	assert.JSONEq(t, `{"analysis": {"risks": []}, "key_clauses": ["clause"]}`, *repo.jobs[job.ID].Result)
}

func TestJobProcessor_Failures(t *testing.T) {
	t.Run("analysis error marks job failed", func(t *testing.T) {
		job := queuedJob(models.JobResumeMatch, writeJobFile(t, "cv.pdf", []byte("%PDF-1.4")))
		repo := newMemoryJobRepo(job)
		analyzer := &stubAnalyzer{err: &ExtractionError{Kind: NoTextFound}}

		err := NewJobProcessor(repo, analyzer, nil).ProcessJob(context.Background(), job.ID)
		require.Error(t, err)
		assert.Equal(t, models.StatusFailed, repo.jobs[job.ID].Status)
		assert.Contains(t, *repo.jobs[job.ID].ErrorMessage, "no text content")
	})

	t.Run("missing file marks job failed", func(t *testing.T) {
		job := queuedJob(models.JobResumeMatch, filepath.Join(t.TempDir(), "gone.pdf"))
		repo := newMemoryJobRepo(job)
		analyzer := &stubAnalyzer{}

		err := NewJobProcessor(repo, analyzer, nil).ProcessJob(context.Background(), job.ID)
		require.Error(t, err)
		assert.Equal(t, models.StatusFailed, repo.jobs[job.ID].Status)
		assert.Zero(t, analyzer.calls)
	})

	t.Run("already claimed job is skipped", func(t *testing.T) {
		job := queuedJob(models.JobResumeMatch, writeJobFile(t, "cv.pdf", []byte("%PDF-1.4")))
		job.Status = models.StatusProcessing
		repo := newMemoryJobRepo(job)
		analyzer := &stubAnalyzer{}

		require.NoError(t, NewJobProcessor(repo, analyzer, nil).ProcessJob(context.Background(), job.ID))
		assert.Zero(t, analyzer.calls)
		assert.Equal(t, models.StatusProcessing, repo.jobs[job.ID].Status)
	})
}

func TestWorker_ProcessesEnqueuedAndPendingJobs(t *testing.T) {
	enqueued := queuedJob(models.JobResumeMatch, writeJobFile(t, "a.pdf", []byte("%PDF-1.4")))
	pending := queuedJob(models.JobResumeMatch, writeJobFile(t, "b.pdf", []byte("%PDF-1.4")))
	repo := newMemoryJobRepo(enqueued, pending)
	analyzer := &stubAnalyzer{analysis: &DocumentAnalysis{Result: &AnalysisResult{
		Schema:  ResumeMatchSchema.Name,
		Outcome: OutcomeValid,
		Fields:  map[string]any{"match_score": 1},
	}}}

	w := NewWorker(repo, NewJobProcessor(repo, analyzer, nil), WorkerOptions{
		Concurrency:  2,
		QueueSize:    4,
		PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	w.EnqueueJob(enqueued.ID)

	require.Eventually(t, func() bool {
		return repo.status(enqueued.ID) == models.StatusCompleted &&
			repo.status(pending.ID) == models.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	w.Stop()
	w.Stop()

	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	assert.Equal(t, 2, analyzer.calls)
}

func TestWorker_EnqueueDoesNotBlock(t *testing.T) {
	repo := newMemoryJobRepo()
	w := NewWorker(repo, NewJobProcessor(repo, &stubAnalyzer{}, nil), WorkerOptions{QueueSize: 1})

	done := make(chan struct{})
	go func() {
		w.EnqueueJob(uuid.New())
		w.EnqueueJob(uuid.New())
		w.EnqueueJob(uuid.New())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("EnqueueJob blocked on a full queue")
	}
}
