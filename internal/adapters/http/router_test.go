package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/antonvlasov/metapilot/internal/core/domain"
	"github.com/antonvlasov/metapilot/internal/core/match"
	"github.com/antonvlasov/metapilot/internal/core/usecase"
	"github.com/antonvlasov/metapilot/internal/infrastructure/templatecache"
	"github.com/antonvlasov/metapilot/internal/observability/metrics"
)

type sourceFake struct {
	templates []domain.Template
	err       error
}

func (f *sourceFake) ListTemplates(context.Context, string) ([]domain.Template, error) {
	return f.templates, f.err
}

type classifierFake struct {
	result domain.Classification
	err    error
}

func (f *classifierFake) ClassifyFile(context.Context, string) (domain.Classification, error) {
	return f.result, f.err
}

type storeFake struct {
	runs     map[string]*domain.BatchRun
	outcomes map[string][]domain.ApplyOutcome
}

func newStoreFake() *storeFake {
	return &storeFake{
		runs:     map[string]*domain.BatchRun{},
		outcomes: map[string][]domain.ApplyOutcome{},
	}
}

func (s *storeFake) CreateRun(_ context.Context, run *domain.BatchRun) error {
	s.runs[run.ID] = run
	return nil
}

func (s *storeFake) GetRun(_ context.Context, id string) (*domain.BatchRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get run", errors.New(id))
	}
	return run, nil
}

func (s *storeFake) UpdateRunStatus(_ context.Context, id string, status domain.RunStatus, errMessage string) error {
	run, ok := s.runs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update run status", errors.New(id))
	}
	run.Status = status
	run.Error = errMessage
	return nil
}

func (s *storeFake) RequestCancel(_ context.Context, id string) error {
	run, ok := s.runs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "request cancel", errors.New(id))
	}
	run.CancelRequested = true
	return nil
}

func (s *storeFake) CancelRequested(_ context.Context, id string) (bool, error) {
	run, ok := s.runs[id]
	if !ok {
		return false, domain.WrapError(domain.ErrNotFound, "cancel requested", errors.New(id))
	}
	return run.CancelRequested, nil
}

func (s *storeFake) SaveOutcome(_ context.Context, runID string, outcome domain.ApplyOutcome) error {
	s.outcomes[runID] = append(s.outcomes[runID], outcome)
	return nil
}

func (s *storeFake) ListOutcomes(_ context.Context, runID string) ([]domain.ApplyOutcome, error) {
	return s.outcomes[runID], nil
}

type queueFake struct {
	published []string
}

func (f *queueFake) PublishBatchQueued(_ context.Context, runID string) error {
	f.published = append(f.published, runID)
	return nil
}

func (f *queueFake) SubscribeBatchQueued(context.Context, func(context.Context, string) error) error {
	return nil
}

func newTestRouter(t *testing.T, source *sourceFake, classifier *classifierFake, store *storeFake) (*Router, *queueFake) {
	t.Helper()
	cache := templatecache.New()
	if source.err == nil {
		cache.Replace(source.templates)
	}
	queue := &queueFake{}
	return NewRouter(
		usecase.NewRefreshTemplatesUseCase(source, cache, nil),
		usecase.NewClassifyFilesUseCase(classifier, cache, match.NewMatcher(nil, 1)),
		usecase.NewSubmitBatchUseCase(store, queue, domain.BatchOptions{}),
		"api",
		metrics.NewHTTPServerMetrics("api"),
	), queue
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t, &sourceFake{}, &classifierFake{}, newStoreFake())

	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
}

func TestListTemplates(t *testing.T) {
	router, _ := newTestRouter(t, &sourceFake{templates: []domain.Template{
		{ID: "enterprise_12345_invoice", Scope: "enterprise_12345", Key: "invoice"},
	}}, &classifierFake{}, newStoreFake())

	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/templates", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 template, got %d", resp.Count)
	}
}

func TestRefreshTemplatesFailureMapsStatus(t *testing.T) {
	source := &sourceFake{err: domain.WrapError(domain.ErrUnauthorized, "list templates", errors.New("token expired"))}
	router, _ := newTestRouter(t, source, &classifierFake{}, newStoreFake())

	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/templates/refresh", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestClassifyReturnsOutcomes(t *testing.T) {
	router, _ := newTestRouter(t, &sourceFake{templates: []domain.Template{
		{ID: "enterprise_12345_taxReturn", Scope: "enterprise_12345", Key: "taxReturn", DisplayName: "Tax Return Template"},
	}}, &classifierFake{result: domain.Classification{DocumentType: "Tax", Confidence: 0.9}}, newStoreFake())

	body := strings.NewReader(`{"files":[{"id":"f-1","name":"1099.pdf"}]}`)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/classify", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Results []domain.ClassificationOutcome `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].SuggestedTemplateID != "enterprise_12345_taxReturn" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}

func TestClassifyRequiresFiles(t *testing.T) {
	router, _ := newTestRouter(t, &sourceFake{}, &classifierFake{}, newStoreFake())

	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader(`{"files":[]}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitBatchAcceptedAndPublished(t *testing.T) {
	store := newStoreFake()
	router, queue := newTestRouter(t, &sourceFake{}, &classifierFake{}, store)

	body := strings.NewReader(`{
		"files":[{"id":"f-1","name":"a.pdf"}],
		"mode":"structured",
		"template_id":"enterprise_12345_invoice_template"
	}`)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/batches", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RunID == "" {
		t.Fatal("expected run id")
	}
	if len(queue.published) != 1 || queue.published[0] != resp.RunID {
		t.Fatalf("expected publish for %s, got %v", resp.RunID, queue.published)
	}
}

func TestSubmitBatchValidationMapsToBadRequest(t *testing.T) {
	router, _ := newTestRouter(t, &sourceFake{}, &classifierFake{}, newStoreFake())

	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/batches",
		strings.NewReader(`{"files":[],"mode":"structured"}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBatchReportNotFound(t *testing.T) {
	router, _ := newTestRouter(t, &sourceFake{}, &classifierFake{}, newStoreFake())

	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/batches/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBatchReportReturnsTallies(t *testing.T) {
	store := newStoreFake()
	store.runs["run-1"] = &domain.BatchRun{
		ID:     "run-1",
		Files:  []domain.FileRef{{ID: "f-1"}, {ID: "f-2"}},
		Status: domain.RunCompleted,
	}
	store.outcomes["run-1"] = []domain.ApplyOutcome{
		{FileID: "f-1", Success: true},
		{FileID: "f-2", Error: "no metadata found for this file"},
	}
	router, _ := newTestRouter(t, &sourceFake{}, &classifierFake{}, store)

	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/batches/run-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report domain.BatchReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Total != 2 || report.Succeeded != 1 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestCancelBatch(t *testing.T) {
	store := newStoreFake()
	store.runs["run-1"] = &domain.BatchRun{ID: "run-1", Status: domain.RunRunning}
	router, _ := newTestRouter(t, &sourceFake{}, &classifierFake{}, store)

	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/batches/run-1/cancel", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if !store.runs["run-1"].CancelRequested {
		t.Fatal("cancel flag not set")
	}
}

func TestMetricsEndpointServed(t *testing.T) {
	router, _ := newTestRouter(t, &sourceFake{}, &classifierFake{}, newStoreFake())

	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
