package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pantrywatch/pantry-api/internal/database"
	"github.com/pantrywatch/pantry-api/internal/models"
	"github.com/pantrywatch/pantry-api/internal/queue"
	"github.com/pantrywatch/pantry-api/internal/services/ai"
	"go.uber.org/zap"
)

type fakeHealthDataStore struct {
	mu       sync.Mutex
	metrics  *models.HealthMetrics
	reports  map[uuid.UUID]*models.HealthReport
	analysis []byte
	savedAt  time.Time
}

func newFakeHealthDataStore() *fakeHealthDataStore {
	return &fakeHealthDataStore{reports: make(map[uuid.UUID]*models.HealthReport)}
}

func (s *fakeHealthDataStore) GetMetrics(ctx context.Context) (*models.HealthMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metrics == nil {
		return nil, nil
	}
	cp := *s.metrics
	return &cp, nil
}

func (s *fakeHealthDataStore) SetMetrics(ctx context.Context, m *models.HealthMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.metrics = &cp
	return nil
}

func (s *fakeHealthDataStore) AddReport(ctx context.Context, report *models.HealthReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *report
	s.reports[report.ID] = &cp
	return nil
}

func (s *fakeHealthDataStore) ListReports(ctx context.Context) ([]*models.HealthReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.HealthReport
	for _, r := range s.reports {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeHealthDataStore) DeleteReport(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *fakeHealthDataStore) GetAnalysis(ctx context.Context, out any) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analysis == nil {
		return time.Time{}, database.ErrNotFound
	}
	if err := json.Unmarshal(s.analysis, out); err != nil {
		return time.Time{}, err
	}
	return s.savedAt, nil
}

func (s *fakeHealthDataStore) SaveAnalysis(ctx context.Context, analysis any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	s.analysis = raw
	s.savedAt = time.Now()
	return nil
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []*queue.Job
}

func (q *recordingQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}

func (q *recordingQueue) Close() error { return nil }

func (q *recordingQueue) HealthCheck(ctx context.Context) error { return nil }

func (q *recordingQueue) enqueued() []*queue.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*queue.Job(nil), q.jobs...)
}

func newTestHealthHandler(store *fakeHealthDataStore, jobs queue.JobQueue) *HealthDataHandler {
	logger := zap.NewNop()
	return NewHealthDataHandler(store, newFakeItemStore(), ai.NewService(nil, logger), jobs, logger)
}

func healthRouter(h *HealthDataHandler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/health").Subrouter())
	return r
}

func TestSetMetricsMergesAndEnqueuesRefresh(t *testing.T) {
	t.Parallel()

	store := newFakeHealthDataStore()
	cholesterol := 180.0
	store.metrics = &models.HealthMetrics{Cholesterol: &cholesterol}

	jobs := &recordingQueue{}
	handler := newTestHealthHandler(store, jobs)

	req := httptest.NewRequest("POST", "/health/metrics", bytes.NewBufferString(`{"sugarLevel":110}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	healthRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var saved models.HealthMetrics
	decodeData(t, w.Body, &saved)
	if saved.SugarLevel == nil || *saved.SugarLevel != 110 {
		t.Error("Expected sugar level 110 to be saved")
	}
	if saved.Cholesterol == nil || *saved.Cholesterol != 180 {
		t.Error("Expected existing cholesterol to survive the merge")
	}

	enqueued := jobs.enqueued()
	if len(enqueued) != 1 {
		t.Fatalf("Expected one refresh job, got %d", len(enqueued))
	}
	if enqueued[0].Type != queue.JobTypeHealthAnalysis {
		t.Errorf("Expected health_analysis job, got %s", enqueued[0].Type)
	}
	if enqueued[0].NotBefore == nil || !enqueued[0].NotBefore.After(time.Now()) {
		t.Error("Expected refresh job to carry a future NotBefore")
	}
}

func TestGetMetricsEmptyWhenUnset(t *testing.T) {
	t.Parallel()

	handler := newTestHealthHandler(newFakeHealthDataStore(), nil)

	req := httptest.NewRequest("GET", "/health/metrics", nil)
	w := httptest.NewRecorder()

	healthRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var metrics models.HealthMetrics
	decodeData(t, w.Body, &metrics)
	if metrics.SugarLevel != nil || metrics.Cholesterol != nil {
		t.Error("Expected empty metrics record")
	}
}

func TestGetAnalysisGeneratesAndCachesOnMiss(t *testing.T) {
	t.Parallel()

	store := newFakeHealthDataStore()
	sugar := 130.0
	store.metrics = &models.HealthMetrics{SugarLevel: &sugar}

	handler := newTestHealthHandler(store, nil)

	req := httptest.NewRequest("GET", "/health/analysis", nil)
	w := httptest.NewRecorder()

	healthRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp AnalysisResponse
	decodeData(t, w.Body, &resp)
	if resp.Cached {
		t.Error("Expected first analysis to be freshly generated")
	}
	if resp.Analysis == nil || resp.Analysis.RiskLevel != "High" {
		t.Errorf("Expected High risk for sugar 130, got %+v", resp.Analysis)
	}
	if store.analysis == nil {
		t.Error("Expected analysis to be cached")
	}

	// Second call serves the cache
	w2 := httptest.NewRecorder()
	healthRouter(handler).ServeHTTP(w2, httptest.NewRequest("GET", "/health/analysis", nil))

	var resp2 AnalysisResponse
	decodeData(t, w2.Body, &resp2)
	if !resp2.Cached {
		t.Error("Expected second analysis to come from cache")
	}
}

func TestGetAnalysisWithoutMetricsIsNotFound(t *testing.T) {
	t.Parallel()

	handler := newTestHealthHandler(newFakeHealthDataStore(), nil)

	req := httptest.NewRequest("GET", "/health/analysis", nil)
	w := httptest.NewRecorder()

	healthRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestSubmitReportExtractsMetrics(t *testing.T) {
	t.Parallel()

	store := newFakeHealthDataStore()
	jobs := &recordingQueue{}
	handler := newTestHealthHandler(store, jobs)

	body := `{"originalName":"labs.pdf","reportText":"Fasting glucose: 112.5 mg/dL. Total cholesterol 190 mg/dL. Blood pressure: 135/85 mmHg."}`
	req := httptest.NewRequest("POST", "/health/reports", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	healthRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Report           *models.HealthReport  `json:"report"`
		ExtractedMetrics *models.HealthMetrics `json:"extractedMetrics"`
	}
	decodeData(t, w.Body, &resp)

	if resp.Report == nil || resp.Report.OriginalName != "labs.pdf" {
		t.Errorf("Expected report record for labs.pdf, got %+v", resp.Report)
	}
	m := resp.ExtractedMetrics
	if m == nil || m.SugarLevel == nil || *m.SugarLevel != 112.5 {
		t.Errorf("Expected extracted sugar 112.5, got %+v", m)
	}
	if m.Cholesterol == nil || *m.Cholesterol != 190 {
		t.Errorf("Expected extracted cholesterol 190, got %+v", m)
	}
	if m.BloodPressureSystolic == nil || *m.BloodPressureSystolic != 135 {
		t.Errorf("Expected extracted systolic 135, got %+v", m)
	}

	if store.metrics == nil || store.metrics.SugarLevel == nil {
		t.Error("Expected extracted metrics to be merged into the store")
	}
	if len(jobs.enqueued()) != 1 {
		t.Error("Expected a refresh job after report submission")
	}
}

func TestDeleteReport(t *testing.T) {
	t.Parallel()

	store := newFakeHealthDataStore()
	report := &models.HealthReport{ID: uuid.New(), OriginalName: "old.pdf", UploadedAt: time.Now()}
	store.reports[report.ID] = report

	handler := newTestHealthHandler(store, nil)

	req := httptest.NewRequest("DELETE", "/health/reports/"+report.ID.String(), nil)
	w := httptest.NewRecorder()

	healthRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}

	w2 := httptest.NewRecorder()
	healthRouter(handler).ServeHTTP(w2, httptest.NewRequest("DELETE", "/health/reports/"+report.ID.String(), nil))
	if w2.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 on second delete, got %d", w2.Code)
	}
}

func TestFactsRespectsCount(t *testing.T) {
	t.Parallel()

	handler := newTestHealthHandler(newFakeHealthDataStore(), nil)

	req := httptest.NewRequest("GET", "/health/facts?topic=hydration&count=2", nil)
	w := httptest.NewRecorder()

	healthRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var facts []ai.HealthFact
	decodeData(t, w.Body, &facts)
	if len(facts) != 2 {
		t.Errorf("Expected 2 facts, got %d", len(facts))
	}
}
