package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pantrywatch/pantry-api/internal/database"
	"github.com/pantrywatch/pantry-api/internal/models"
	"github.com/pantrywatch/pantry-api/internal/queue"
	"github.com/pantrywatch/pantry-api/internal/services/ai"
	"github.com/pantrywatch/pantry-api/internal/validation"
	"go.uber.org/zap"
)

const (
	// DefaultHealthFactCount is how many facts are returned without ?count=
	DefaultHealthFactCount = 5
	// MaxHealthFactCount caps the ?count= query parameter
	MaxHealthFactCount = 10
)

// HealthDataStore is the persistence surface the health handler needs.
type HealthDataStore interface {
	GetMetrics(ctx context.Context) (*models.HealthMetrics, error)
	SetMetrics(ctx context.Context, m *models.HealthMetrics) error
	AddReport(ctx context.Context, report *models.HealthReport) error
	ListReports(ctx context.Context) ([]*models.HealthReport, error)
	DeleteReport(ctx context.Context, id uuid.UUID) error
	GetAnalysis(ctx context.Context, out any) (time.Time, error)
	SaveAnalysis(ctx context.Context, analysis any) error
}

var _ HealthDataStore = (*database.HealthRepository)(nil)

// HealthDataHandler handles health metric, report, and analysis requests
type HealthDataHandler struct {
	store     HealthDataStore
	items     database.ItemStore
	generator *ai.Service
	jobs      queue.JobQueue // optional, nil disables refresh jobs
	logger    *zap.Logger
	now       func() time.Time
}

// NewHealthDataHandler creates a new health data handler
func NewHealthDataHandler(store HealthDataStore, items database.ItemStore, generator *ai.Service, jobs queue.JobQueue, logger *zap.Logger) *HealthDataHandler {
	return &HealthDataHandler{
		store:     store,
		items:     items,
		generator: generator,
		jobs:      jobs,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterRoutes registers health data routes on the given router.
// The router should already have the /health prefix.
func (h *HealthDataHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/metrics", h.GetMetrics).Methods("GET")
	r.HandleFunc("/metrics", h.SetMetrics).Methods("POST")
	r.HandleFunc("/analysis", h.GetAnalysis).Methods("GET")
	r.HandleFunc("/reports", h.ListReports).Methods("GET")
	r.HandleFunc("/reports", h.SubmitReport).Methods("POST")
	r.HandleFunc("/reports/{id}", h.DeleteReport).Methods("DELETE")
	r.HandleFunc("/facts", h.Facts).Methods("GET")
}

// GetMetrics returns the stored health metrics, or an empty record when
// none have been set.
func (h *HealthDataHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.store.GetMetrics(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve health metrics")
		return
	}
	if metrics == nil {
		metrics = &models.HealthMetrics{}
	}

	respondJSON(w, http.StatusOK, metrics)
}

// SetMetrics merges the submitted metrics into the stored record. Fields
// absent from the request keep their stored value. A debounced analysis
// refresh job is enqueued afterwards.
func (h *HealthDataHandler) SetMetrics(w http.ResponseWriter, r *http.Request) {
	var req models.HealthMetrics
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	current, err := h.store.GetMetrics(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve health metrics")
		return
	}
	if current == nil {
		current = &models.HealthMetrics{}
	}

	mergeMetrics(current, &req)
	current.UpdatedAt = h.now()

	if err := h.store.SetMetrics(ctx, current); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save health metrics")
		return
	}

	h.enqueueRefresh(ctx)

	respondJSON(w, http.StatusOK, current)
}

// AnalysisResponse wraps a health analysis with its generation time
type AnalysisResponse struct {
	Analysis    *ai.HealthAnalysis `json:"analysis"`
	GeneratedAt string             `json:"generatedAt"`
	Cached      bool               `json:"cached"`
}

// GetAnalysis returns the cached health risk analysis, generating one
// synchronously when the cache is empty.
func (h *HealthDataHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cached ai.HealthAnalysis
	generatedAt, err := h.store.GetAnalysis(ctx, &cached)
	if err == nil {
		respondJSON(w, http.StatusOK, AnalysisResponse{
			Analysis:    &cached,
			GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
			Cached:      true,
		})
		return
	}
	if !errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve health analysis")
		return
	}

	metrics, err := h.store.GetMetrics(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve health metrics")
		return
	}
	if metrics == nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "No health metrics recorded yet")
		return
	}

	items, err := h.items.ListAll(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve items")
		return
	}

	analysis := h.generator.HealthAnalysis(ctx, metrics, items)

	if err := h.store.SaveAnalysis(ctx, analysis); err != nil {
		h.logger.Warn("failed_to_cache_health_analysis", zap.Error(err))
	}

	respondJSON(w, http.StatusOK, AnalysisResponse{
		Analysis:    analysis,
		GeneratedAt: h.now().UTC().Format(time.RFC3339),
		Cached:      false,
	})
}

// SubmitReportRequest carries extracted report text for metric extraction
type SubmitReportRequest struct {
	OriginalName string `json:"originalName" validate:"required,min=1,max=255"`
	ReportText   string `json:"reportText" validate:"required,min=1,max=50000"`
}

// SubmitReport extracts health metrics from report text, merges them into
// the stored metrics, and records the report.
func (h *HealthDataHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var req SubmitReportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Report name and text are required")
		return
	}

	ctx := r.Context()
	extracted := h.generator.ExtractHealthMetrics(ctx, req.ReportText)

	current, err := h.store.GetMetrics(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve health metrics")
		return
	}
	if current == nil {
		current = &models.HealthMetrics{}
	}

	mergeMetrics(current, extracted)
	current.UpdatedAt = h.now()

	if err := h.store.SetMetrics(ctx, current); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save health metrics")
		return
	}

	report := &models.HealthReport{
		ID:           uuid.New(),
		OriginalName: validation.SanitizeText(req.OriginalName),
		UploadedAt:   h.now(),
	}
	if err := h.store.AddReport(ctx, report); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record report")
		return
	}

	h.enqueueRefresh(ctx)

	respondJSON(w, http.StatusCreated, map[string]any{
		"report":           report,
		"extractedMetrics": extracted,
		"metrics":          current,
	})
}

// ListReports returns all recorded reports
func (h *HealthDataHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.store.ListReports(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve reports")
		return
	}
	if reports == nil {
		reports = []*models.HealthReport{}
	}

	respondJSON(w, http.StatusOK, reports)
}

// DeleteReport deletes a report record
func (h *HealthDataHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid report ID")
		return
	}

	if err := h.store.DeleteReport(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Report not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete report")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Facts returns health facts for a topic
func (h *HealthDataHandler) Facts(w http.ResponseWriter, r *http.Request) {
	topic := validation.SanitizeText(r.URL.Query().Get("topic"))
	if topic == "" {
		topic = "healthy eating"
	}

	count := DefaultHealthFactCount
	if c := r.URL.Query().Get("count"); c != "" {
		parsed, err := strconv.Atoi(c)
		if err != nil || parsed < 1 || parsed > MaxHealthFactCount {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid count parameter")
			return
		}
		count = parsed
	}

	facts := h.generator.HealthFacts(r.Context(), topic, count)

	respondJSON(w, http.StatusOK, facts)
}

// enqueueRefresh schedules a debounced health analysis refresh
func (h *HealthDataHandler) enqueueRefresh(ctx context.Context) {
	if h.jobs == nil {
		return
	}
	job := queue.NewJob(queue.JobTypeHealthAnalysis, nil)
	notBefore := h.now().Add(analysisRefreshDebounce)
	job.NotBefore = &notBefore
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		h.logger.Warn("failed_to_enqueue_analysis_refresh", zap.Error(err))
	}
}

// mergeMetrics copies non-nil fields from src onto dst
func mergeMetrics(dst, src *models.HealthMetrics) {
	if src == nil {
		return
	}
	if src.SugarLevel != nil {
		dst.SugarLevel = src.SugarLevel
	}
	if src.Cholesterol != nil {
		dst.Cholesterol = src.Cholesterol
	}
	if src.BloodPressureSystolic != nil {
		dst.BloodPressureSystolic = src.BloodPressureSystolic
	}
	if src.BloodPressureDiastolic != nil {
		dst.BloodPressureDiastolic = src.BloodPressureDiastolic
	}
	if src.Weight != nil {
		dst.Weight = src.Weight
	}
	if src.Height != nil {
		dst.Height = src.Height
	}
}
