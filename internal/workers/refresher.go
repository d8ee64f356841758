package workers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pantrywatch/pantry-api/internal/database"
	"github.com/pantrywatch/pantry-api/internal/queue"
	"github.com/pantrywatch/pantry-api/internal/services/ai"
)

// AnalysisRefresher processes health analysis jobs. Each job regenerates
// the cached health risk analysis from the latest metrics and inventory
// so reads stay cheap.
type AnalysisRefresher struct {
	aiService  *ai.Service
	healthRepo database.HealthStore
	itemRepo   database.ItemStore
	logger     *zap.Logger
}

// NewAnalysisRefresher creates a new analysis refresher
func NewAnalysisRefresher(
	aiService *ai.Service,
	healthRepo database.HealthStore,
	itemRepo database.ItemStore,
	logger *zap.Logger,
) *AnalysisRefresher {
	return &AnalysisRefresher{
		aiService:  aiService,
		healthRepo: healthRepo,
		itemRepo:   itemRepo,
		logger:     logger,
	}
}

// ProcessJob regenerates and stores the health analysis
func (r *AnalysisRefresher) ProcessJob(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeHealthAnalysis {
		return fmt.Errorf("unexpected job type %q", job.Type)
	}

	metrics, err := r.healthRepo.GetMetrics(ctx)
	if err != nil {
		return fmt.Errorf("failed to load health metrics: %w", err)
	}
	if metrics == nil {
		// Without metrics there is nothing to analyze; drop the job.
		r.logger.Info("skipping health analysis refresh, no metrics recorded",
			zap.String("job_id", job.ID.String()))
		return nil
	}

	items, err := r.itemRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}

	// A rate-limited or quota-exhausted provider error propagates so the
	// job gets rescheduled rather than caching the fallback forever.
	analysis, err := r.aiService.TryHealthAnalysis(ctx, metrics, items)
	if err != nil {
		return fmt.Errorf("failed to generate analysis: %w", err)
	}

	if err := r.healthRepo.SaveAnalysis(ctx, analysis); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	r.logger.Info("health analysis refreshed",
		zap.String("job_id", job.ID.String()),
		zap.String("risk_level", analysis.RiskLevel),
		zap.Int("items_considered", len(items)))

	return nil
}
