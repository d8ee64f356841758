package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/pantrywatch/pantry-api/internal/models"
)

// Service wraps a primary content generator with the deterministic
// fallback. Callers always receive a usable result: when the primary is
// missing or fails, the fallback answers and the failure is logged.
type Service struct {
	primary  ContentGenerator
	fallback *FallbackGenerator
	logger   *zap.Logger
}

// NewService creates an AI service. primary may be nil when no API key is
// configured, in which case every call is served by the fallback.
func NewService(primary ContentGenerator, logger *zap.Logger) *Service {
	return &Service{
		primary:  primary,
		fallback: NewFallbackGenerator(),
		logger:   logger,
	}
}

func (s *Service) logFallback(operation string, err error) {
	if err != nil {
		s.logger.Warn("ai generation failed, using fallback",
			zap.String("operation", operation),
			zap.Error(err))
	}
}

// GenerateRecipe returns a recipe for the query
func (s *Service) GenerateRecipe(ctx context.Context, query string, available []*models.GroceryItem) *Recipe {
	if s.primary != nil {
		recipe, err := s.primary.GenerateRecipe(ctx, query, available)
		if err == nil {
			return recipe
		}
		s.logFallback("generate_recipe", err)
	}
	recipe, _ := s.fallback.GenerateRecipe(ctx, query, available)
	return recipe
}

// NutritionFacts returns nutrition facts for the recipe
func (s *Service) NutritionFacts(ctx context.Context, recipe *Recipe) *NutritionFacts {
	if s.primary != nil {
		facts, err := s.primary.NutritionFacts(ctx, recipe)
		if err == nil {
			return facts
		}
		s.logFallback("nutrition_facts", err)
	}
	facts, _ := s.fallback.NutritionFacts(ctx, recipe)
	return facts
}

// HealthAnalysis returns a risk assessment for the metrics and inventory
func (s *Service) HealthAnalysis(ctx context.Context, metrics *models.HealthMetrics, items []*models.GroceryItem) *HealthAnalysis {
	if s.primary != nil {
		analysis, err := s.primary.HealthAnalysis(ctx, metrics, items)
		if err == nil {
			return analysis
		}
		s.logFallback("health_analysis", err)
	}
	analysis, _ := s.fallback.HealthAnalysis(ctx, metrics, items)
	return analysis
}

// TryHealthAnalysis prefers the primary generator and surfaces rate-limit
// and quota errors so background callers can reschedule instead of caching
// the fallback result. Any other failure still falls back.
func (s *Service) TryHealthAnalysis(ctx context.Context, metrics *models.HealthMetrics, items []*models.GroceryItem) (*HealthAnalysis, error) {
	if s.primary != nil {
		analysis, err := s.primary.HealthAnalysis(ctx, metrics, items)
		if err == nil {
			return analysis, nil
		}
		if IsRateLimitError(err) || IsQuotaError(err) {
			return nil, err
		}
		s.logFallback("health_analysis", err)
	}
	analysis, _ := s.fallback.HealthAnalysis(ctx, metrics, items)
	return analysis, nil
}

// ExtractHealthMetrics extracts metrics from report text
func (s *Service) ExtractHealthMetrics(ctx context.Context, reportText string) *models.HealthMetrics {
	if s.primary != nil {
		metrics, err := s.primary.ExtractHealthMetrics(ctx, reportText)
		if err == nil {
			return metrics
		}
		s.logFallback("extract_health_metrics", err)
	}
	metrics, _ := s.fallback.ExtractHealthMetrics(ctx, reportText)
	return metrics
}

// HealthFacts returns facts about the topic
func (s *Service) HealthFacts(ctx context.Context, topic string, count int) []HealthFact {
	if s.primary != nil {
		facts, err := s.primary.HealthFacts(ctx, topic, count)
		if err == nil {
			return facts
		}
		s.logFallback("health_facts", err)
	}
	facts, _ := s.fallback.HealthFacts(ctx, topic, count)
	return facts
}

// WastedAmounts prices expired items
func (s *Service) WastedAmounts(ctx context.Context, expired []*models.GroceryItem) []WastedItem {
	if s.primary != nil {
		items, err := s.primary.WastedAmounts(ctx, expired)
		if err == nil {
			return items
		}
		s.logFallback("wasted_amounts", err)
	}
	items, _ := s.fallback.WastedAmounts(ctx, expired)
	return items
}
