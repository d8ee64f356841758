package ai

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/pantrywatch/pantry-api/internal/models"
)

// failingGenerator errors on every call.
type failingGenerator struct{}

func (failingGenerator) GenerateRecipe(ctx context.Context, query string, available []*models.GroceryItem) (*Recipe, error) {
	return nil, errors.New("api down")
}

func (failingGenerator) NutritionFacts(ctx context.Context, recipe *Recipe) (*NutritionFacts, error) {
	return nil, errors.New("api down")
}

func (failingGenerator) HealthAnalysis(ctx context.Context, metrics *models.HealthMetrics, items []*models.GroceryItem) (*HealthAnalysis, error) {
	return nil, errors.New("api down")
}

func (failingGenerator) ExtractHealthMetrics(ctx context.Context, reportText string) (*models.HealthMetrics, error) {
	return nil, errors.New("api down")
}

func (failingGenerator) HealthFacts(ctx context.Context, topic string, count int) ([]HealthFact, error) {
	return nil, errors.New("api down")
}

func (failingGenerator) WastedAmounts(ctx context.Context, expired []*models.GroceryItem) ([]WastedItem, error) {
	return nil, errors.New("api down")
}

// cannedGenerator returns fixed results.
type cannedGenerator struct {
	recipe *Recipe
}

func (g cannedGenerator) GenerateRecipe(ctx context.Context, query string, available []*models.GroceryItem) (*Recipe, error) {
	return g.recipe, nil
}

func (g cannedGenerator) NutritionFacts(ctx context.Context, recipe *Recipe) (*NutritionFacts, error) {
	return &NutritionFacts{Calories: "42"}, nil
}

func (g cannedGenerator) HealthAnalysis(ctx context.Context, metrics *models.HealthMetrics, items []*models.GroceryItem) (*HealthAnalysis, error) {
	return &HealthAnalysis{RiskLevel: "Low"}, nil
}

func (g cannedGenerator) ExtractHealthMetrics(ctx context.Context, reportText string) (*models.HealthMetrics, error) {
	return &models.HealthMetrics{}, nil
}

func (g cannedGenerator) HealthFacts(ctx context.Context, topic string, count int) ([]HealthFact, error) {
	return []HealthFact{{Fact: "canned"}}, nil
}

func (g cannedGenerator) WastedAmounts(ctx context.Context, expired []*models.GroceryItem) ([]WastedItem, error) {
	return []WastedItem{}, nil
}

func TestServicePrefersPrimary(t *testing.T) {
	t.Parallel()

	want := &Recipe{Title: "Primary Special"}
	s := NewService(cannedGenerator{recipe: want}, zap.NewNop())

	got := s.GenerateRecipe(context.Background(), "anything", nil)
	if got.Title != want.Title {
		t.Errorf("got %q, want %q", got.Title, want.Title)
	}
}

func TestServiceFallsBackOnError(t *testing.T) {
	t.Parallel()

	s := NewService(failingGenerator{}, zap.NewNop())
	ctx := context.Background()

	recipe := s.GenerateRecipe(ctx, "pasta", nil)
	if recipe == nil || recipe.Title != "Quick Pasta Delight" {
		t.Errorf("expected fallback pasta recipe, got %+v", recipe)
	}

	facts := s.NutritionFacts(ctx, &Recipe{Type: "Dessert"})
	if facts == nil || facts.Calories != "300-400" {
		t.Errorf("expected fallback dessert nutrition, got %+v", facts)
	}

	analysis := s.HealthAnalysis(ctx, &models.HealthMetrics{}, nil)
	if analysis == nil || analysis.RiskLevel != "Low" {
		t.Errorf("expected fallback analysis, got %+v", analysis)
	}

	if got := s.HealthFacts(ctx, "food waste", 5); len(got) != 5 {
		t.Errorf("expected 5 fallback facts, got %d", len(got))
	}
}

// rateLimitedGenerator reports a provider rate limit on every call.
type rateLimitedGenerator struct {
	failingGenerator
}

func (rateLimitedGenerator) HealthAnalysis(ctx context.Context, metrics *models.HealthMetrics, items []*models.GroceryItem) (*HealthAnalysis, error) {
	return nil, errors.New("429 too many requests")
}

func TestTryHealthAnalysisSurfacesRateLimit(t *testing.T) {
	t.Parallel()

	s := NewService(rateLimitedGenerator{}, zap.NewNop())
	analysis, err := s.TryHealthAnalysis(context.Background(), &models.HealthMetrics{}, nil)
	if err == nil {
		t.Fatal("expected rate limit error to surface")
	}
	if analysis != nil {
		t.Errorf("expected no analysis alongside the error, got %+v", analysis)
	}
	if !IsRateLimitError(err) {
		t.Errorf("expected a rate limit error, got %v", err)
	}
}

func TestTryHealthAnalysisFallsBackOnOtherErrors(t *testing.T) {
	t.Parallel()

	s := NewService(failingGenerator{}, zap.NewNop())
	analysis, err := s.TryHealthAnalysis(context.Background(), &models.HealthMetrics{}, nil)
	if err != nil {
		t.Fatalf("expected fallback, got error %v", err)
	}
	if analysis == nil || analysis.RiskLevel != "Low" {
		t.Errorf("expected fallback analysis, got %+v", analysis)
	}
}

func TestServiceWithoutPrimaryUsesFallback(t *testing.T) {
	t.Parallel()

	s := NewService(nil, zap.NewNop())

	recipe := s.GenerateRecipe(context.Background(), "salad", nil)
	if recipe == nil || recipe.Title != "Fresh Garden Salad" {
		t.Errorf("expected fallback salad recipe, got %+v", recipe)
	}
}
