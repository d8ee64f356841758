package ai

import (
	"context"

	"github.com/pantrywatch/pantry-api/internal/models"
)

// ContentGenerator is the interface for AI content providers
type ContentGenerator interface {
	// GenerateRecipe creates a recipe for the query, preferring the
	// available inventory items as ingredients
	GenerateRecipe(ctx context.Context, query string, available []*models.GroceryItem) (*Recipe, error)

	// NutritionFacts estimates nutrition per 100g of the prepared recipe
	NutritionFacts(ctx context.Context, recipe *Recipe) (*NutritionFacts, error)

	// HealthAnalysis assesses health risk from metrics and the current inventory
	HealthAnalysis(ctx context.Context, metrics *models.HealthMetrics, items []*models.GroceryItem) (*HealthAnalysis, error)

	// ExtractHealthMetrics pulls health metrics out of report text
	ExtractHealthMetrics(ctx context.Context, reportText string) (*models.HealthMetrics, error)

	// HealthFacts generates facts about the given topic
	HealthFacts(ctx context.Context, topic string, count int) ([]HealthFact, error)

	// WastedAmounts prices expired items for the waste report
	WastedAmounts(ctx context.Context, expired []*models.GroceryItem) ([]WastedItem, error)
}
