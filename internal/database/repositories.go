package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/pantrywatch/pantry-api/internal/models"
)

// ItemStore defines the interface for grocery item repository operations
// This interface enables better testability by allowing mock implementations
type ItemStore interface {
	Create(ctx context.Context, item *models.GroceryItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.GroceryItem, error)
	ListAll(ctx context.Context) ([]*models.GroceryItem, error)
	Update(ctx context.Context, item *models.GroceryItem) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ItemStatus) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// HealthStore defines the interface for health data repository operations
type HealthStore interface {
	GetMetrics(ctx context.Context) (*models.HealthMetrics, error)
	SetMetrics(ctx context.Context, m *models.HealthMetrics) error
	SaveAnalysis(ctx context.Context, analysis any) error
}

// Ensure concrete types implement the interfaces
var (
	_ ItemStore   = (*ItemRepository)(nil)
	_ HealthStore = (*HealthRepository)(nil)
)
