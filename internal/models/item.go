package models

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies a grocery item into one of a fixed set of food categories.
type Category string

const (
	CategoryFruits     Category = "Fruits"
	CategoryVegetables Category = "Vegetables"
	CategoryDairy      Category = "Dairy"
	CategoryMeat       Category = "Meat"
	CategoryGrains     Category = "Grains"
	CategoryBeverages  Category = "Beverages"
	CategorySnacks     Category = "Snacks"
	CategoryFrozen     Category = "Frozen"
	CategoryPantry     Category = "Pantry"
	CategoryOther      Category = "Other"
)

// Categories returns all valid categories.
func Categories() []Category {
	return []Category{
		CategoryFruits, CategoryVegetables, CategoryDairy, CategoryMeat,
		CategoryGrains, CategoryBeverages, CategorySnacks, CategoryFrozen,
		CategoryPantry, CategoryOther,
	}
}

// IsValid reports whether c is one of the enumerated categories.
func (c Category) IsValid() bool {
	for _, v := range Categories() {
		if c == v {
			return true
		}
	}
	return false
}

// ItemStatus is the explicit, persisted lifecycle status of a grocery item.
// It is distinct from the derived expiry classification; reconciliation keeps
// the two consistent for non-completed items.
type ItemStatus string

const (
	StatusActive    ItemStatus = "active"
	StatusExpired   ItemStatus = "expired"
	StatusCompleted ItemStatus = "completed"
)

// GroceryItem represents one tracked grocery item.
// Calendar dates (purchaseDate, expiryDate, completedDate) travel as
// ISO "YYYY-MM-DD" strings end to end.
type GroceryItem struct {
	ID            uuid.UUID  `json:"id"`
	ProductName   string     `json:"productName"`
	Category      Category   `json:"category"`
	Quantity      int        `json:"quantity"`
	PurchaseDate  string     `json:"purchaseDate"`
	ExpiryDate    string     `json:"expiryDate"`
	Status        ItemStatus `json:"status"`
	CompletedDate *string    `json:"completedDate,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// MarkCompleted transitions the item to the terminal completed status.
// Reconciliation never overrides completed.
func (g *GroceryItem) MarkCompleted(date string) {
	g.Status = StatusCompleted
	g.CompletedDate = &date
}

// Reactivate returns a completed or expired item to active and clears the
// completion date. Callers re-derive active/expired from the expiry date
// afterwards.
func (g *GroceryItem) Reactivate() {
	g.Status = StatusActive
	g.CompletedDate = nil
}
