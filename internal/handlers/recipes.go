package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pantrywatch/pantry-api/internal/database"
	"github.com/pantrywatch/pantry-api/internal/lifecycle"
	"github.com/pantrywatch/pantry-api/internal/models"
	"github.com/pantrywatch/pantry-api/internal/services/ai"
	"github.com/pantrywatch/pantry-api/internal/validation"
)

const (
	// SuggestionWindowDays is the expiry window feeding recipe suggestions
	SuggestionWindowDays = 5
	// MaxSuggestions caps how many recipes one suggestions call generates
	MaxSuggestions = 3
)

// RecipeHandler handles recipe and nutrition requests
type RecipeHandler struct {
	items     database.ItemStore
	generator *ai.Service
	now       func() time.Time
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(items database.ItemStore, generator *ai.Service) *RecipeHandler {
	return &RecipeHandler{items: items, generator: generator, now: time.Now}
}

// RegisterRoutes registers recipe routes on the given router.
// The router should already have the /recipes prefix.
func (h *RecipeHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/search", h.Search).Methods("POST")
	r.HandleFunc("/suggestions", h.Suggestions).Methods("POST")
	r.HandleFunc("/nutrition", h.Nutrition).Methods("POST")
}

// SearchRecipeRequest represents a recipe search request
type SearchRecipeRequest struct {
	Query string `json:"query" validate:"required,min=1,max=500"`
}

// Search generates a recipe for the query, marking which ingredients are
// already in the pantry.
func (h *RecipeHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRecipeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Query is required")
		return
	}

	ctx := r.Context()
	available := h.activeItems(ctx)

	recipe := h.generator.GenerateRecipe(ctx, req.Query, available)

	respondJSON(w, http.StatusOK, recipe)
}

// Suggestions generates recipes built around items that expire soon, so
// they get used instead of wasted.
func (h *RecipeHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.items.ListAll(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve items")
		return
	}

	expiring := lifecycle.ExpiringSoon(items, h.now(), SuggestionWindowDays)

	var recipes []*ai.Recipe
	for i, item := range expiring {
		if i >= MaxSuggestions {
			break
		}
		recipes = append(recipes, h.generator.GenerateRecipe(ctx, item.ProductName, items))
	}
	if recipes == nil {
		recipes = []*ai.Recipe{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"recipes":       recipes,
		"expiringItems": expiring,
	})
}

// Nutrition returns nutrition facts for a recipe
func (h *RecipeHandler) Nutrition(w http.ResponseWriter, r *http.Request) {
	var recipe ai.Recipe
	if !decodeBody(w, r, &recipe) {
		return
	}

	if recipe.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Recipe title is required")
		return
	}

	facts := h.generator.NutritionFacts(r.Context(), &recipe)

	respondJSON(w, http.StatusOK, facts)
}

func (h *RecipeHandler) activeItems(ctx context.Context) []*models.GroceryItem {
	items, err := h.items.ListAll(ctx)
	if err != nil {
		return nil
	}
	var active []*models.GroceryItem
	for _, item := range items {
		if item.Status == models.StatusActive {
			active = append(active, item)
		}
	}
	return active
}
