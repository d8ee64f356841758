package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pantrywatch/pantry-api/internal/database"
	"github.com/pantrywatch/pantry-api/internal/expiry"
	"github.com/pantrywatch/pantry-api/internal/lifecycle"
	"github.com/pantrywatch/pantry-api/internal/models"
	"github.com/pantrywatch/pantry-api/internal/notify"
	"github.com/pantrywatch/pantry-api/internal/queue"
	"github.com/pantrywatch/pantry-api/internal/services/ai"
	"github.com/pantrywatch/pantry-api/internal/services/scan"
	"github.com/pantrywatch/pantry-api/internal/validation"
	"go.uber.org/zap"
)

const (
	// MaxProductNameLength is the maximum length for a product name
	MaxProductNameLength = 200
	// DefaultExpiringWindowDays is the window used when ?days= is absent
	DefaultExpiringWindowDays = 3
	// MaxExpiringWindowDays caps the ?days= query parameter
	MaxExpiringWindowDays = 365
	// analysisRefreshDebounce delays enrichment jobs so bursts of changes
	// collapse into one refresh
	analysisRefreshDebounce = 30 * time.Second
)

// ItemHandler handles grocery item requests
type ItemHandler struct {
	items      database.ItemStore
	reconciler *lifecycle.Reconciler
	notifier   *notify.Notifier
	scanner    *scan.Service
	generator  *ai.Service
	jobs       queue.JobQueue // optional, nil disables enrichment jobs
	windowDays int
	logger     *zap.Logger
	now        func() time.Time
}

// NewItemHandler creates a new item handler
func NewItemHandler(items database.ItemStore, reconciler *lifecycle.Reconciler, notifier *notify.Notifier, scanner *scan.Service, generator *ai.Service, jobs queue.JobQueue, windowDays int, logger *zap.Logger) *ItemHandler {
	if windowDays <= 0 {
		windowDays = DefaultExpiringWindowDays
	}
	return &ItemHandler{
		items:      items,
		reconciler: reconciler,
		notifier:   notifier,
		scanner:    scanner,
		generator:  generator,
		jobs:       jobs,
		windowDays: windowDays,
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterRoutes registers item routes on the given router.
// The router should already have the /items prefix.
func (h *ItemHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListItems).Methods("GET")
	r.HandleFunc("", h.CreateItem).Methods("POST")
	r.HandleFunc("/expiring", h.ExpiringSoon).Methods("GET")
	r.HandleFunc("/scan", h.ScanLabel).Methods("POST")
	r.HandleFunc("/waste-cost", h.WasteCost).Methods("POST")
	r.HandleFunc("/{id}", h.GetItem).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateItem).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteItem).Methods("DELETE")
	r.HandleFunc("/{id}/complete", h.CompleteItem).Methods("POST")
	r.HandleFunc("/{id}/reactivate", h.ReactivateItem).Methods("POST")
}

// CreateItemRequest represents a create item request
type CreateItemRequest struct {
	ProductName  string `json:"productName" validate:"required,min=1,max=200"`
	Category     string `json:"category" validate:"required,category"`
	Quantity     int    `json:"quantity" validate:"required,min=1"`
	PurchaseDate string `json:"purchaseDate" validate:"omitempty,iso_date"`
	ExpiryDate   string `json:"expiryDate" validate:"required,iso_date"`
}

// UpdateItemRequest represents a partial item update
type UpdateItemRequest struct {
	ProductName  *string `json:"productName,omitempty"`
	Category     *string `json:"category,omitempty"`
	Quantity     *int    `json:"quantity,omitempty"`
	PurchaseDate *string `json:"purchaseDate,omitempty"`
	ExpiryDate   *string `json:"expiryDate,omitempty"`
	Status       *string `json:"status,omitempty"`
}

// ListItems returns all items, reconciling statuses against today first so
// the response never shows a stale active/expired split.
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.items.ListAll(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve items")
		return
	}

	h.reconciler.ReconcileAll(ctx, items, h.now())

	respondJSON(w, http.StatusOK, items)
}

// CreateItem creates a new grocery item
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	name := validation.SanitizeText(req.ProductName)
	if name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Product name is required")
		return
	}

	now := h.now()
	purchaseDate := req.PurchaseDate
	if purchaseDate == "" {
		purchaseDate = expiry.FormatDate(now)
	}

	verdict, err := expiry.Classify(req.ExpiryDate, now)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid expiry date")
		return
	}

	status := models.StatusActive
	if verdict.IsExpired {
		status = models.StatusExpired
	}

	item := &models.GroceryItem{
		ID:           uuid.New(),
		ProductName:  name,
		Category:     models.Category(req.Category),
		Quantity:     req.Quantity,
		PurchaseDate: purchaseDate,
		ExpiryDate:   req.ExpiryDate,
		Status:       status,
	}

	if err := h.items.Create(r.Context(), item); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create item")
		return
	}

	h.notifier.Publish(notify.Event{Type: notify.EventItemAdded, Item: item})
	if status == models.StatusActive && !verdict.IsExpired && verdict.DaysUntilExpiry <= h.windowDays {
		h.notifier.Publish(notify.Event{
			Type:    notify.EventItemNewlyExpiring,
			Item:    item,
			Message: fmt.Sprintf("%s is expiring soon!", item.ProductName),
		})
	}

	respondJSON(w, http.StatusCreated, item)
}

// GetItem retrieves an item by ID
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(w, r)
	if !ok {
		return
	}

	item, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		respondItemLookupError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// UpdateItem applies a partial update to an item. A status of completed
// always wins over the expiry-derived status; moving away from completed
// clears the completion date and re-derives active/expired.
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	item, err := h.items.GetByID(ctx, id)
	if err != nil {
		respondItemLookupError(w, err)
		return
	}

	var req UpdateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.ProductName != nil {
		name := validation.SanitizeText(*req.ProductName)
		if name == "" || len(name) > MaxProductNameLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid product name")
			return
		}
		item.ProductName = name
	}
	if req.Category != nil {
		if err := validation.ValidateCategory(*req.Category); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		item.Category = models.Category(*req.Category)
	}
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Quantity must be at least 1")
			return
		}
		item.Quantity = *req.Quantity
	}
	if req.PurchaseDate != nil {
		if _, err := expiry.ParseDate(*req.PurchaseDate); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid purchase date")
			return
		}
		item.PurchaseDate = *req.PurchaseDate
	}
	if req.ExpiryDate != nil {
		if _, err := expiry.ParseDate(*req.ExpiryDate); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid expiry date")
			return
		}
		item.ExpiryDate = *req.ExpiryDate
	}
	if req.Status != nil {
		if err := validation.ValidateItemStatus(*req.Status); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
	}

	now := h.now()
	switch {
	case req.Status != nil && models.ItemStatus(*req.Status) == models.StatusCompleted:
		item.MarkCompleted(expiry.FormatDate(now))
	case item.Status == models.StatusCompleted && req.Status != nil:
		// Leaving completed: clear the completion date, then re-derive below
		item.Reactivate()
		fallthrough
	default:
		if item.Status != models.StatusCompleted {
			verdict, err := expiry.Classify(item.ExpiryDate, now)
			if err != nil {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid expiry date")
				return
			}
			if verdict.IsExpired {
				item.Status = models.StatusExpired
			} else {
				item.Status = models.StatusActive
			}
		}
	}

	if err := h.items.Update(ctx, item); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update item")
		return
	}

	h.notifier.Publish(notify.Event{Type: notify.EventItemUpdated, Item: item})

	respondJSON(w, http.StatusOK, item)
}

// DeleteItem deletes an item
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if _, err := h.items.GetByID(ctx, id); err != nil {
		respondItemLookupError(w, err)
		return
	}

	if err := h.items.Delete(ctx, id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete item")
		return
	}

	h.notifier.Publish(notify.Event{Type: notify.EventItemDeleted, ItemID: id.String()})

	w.WriteHeader(http.StatusNoContent)
}

// CompleteItem marks an item as used up
func (h *ItemHandler) CompleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	item, err := h.items.GetByID(ctx, id)
	if err != nil {
		respondItemLookupError(w, err)
		return
	}

	item.MarkCompleted(expiry.FormatDate(h.now()))

	if err := h.items.Update(ctx, item); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to complete item")
		return
	}

	h.notifier.Publish(notify.Event{Type: notify.EventItemUpdated, Item: item})

	respondJSON(w, http.StatusOK, item)
}

// ReactivateItem returns a completed item to the active rotation. The
// resulting status is re-derived from the expiry date.
func (h *ItemHandler) ReactivateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	item, err := h.items.GetByID(ctx, id)
	if err != nil {
		respondItemLookupError(w, err)
		return
	}

	item.Reactivate()
	if expiry.StatusIsExpired(item.ExpiryDate, h.now()) {
		item.Status = models.StatusExpired
	}

	if err := h.items.Update(ctx, item); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to reactivate item")
		return
	}

	h.notifier.Publish(notify.Event{Type: notify.EventItemUpdated, Item: item})

	respondJSON(w, http.StatusOK, item)
}

// ExpiringSoon returns active items expiring within the requested window,
// ordered soonest first.
func (h *ItemHandler) ExpiringSoon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	days := h.windowDays
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 0 || parsed > MaxExpiringWindowDays {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid days parameter")
			return
		}
		days = parsed
	}

	items, err := h.items.ListAll(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve items")
		return
	}

	now := h.now()
	h.reconciler.ReconcileAll(ctx, items, now)

	respondJSON(w, http.StatusOK, lifecycle.ExpiringSoon(items, now, days))
}

// Sweep runs a manual reconciliation pass over the whole inventory and
// announces the expiring-soon batch, same as the periodic sweeper.
func (h *ItemHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.items.ListAll(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve items")
		return
	}

	now := h.now()
	changed := h.reconciler.ReconcileAll(ctx, items, now)

	expiring := lifecycle.ExpiringSoon(items, now, h.windowDays)
	if len(expiring) > 0 {
		h.notifier.Publish(notify.Event{
			Type:    notify.EventItemsExpiring,
			Items:   expiring,
			Message: fmt.Sprintf("%d items are expiring soon!", len(expiring)),
		})
	}

	if changed > 0 {
		h.enqueueAnalysisRefresh(ctx)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"changed":  changed,
		"expiring": len(expiring),
	})
}

// ScanLabelRequest carries raw label text for structured extraction
type ScanLabelRequest struct {
	LabelText string `json:"labelText" validate:"required,min=1,max=5000"`
}

// ScanLabel extracts a product name, category, and expiry date guess from
// raw label text.
func (h *ItemHandler) ScanLabel(w http.ResponseWriter, r *http.Request) {
	var req ScanLabelRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Label text is required")
		return
	}

	guess := h.scanner.ScanLabel(r.Context(), req.LabelText)

	respondJSON(w, http.StatusOK, guess)
}

// WasteCost estimates the money lost to currently expired items.
func (h *ItemHandler) WasteCost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.items.ListAll(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve items")
		return
	}

	h.reconciler.ReconcileAll(ctx, items, h.now())

	var expired []*models.GroceryItem
	for _, item := range items {
		if item.Status == models.StatusExpired {
			expired = append(expired, item)
		}
	}

	wasted := h.generator.WastedAmounts(ctx, expired)

	total := 0.0
	for _, wi := range wasted {
		total += wi.TotalWastedAmount
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"items": wasted,
		"total": total,
	})
}

// enqueueAnalysisRefresh schedules a health analysis refresh after expiry
// transitions. Best effort, jobs are optional.
func (h *ItemHandler) enqueueAnalysisRefresh(ctx context.Context) {
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

// decodeBody decodes a JSON request body, handling size limit errors.
// Returns false after writing an error response.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	return true
}

func parseItemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid item ID")
		return uuid.Nil, false
	}
	return id, true
}

func respondItemLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Item not found")
		return
	}
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve item")
}
