package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pantrywatch/pantry-api/internal/database"
	"github.com/pantrywatch/pantry-api/internal/expiry"
	"github.com/pantrywatch/pantry-api/internal/lifecycle"
	"github.com/pantrywatch/pantry-api/internal/models"
	"github.com/pantrywatch/pantry-api/internal/notify"
	"github.com/pantrywatch/pantry-api/internal/services/ai"
	"github.com/pantrywatch/pantry-api/internal/services/scan"
	"go.uber.org/zap"
)

type fakeItemStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.GroceryItem
	order []uuid.UUID
}

func newFakeItemStore(items ...*models.GroceryItem) *fakeItemStore {
	s := &fakeItemStore{items: make(map[uuid.UUID]*models.GroceryItem)}
	for _, item := range items {
		s.items[item.ID] = item
		s.order = append(s.order, item.ID)
	}
	return s
}

func (s *fakeItemStore) Create(ctx context.Context, item *models.GroceryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.items[item.ID] = &cp
	s.order = append(s.order, item.ID)
	return nil
}

func (s *fakeItemStore) GetByID(ctx context.Context, id uuid.UUID) (*models.GroceryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *fakeItemStore) ListAll(ctx context.Context) ([]*models.GroceryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.GroceryItem, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.items[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeItemStore) Update(ctx context.Context, item *models.GroceryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return database.ErrNotFound
	}
	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *fakeItemStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ItemStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok || item.Status != from || item.Status == models.StatusCompleted {
		return false, nil
	}
	item.Status = to
	return true, nil
}

func (s *fakeItemStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func newTestItemHandler(store *fakeItemStore) (*ItemHandler, *notify.Notifier) {
	logger := zap.NewNop()
	notifier := notify.NewNotifier(logger)
	reconciler := lifecycle.NewReconciler(store, notifier, logger)
	generator := ai.NewService(nil, logger)
	scanner := scan.NewService(nil, logger)
	return NewItemHandler(store, reconciler, notifier, scanner, generator, nil, 3, logger), notifier
}

func itemRouter(h *ItemHandler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/items").Subrouter())
	r.HandleFunc("/sweep", h.Sweep).Methods("POST")
	return r
}

func drainEvents(sub *notify.Subscription) []notify.Event {
	var events []notify.Event
	for {
		select {
		case e := <-sub.C:
			events = append(events, e)
		default:
			return events
		}
	}
}

func dateFromNow(days int) string {
	return expiry.FormatDate(time.Now().AddDate(0, 0, days))
}

func decodeData(t *testing.T, body *bytes.Buffer, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body.Bytes(), &envelope); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("Expected success envelope, got %s", body.String())
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
}

func TestCreateItemPublishesAdded(t *testing.T) {
	t.Parallel()

	store := newFakeItemStore()
	handler, notifier := newTestItemHandler(store)
	sub := notifier.Subscribe()
	defer sub.Close()

	body := fmt.Sprintf(`{"productName":"Milk","category":"Dairy","quantity":1,"expiryDate":%q}`, dateFromNow(10))
	req := httptest.NewRequest("POST", "/items", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	itemRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var item models.GroceryItem
	decodeData(t, w.Body, &item)
	if item.Status != models.StatusActive {
		t.Errorf("Expected status active, got %s", item.Status)
	}
	if item.PurchaseDate == "" {
		t.Error("Expected purchase date to default to today")
	}

	events := drainEvents(sub)
	if len(events) != 1 || events[0].Type != notify.EventItemAdded {
		t.Fatalf("Expected one item_added event, got %v", events)
	}
}

func TestCreateItemWithinWindowAlsoPublishesNewlyExpiring(t *testing.T) {
	t.Parallel()

	store := newFakeItemStore()
	handler, notifier := newTestItemHandler(store)
	sub := notifier.Subscribe()
	defer sub.Close()

	body := fmt.Sprintf(`{"productName":"Yogurt","category":"Dairy","quantity":2,"expiryDate":%q}`, dateFromNow(2))
	req := httptest.NewRequest("POST", "/items", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	itemRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	events := drainEvents(sub)
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Type != notify.EventItemAdded || events[1].Type != notify.EventItemNewlyExpiring {
		t.Errorf("Expected item_added then item_newly_expiring, got %s, %s", events[0].Type, events[1].Type)
	}
}

func TestCreateItemExpiredDateStartsExpired(t *testing.T) {
	t.Parallel()

	store := newFakeItemStore()
	handler, notifier := newTestItemHandler(store)
	sub := notifier.Subscribe()
	defer sub.Close()

	body := fmt.Sprintf(`{"productName":"Old Bread","category":"Grains","quantity":1,"expiryDate":%q}`, dateFromNow(-2))
	req := httptest.NewRequest("POST", "/items", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	itemRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	var item models.GroceryItem
	decodeData(t, w.Body, &item)
	if item.Status != models.StatusExpired {
		t.Errorf("Expected status expired, got %s", item.Status)
	}

	// No newly-expiring event for already-expired items
	events := drainEvents(sub)
	if len(events) != 1 || events[0].Type != notify.EventItemAdded {
		t.Fatalf("Expected only item_added, got %v", events)
	}
}

func TestCreateItemInvalidCategory(t *testing.T) {
	t.Parallel()

	store := newFakeItemStore()
	handler, _ := newTestItemHandler(store)

	body := fmt.Sprintf(`{"productName":"Milk","category":"Produce","quantity":1,"expiryDate":%q}`, dateFromNow(5))
	req := httptest.NewRequest("POST", "/items", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	itemRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGetItemNotFound(t *testing.T) {
	t.Parallel()

	store := newFakeItemStore()
	handler, _ := newTestItemHandler(store)

	req := httptest.NewRequest("GET", "/items/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()

	itemRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestListItemsReconcilesStaleStatuses(t *testing.T) {
	t.Parallel()

	stale := &models.GroceryItem{
		ID:          uuid.New(),
		ProductName: "Spinach",
		Category:    models.CategoryVegetables,
		Quantity:    1,
		ExpiryDate:  dateFromNow(-1),
		Status:      models.StatusActive,
	}
	store := newFakeItemStore(stale)
	handler, _ := newTestItemHandler(store)

	req := httptest.NewRequest("GET", "/items", nil)
	w := httptest.NewRecorder()

	itemRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var items []*models.GroceryItem
	decodeData(t, w.Body, &items)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Status != models.StatusExpired {
		t.Errorf("Expected list to return reconciled expired status, got %s", items[0].Status)
	}

	persisted, _ := store.GetByID(context.Background(), stale.ID)
	if persisted.Status != models.StatusExpired {
		t.Errorf("Expected reconciled status to be persisted, got %s", persisted.Status)
	}
}

func TestUpdateItemCompletedWins(t *testing.T) {
	t.Parallel()

	item := &models.GroceryItem{
		ID:          uuid.New(),
		ProductName: "Cheese",
		Category:    models.CategoryDairy,
		Quantity:    1,
		ExpiryDate:  dateFromNow(-5),
		Status:      models.StatusExpired,
	}
	store := newFakeItemStore(item)
	handler, _ := newTestItemHandler(store)

	req := httptest.NewRequest("PATCH", "/items/"+item.ID.String(), bytes.NewBufferString(`{"status":"completed"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	itemRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated models.GroceryItem
	decodeData(t, w.Body, &updated)
	if updated.Status != models.StatusCompleted {
		t.Errorf("Expected status completed, got %s", updated.Status)
	}
	if updated.CompletedDate == nil {
		t.Error("Expected completed date to be set")
	}
}

func TestUpdateItemLeavingCompletedRederivesStatus(t *testing.T) {
	t.Parallel()

	completedDate := dateFromNow(0)
	item := &models.GroceryItem{
		ID:            uuid.New(),
		ProductName:   "Juice",
		Category:      models.CategoryBeverages,
		Quantity:      1,
		ExpiryDate:    dateFromNow(10),
		Status:        models.StatusCompleted,
		CompletedDate: &completedDate,
	}
	store := newFakeItemStore(item)
	handler, _ := newTestItemHandler(store)

	req := httptest.NewRequest("PATCH", "/items/"+item.ID.String(), bytes.NewBufferString(`{"status":"active"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	itemRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var updated models.GroceryItem
	decodeData(t, w.Body, &updated)
	if updated.Status != models.StatusActive {
		t.Errorf("Expected status active, got %s", updated.Status)
	}
	if updated.CompletedDate != nil {
		t.Error("Expected completed date to be cleared")
	}
}

func TestDeleteItemPublishesDeleted(t *testing.T) {
	t.Parallel()

	item := &models.GroceryItem{
		ID:          uuid.New(),
		ProductName: "Bananas",
		Category:    models.CategoryFruits,
		Quantity:    6,
		ExpiryDate:  dateFromNow(4),
		Status:      models.StatusActive,
	}
	store := newFakeItemStore(item)
	handler, notifier := newTestItemHandler(store)
	sub := notifier.Subscribe()
	defer sub.Close()

	req := httptest.NewRequest("DELETE", "/items/"+item.ID.String(), nil)
	w := httptest.NewRecorder()

	itemRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}

	events := drainEvents(sub)
	if len(events) != 1 || events[0].Type != notify.EventItemDeleted {
		t.Fatalf("Expected one item_deleted event, got %v", events)
	}
	if events[0].ItemID != item.ID.String() {
		t.Errorf("Expected itemId %s, got %s", item.ID, events[0].ItemID)
	}
}

func TestExpiringSoonOrderedAndWindowed(t *testing.T) {
	t.Parallel()

	later := &models.GroceryItem{
		ID: uuid.New(), ProductName: "Eggs", Category: models.CategoryDairy,
		Quantity: 12, ExpiryDate: dateFromNow(3), Status: models.StatusActive,
	}
	sooner := &models.GroceryItem{
		ID: uuid.New(), ProductName: "Fish", Category: models.CategoryMeat,
		Quantity: 1, ExpiryDate: dateFromNow(1), Status: models.StatusActive,
	}
	outside := &models.GroceryItem{
		ID: uuid.New(), ProductName: "Rice", Category: models.CategoryGrains,
		Quantity: 1, ExpiryDate: dateFromNow(30), Status: models.StatusActive,
	}
	store := newFakeItemStore(later, sooner, outside)
	handler, _ := newTestItemHandler(store)

	req := httptest.NewRequest("GET", "/items/expiring?days=5", nil)
	w := httptest.NewRecorder()

	itemRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var items []*models.GroceryItem
	decodeData(t, w.Body, &items)
	if len(items) != 2 {
		t.Fatalf("Expected 2 expiring items, got %d", len(items))
	}
	if items[0].ProductName != "Fish" || items[1].ProductName != "Eggs" {
		t.Errorf("Expected soonest first, got %s then %s", items[0].ProductName, items[1].ProductName)
	}
}

func TestExpiringSoonRejectsInvalidDays(t *testing.T) {
	t.Parallel()

	store := newFakeItemStore()
	handler, _ := newTestItemHandler(store)

	for _, days := range []string{"abc", "-1", "9999"} {
		req := httptest.NewRequest("GET", "/items/expiring?days="+days, nil)
		w := httptest.NewRecorder()

		itemRouter(handler).ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("days=%s: expected status 400, got %d", days, w.Code)
		}
	}
}

func TestSweepAnnouncesExpiringBatch(t *testing.T) {
	t.Parallel()

	expiring := &models.GroceryItem{
		ID: uuid.New(), ProductName: "Chicken", Category: models.CategoryMeat,
		Quantity: 1, ExpiryDate: dateFromNow(1), Status: models.StatusActive,
	}
	store := newFakeItemStore(expiring)
	handler, notifier := newTestItemHandler(store)
	sub := notifier.Subscribe()
	defer sub.Close()

	req := httptest.NewRequest("POST", "/sweep", nil)
	w := httptest.NewRecorder()

	itemRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	events := drainEvents(sub)
	if len(events) != 1 || events[0].Type != notify.EventItemsExpiring {
		t.Fatalf("Expected one items_expiring event, got %v", events)
	}
	if events[0].Message != "1 items are expiring soon!" {
		t.Errorf("Unexpected batch message: %q", events[0].Message)
	}
}

func TestScanLabelReturnsGuess(t *testing.T) {
	t.Parallel()

	store := newFakeItemStore()
	handler, _ := newTestItemHandler(store)

	body := `{"labelText":"Whole Milk 2L\nEXP 2026-12-01"}`
	req := httptest.NewRequest("POST", "/items/scan", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	itemRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var guess scan.LabelGuess
	decodeData(t, w.Body, &guess)
	if guess.Category != models.CategoryDairy {
		t.Errorf("Expected Dairy category, got %s", guess.Category)
	}
	if guess.ExpiryDate != "2026-12-01" {
		t.Errorf("Expected expiry 2026-12-01, got %s", guess.ExpiryDate)
	}
}

func TestWasteCostPricesExpiredItems(t *testing.T) {
	t.Parallel()

	expired := &models.GroceryItem{
		ID: uuid.New(), ProductName: "Steak", Category: models.CategoryMeat,
		Quantity: 2, ExpiryDate: dateFromNow(-3), Status: models.StatusExpired,
	}
	fresh := &models.GroceryItem{
		ID: uuid.New(), ProductName: "Apples", Category: models.CategoryFruits,
		Quantity: 4, ExpiryDate: dateFromNow(10), Status: models.StatusActive,
	}
	store := newFakeItemStore(expired, fresh)
	handler, _ := newTestItemHandler(store)

	req := httptest.NewRequest("POST", "/items/waste-cost", nil)
	w := httptest.NewRecorder()

	itemRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var result struct {
		Items []ai.WastedItem `json:"items"`
		Total float64         `json:"total"`
	}
	decodeData(t, w.Body, &result)
	if len(result.Items) != 1 {
		t.Fatalf("Expected 1 wasted item, got %d", len(result.Items))
	}
	// Meat fallback price is 6.00 per unit
	if result.Total != 12.0 {
		t.Errorf("Expected total 12.0, got %f", result.Total)
	}
}
