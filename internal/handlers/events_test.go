package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pantrywatch/pantry-api/internal/models"
	"github.com/pantrywatch/pantry-api/internal/notify"
	"go.uber.org/zap"
)

func TestEventsStreamDeliversEvents(t *testing.T) {
	t.Parallel()

	notifier := notify.NewNotifier(zap.NewNop())
	handler := NewEventsHandler(notifier, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.Stream(w, req)
		close(done)
	}()

	// Wait for the subscriber to register before publishing
	deadline := time.Now().Add(2 * time.Second)
	for notifier.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	notifier.Publish(notify.Event{
		Type: notify.EventItemAdded,
		Item: &models.GroceryItem{ProductName: "Milk"},
	})

	// Give the handler a moment to write the event, then end the stream
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, ": connected") {
		t.Error("Expected initial connected comment")
	}
	if !strings.Contains(body, "event: item_added") {
		t.Errorf("Expected item_added event in stream, got %q", body)
	}
	if !strings.Contains(body, `"productName":"Milk"`) {
		t.Errorf("Expected item payload in stream, got %q", body)
	}

	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Expected text/event-stream content type, got %q", got)
	}
}

func TestEventsStreamEndsWhenNotifierCloses(t *testing.T) {
	t.Parallel()

	notifier := notify.NewNotifier(zap.NewNop())
	handler := NewEventsHandler(notifier, zap.NewNop())

	req := httptest.NewRequest("GET", "/events", nil)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.Stream(w, req)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for notifier.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	notifier.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stream did not end after notifier close")
	}
}
