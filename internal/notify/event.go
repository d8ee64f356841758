package notify

import "github.com/pantrywatch/pantry-api/internal/models"

// EventType identifies what kind of inventory change an event describes.
type EventType string

const (
	EventItemAdded         EventType = "item_added"
	EventItemUpdated       EventType = "item_updated"
	EventItemDeleted       EventType = "item_deleted"
	EventItemNewlyExpiring EventType = "item_newly_expiring"
	EventItemsExpiring     EventType = "items_expiring"
)

// Event is the envelope broadcast to every subscriber. Only the fields
// relevant to the event type are populated; the rest are omitted from
// the JSON encoding.
type Event struct {
	Type    EventType             `json:"type"`
	Item    *models.GroceryItem   `json:"item,omitempty"`
	Items   []*models.GroceryItem `json:"items,omitempty"`
	ItemID  string                `json:"itemId,omitempty"`
	Message string                `json:"message,omitempty"`
}
