package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pantrywatch/pantry-api/internal/database"
	"github.com/pantrywatch/pantry-api/internal/expiry"
	"github.com/pantrywatch/pantry-api/internal/models"
	"github.com/pantrywatch/pantry-api/internal/notify"
)

// Reconciler keeps stored item statuses in line with the calendar. Items
// flip between active and expired as their expiry date passes or moves;
// completed items are never touched.
type Reconciler struct {
	items    database.ItemStore
	notifier *notify.Notifier
	logger   *zap.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(items database.ItemStore, notifier *notify.Notifier, logger *zap.Logger) *Reconciler {
	return &Reconciler{items: items, notifier: notifier, logger: logger}
}

// Reconcile brings a single item's status up to date. Returns whether
// this call applied a transition. The conditional update in the store
// means that when several reconcilers race over the same item, only one
// observes the flip and publishes it.
func (r *Reconciler) Reconcile(ctx context.Context, item *models.GroceryItem, today time.Time) (bool, error) {
	if item.Status == models.StatusCompleted {
		return false, nil
	}

	verdict, err := expiry.Classify(item.ExpiryDate, today)
	if err != nil {
		return false, fmt.Errorf("classify item %s: %w", item.ID, err)
	}

	desired := models.StatusActive
	if verdict.IsExpired {
		desired = models.StatusExpired
	}

	if item.Status == desired {
		return false, nil
	}

	applied, err := r.items.UpdateStatus(ctx, item.ID, item.Status, desired)
	if err != nil {
		return false, fmt.Errorf("persist status for item %s: %w", item.ID, err)
	}
	if !applied {
		// Another reconciler or a user edit got there first.
		return false, nil
	}

	item.Status = desired
	r.notifier.Publish(notify.Event{Type: notify.EventItemUpdated, Item: item})

	r.logger.Info("item status reconciled",
		zap.String("item_id", item.ID.String()),
		zap.String("status", string(desired)),
		zap.Int("days_until_expiry", verdict.DaysUntilExpiry))

	return true, nil
}

// ReconcileAll reconciles every item in the slice in place. Items whose
// persistence fails are logged and skipped so one bad row cannot stall
// the rest. Returns the number of applied transitions.
func (r *Reconciler) ReconcileAll(ctx context.Context, items []*models.GroceryItem, today time.Time) int {
	changed := 0
	for _, item := range items {
		applied, err := r.Reconcile(ctx, item, today)
		if err != nil {
			r.logger.Error("failed to reconcile item",
				zap.String("item_id", item.ID.String()),
				zap.Error(err))
			continue
		}
		if applied {
			changed++
		}
	}
	return changed
}

// ExpiringSoon filters for active items expiring within windowDays of
// today, inclusive of items expiring today and on the final day. The
// result is ordered soonest first.
func ExpiringSoon(items []*models.GroceryItem, today time.Time, windowDays int) []*models.GroceryItem {
	var out []*models.GroceryItem
	days := make(map[*models.GroceryItem]int, len(items))

	for _, item := range items {
		if item.Status != models.StatusActive {
			continue
		}
		verdict, err := expiry.Classify(item.ExpiryDate, today)
		if err != nil || verdict.IsExpired {
			continue
		}
		if verdict.DaysUntilExpiry <= windowDays {
			days[item] = verdict.DaysUntilExpiry
			out = append(out, item)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return days[out[i]] < days[out[j]]
	})

	return out
}
