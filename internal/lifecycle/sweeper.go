package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pantrywatch/pantry-api/internal/database"
	"github.com/pantrywatch/pantry-api/internal/notify"
)

// Sweeper periodically reconciles the whole inventory so statuses stay
// fresh even when nobody is reading the list. After each pass it
// broadcasts a batch notification for items inside the expiring window.
type Sweeper struct {
	items      database.ItemStore
	reconciler *Reconciler
	notifier   *notify.Notifier
	logger     *zap.Logger
	interval   time.Duration
	windowDays int
	now        func() time.Time
}

// NewSweeper creates a sweeper
func NewSweeper(items database.ItemStore, reconciler *Reconciler, notifier *notify.Notifier, logger *zap.Logger, interval time.Duration, windowDays int) *Sweeper {
	return &Sweeper{
		items:      items,
		reconciler: reconciler,
		notifier:   notifier,
		logger:     logger,
		interval:   interval,
		windowDays: windowDays,
		now:        time.Now,
	}
}

// Start runs the sweep loop until ctx is cancelled. The first sweep runs
// immediately so a restart does not wait a full interval to catch up.
func (s *Sweeper) Start(ctx context.Context) error {
	if err := s.Sweep(ctx); err != nil {
		s.logger.Error("initial sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep runs a single reconciliation pass over the full inventory.
func (s *Sweeper) Sweep(ctx context.Context) error {
	today := s.now()

	items, err := s.items.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list items for sweep: %w", err)
	}

	changed := s.reconciler.ReconcileAll(ctx, items, today)

	expiring := ExpiringSoon(items, today, s.windowDays)
	if len(expiring) > 0 {
		s.notifier.Publish(notify.Event{
			Type:    notify.EventItemsExpiring,
			Items:   expiring,
			Message: fmt.Sprintf("%d items are expiring soon!", len(expiring)),
		})
	}

	s.logger.Info("sweep completed",
		zap.Int("items", len(items)),
		zap.Int("transitions", changed),
		zap.Int("expiring_soon", len(expiring)))

	return nil
}
