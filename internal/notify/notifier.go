package notify

import (
	"sync"

	"go.uber.org/zap"
)

const subscriberBuffer = 16

// Notifier fans inventory change events out to all active subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the
// event and the drop is logged.
type Notifier struct {
	logger *zap.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]chan Event
	closed bool
}

// Subscription is one subscriber's feed of events. Close unregisters it.
type Subscription struct {
	C      <-chan Event
	id     uint64
	n      *Notifier
	closer sync.Once
}

// NewNotifier creates a notifier hub
func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{
		logger: logger,
		subs:   make(map[uint64]chan Event),
	}
}

// Subscribe registers a new subscriber. The returned subscription must be
// closed when the consumer goes away or its channel leaks.
func (n *Notifier) Subscribe() *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if n.closed {
		close(ch)
		return &Subscription{C: ch, n: n}
	}

	n.nextID++
	id := n.nextID
	n.subs[id] = ch

	return &Subscription{C: ch, id: id, n: n}
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.closer.Do(func() {
		if s.n == nil {
			return
		}
		s.n.mu.Lock()
		defer s.n.mu.Unlock()
		if ch, ok := s.n.subs[s.id]; ok {
			delete(s.n.subs, s.id)
			close(ch)
		}
	})
}

// Publish delivers the event to every current subscriber without blocking.
// The read lock is held across the sends so a concurrent Close cannot close
// a channel mid-publish; the sends never block, so holding it is safe.
func (n *Notifier) Publish(event Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.subs {
		select {
		case ch <- event:
		default:
			n.logger.Warn("dropped notification for slow subscriber",
				zap.String("event_type", string(event.Type)))
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Close shuts the hub down, closing every subscriber channel. Publish
// becomes a no-op afterwards.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}
