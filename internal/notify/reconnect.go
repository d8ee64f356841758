package notify

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// State describes where a reconnecting subscriber is in its lifecycle.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateBackoff    State = "backoff"
	StateClosed     State = "closed"
)

// EventSource is a live stream of events. Next blocks until an event
// arrives, the stream fails, or the context is cancelled.
type EventSource interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// DialFunc establishes a new event stream.
type DialFunc func(ctx context.Context) (EventSource, error)

// ReconnectingSubscriber consumes an event stream and transparently
// re-establishes it with exponential backoff when it drops. Events are
// delivered to the handler in arrival order; events emitted while the
// stream is down are lost, so consumers that need a consistent view
// should re-fetch state after each reconnect.
type ReconnectingSubscriber struct {
	dial    DialFunc
	handler func(Event)
	logger  *zap.Logger

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewReconnectingSubscriber creates a subscriber that is not yet connected.
func NewReconnectingSubscriber(dial DialFunc, handler func(Event), logger *zap.Logger) *ReconnectingSubscriber {
	return &ReconnectingSubscriber{
		dial:    dial,
		handler: handler,
		logger:  logger,
		state:   StateConnecting,
	}
}

// State returns the current connection state.
func (s *ReconnectingSubscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect starts the consume loop. Calling it again while running is a
// no-op.
func (s *ReconnectingSubscriber) Connect(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.state == StateClosed {
		return
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx)
}

// Close stops the subscriber permanently and waits for the loop to exit.
func (s *ReconnectingSubscriber) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *ReconnectingSubscriber) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateClosed {
		s.state = state
	}
}

func (s *ReconnectingSubscriber) run(ctx context.Context) {
	defer close(s.done)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0 // retry forever until closed

	for {
		s.setState(StateConnecting)
		src, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.setState(StateBackoff)
			wait := policy.NextBackOff()
			s.logger.Warn("event stream dial failed, backing off",
				zap.Error(err),
				zap.Duration("backoff", wait))
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}

		policy.Reset()
		s.setState(StateOpen)
		s.logger.Info("event stream connected")

		if err := s.consume(ctx, src); err != nil && ctx.Err() == nil {
			s.logger.Warn("event stream dropped", zap.Error(err))
		}
		_ = src.Close()

		if ctx.Err() != nil {
			return
		}
	}
}

func (s *ReconnectingSubscriber) consume(ctx context.Context, src EventSource) error {
	for {
		event, err := src.Next(ctx)
		if err != nil {
			return err
		}
		s.handler(event)
	}
}
