package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus dispatches domain events to subscribed handlers inside
// the current process. Handlers run asynchronously; a panicking handler is
// recovered and logged without affecting other handlers.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	// wildcard handlers receive every event type
	wildcard []shared.EventHandler

	running atomic.Bool
	wg      sync.WaitGroup
	logger  *zap.Logger
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers: make(map[string][]shared.EventHandler),
		logger:   logger.Named("eventbus"),
	}
}

// Start marks the bus as running. Events published before Start are dropped.
func (b *InMemoryEventBus) Start(_ context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return shared.NewDomainError("EVENT_BUS_RUNNING", "Event bus is already running")
	}
	b.logger.Info("event bus started")
	return nil
}

// Stop waits for in-flight handlers to finish or the context to expire
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("event bus stopped before all handlers finished")
		return ctx.Err()
	}
}

// Subscribe registers a handler for the given event types. With no event
// types the handler receives every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	if len(eventTypes) == 0 {
		b.wildcard = append(b.wildcard, handler)
		return
	}
	for _, et := range eventTypes {
		b.handlers[et] = append(b.handlers[et], handler)
	}
}

// Unsubscribe removes a handler from all subscription lists
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for et, hs := range b.handlers {
		b.handlers[et] = removeHandler(hs, handler)
	}
	b.wildcard = removeHandler(b.wildcard, handler)
}

// Publish dispatches the events to all matching handlers. Dispatch is
// asynchronous; Publish never blocks on handler execution.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.running.Load() {
		return shared.NewDomainError("EVENT_BUS_STOPPED", "Event bus is not running")
	}

	for _, evt := range events {
		b.mu.RLock()
		handlers := make([]shared.EventHandler, 0, len(b.handlers[evt.EventType()])+len(b.wildcard))
		handlers = append(handlers, b.handlers[evt.EventType()]...)
		handlers = append(handlers, b.wildcard...)
		b.mu.RUnlock()

		for _, h := range handlers {
			b.wg.Add(1)
			go b.dispatchToHandler(ctx, h, evt)
		}
	}
	return nil
}

func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, evt shared.DomainEvent) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event_type", evt.EventType()),
				zap.String("event_id", evt.EventID().String()),
				zap.Any("panic", r),
			)
		}
	}()

	if err := handler.Handle(ctx, evt); err != nil {
		b.logger.Error("event handler failed",
			zap.String("event_type", evt.EventType()),
			zap.String("event_id", evt.EventID().String()),
			zap.String("aggregate_id", evt.AggregateID().String()),
			zap.Error(err),
		)
	}
}

func removeHandler(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	out := handlers[:0]
	for _, h := range handlers {
		if h != target {
			out = append(out, h)
		}
	}
	return out
}
