package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	types  []string
	err    error
	panics bool
}

func (h *recordingHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, evt)
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func newTestEvent(eventType string) shared.DomainEvent {
	evt := shared.NewBaseDomainEvent(eventType, "Order", uuid.New())
	return &evt
}

func startedBus(t *testing.T) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	return bus
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestInMemoryEventBusPublish(t *testing.T) {
	t.Run("delivers to type-specific handlers", func(t *testing.T) {
		bus := startedBus(t)
		h := &recordingHandler{types: []string{"order.confirmed"}}
		bus.Subscribe(h)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("order.confirmed")))
		require.NoError(t, bus.Publish(context.Background(), newTestEvent("order.created")))

		waitFor(t, func() bool { return h.count() == 1 })
		assert.Equal(t, "order.confirmed", h.events[0].EventType())
	})

	t.Run("handler without types receives all events", func(t *testing.T) {
		bus := startedBus(t)
		h := &recordingHandler{}
		bus.Subscribe(h)

		require.NoError(t, bus.Publish(context.Background(),
			newTestEvent("order.confirmed"), newTestEvent("stock.allocated")))

		waitFor(t, func() bool { return h.count() == 2 })
	})

	t.Run("rejects publish when not running", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		err := bus.Publish(context.Background(), newTestEvent("order.confirmed"))
		require.Error(t, err)
	})

	t.Run("panicking handler does not poison the bus", func(t *testing.T) {
		bus := startedBus(t)
		bad := &recordingHandler{panics: true}
		good := &recordingHandler{}
		bus.Subscribe(bad, "order.confirmed")
		bus.Subscribe(good, "order.confirmed")

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("order.confirmed")))
		waitFor(t, func() bool { return good.count() == 1 })
	})
}

func TestInMemoryEventBusUnsubscribe(t *testing.T) {
	bus := startedBus(t)
	h := &recordingHandler{}
	bus.Subscribe(h, "order.confirmed")
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("order.confirmed")))

	// Deliveries are asynchronous, give any stray dispatch a moment
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, h.count())
}

func TestInMemoryEventBusLifecycle(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	require.Error(t, bus.Start(context.Background()), "double start rejected")

	require.NoError(t, bus.Stop(context.Background()))
	require.NoError(t, bus.Stop(context.Background()), "double stop is a no-op")
}
