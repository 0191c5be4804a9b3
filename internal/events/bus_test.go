package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbridge/bridge/internal/domain"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()

	var received []Event
	bus.Subscribe(func(e Event) {
		received = append(received, e)
	})

	s := &domain.Session{ID: "s-1"}
	bus.Publish(NewCreated(s, time.Now()))
	bus.Publish(NewStarted(s, time.Now()))

	require.Len(t, received, 2)
	assert.Equal(t, KindCreated, received[0].Kind())
	assert.Equal(t, KindStarted, received[1].Kind())
	assert.Equal(t, "s-1", received[0].SessionID())
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	count := 0
	unsubscribe := bus.Subscribe(func(Event) { count++ })

	s := &domain.Session{ID: "s-1"}
	bus.Publish(NewCreated(s, time.Now()))
	unsubscribe()
	bus.Publish(NewStarted(s, time.Now()))

	assert.Equal(t, 1, count)
}

func TestBusMultipleSubscribersIndependent(t *testing.T) {
	bus := NewBus()
	var a, b int
	bus.Subscribe(func(Event) { a++ })
	bus.Subscribe(func(Event) { b++ })

	bus.Publish(NewCreated(&domain.Session{ID: "s-1"}, time.Now()))

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}
