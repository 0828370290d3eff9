package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-navigator/pkg/geometry"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()

	coord := geometry.Coordinate{X: 1, Y: 2, Z: 3}
	bus.Coordinates(coord)

	for _, sub := range []*Subscription{a, b} {
		select {
		case ev := <-sub.C:
			assert.Equal(t, TypeCoordinates, ev.Type)
			assert.Equal(t, coord, ev.Coordinate)
			assert.False(t, ev.Time.IsZero())
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	sub := bus.SubscribeBuffer(2)

	for i := 0; i < 5; i++ {
		bus.Diagnostic("tick")
	}

	assert.Equal(t, uint64(3), sub.Dropped())

	// The two buffered events are still readable.
	for i := 0; i < 2; i++ {
		select {
		case ev := <-sub.C:
			assert.Equal(t, TypeDiagnostic, ev.Type)
		default:
			t.Fatal("buffered event missing")
		}
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	bus.Unsubscribe(sub)

	_, ok := <-sub.C
	assert.False(t, ok)

	// Publishing after unsubscribe must not panic.
	bus.StateChanged("LOCKED")
}

func TestBusClose(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	bus.Close()

	_, ok := <-sub.C
	assert.False(t, ok)

	bus.Error("ignored after close")

	// Subscribing after close yields an already-closed channel.
	late := bus.Subscribe()
	_, ok = <-late.C
	assert.False(t, ok)
}

func TestEventTypeStrings(t *testing.T) {
	assert.Equal(t, "coordinates_detected", TypeCoordinates.String())
	assert.Equal(t, "state_changed", TypeStateChanged.String())
	assert.Equal(t, "diagnostic", TypeDiagnostic.String())
	assert.Equal(t, "error", TypeError.String())
}

func TestBusStateChangedPayload(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	bus.StateChanged("LOST")
	ev := <-sub.C
	require.Equal(t, TypeStateChanged, ev.Type)
	assert.Equal(t, "LOST", ev.State)
}
