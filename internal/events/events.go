// Package events decouples the recognition worker from its consumers. The
// worker is the single producer; the UI layer, route recorder and broadcast
// server each consume their own bounded subscription channel.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"game-navigator/pkg/geometry"
)

var busLog zerolog.Logger = log.With().Str("module", "events").Logger()

// Type identifies the kind of pipeline event.
type Type int

const (
	// TypeCoordinates carries an accepted coordinate.
	TypeCoordinates Type = iota
	// TypeStateChanged carries a recognition state transition.
	TypeStateChanged
	// TypeDiagnostic carries the per-tick human-readable pipeline trace.
	TypeDiagnostic
	// TypeError carries an unrecoverable setup failure.
	TypeError
)

func (t Type) String() string {
	switch t {
	case TypeCoordinates:
		return "coordinates_detected"
	case TypeStateChanged:
		return "state_changed"
	case TypeDiagnostic:
		return "diagnostic"
	case TypeError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single notification from the recognition worker.
type Event struct {
	Type       Type
	Coordinate geometry.Coordinate // TypeCoordinates
	State      string              // TypeStateChanged
	Message    string              // TypeDiagnostic, TypeError
	Time       time.Time
}

// DefaultSubscriptionBuffer is the per-subscriber channel capacity.
const DefaultSubscriptionBuffer = 64

// Subscription is one consumer's bounded event channel.
type Subscription struct {
	C       <-chan Event
	ch      chan Event
	dropped atomic.Uint64
}

// Dropped returns how many events were discarded because this subscriber
// fell behind.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// that cannot keep up loses events rather than stalling the worker.
type Bus struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new consumer with the default buffer size.
func (b *Bus) Subscribe() *Subscription {
	return b.SubscribeBuffer(DefaultSubscriptionBuffer)
}

// SubscribeBuffer registers a new consumer with an explicit buffer size.
func (b *Bus) SubscribeBuffer(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscription{ch: make(chan Event, buffer)}
	sub.C = sub.ch

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs = append(b.subs, sub)
	return sub
}

// Unsubscribe removes a consumer and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

// Publish delivers an event to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			n := sub.dropped.Add(1)
			if n == 1 || n%100 == 0 {
				busLog.Warn().Uint64("dropped", n).Stringer("type", ev.Type).Msg("subscriber falling behind, dropping events")
			}
		}
	}
}

// Close closes every subscription channel. Further publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.ch)
	}
	b.subs = nil
}

// Coordinates publishes an accepted coordinate.
func (b *Bus) Coordinates(c geometry.Coordinate) {
	b.Publish(Event{Type: TypeCoordinates, Coordinate: c})
}

// StateChanged publishes a recognition state transition.
func (b *Bus) StateChanged(state string) {
	b.Publish(Event{Type: TypeStateChanged, State: state})
}

// Diagnostic publishes the per-tick pipeline trace.
func (b *Bus) Diagnostic(message string) {
	b.Publish(Event{Type: TypeDiagnostic, Message: message})
}

// Error publishes an unrecoverable setup failure.
func (b *Bus) Error(message string) {
	b.Publish(Event{Type: TypeError, Message: message})
}
