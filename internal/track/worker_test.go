package track

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-navigator/internal/events"
	"game-navigator/internal/ocr"
	"game-navigator/pkg/geometry"
)

type fakeSource struct {
	mu  sync.Mutex
	err error
}

func (f *fakeSource) Capture() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return image.NewRGBA(image.Rect(0, 0, 200, 50)), nil
}

// fakeClassifier replays scripted detection sets, repeating the last one.
type fakeClassifier struct {
	mu     sync.Mutex
	frames [][]ocr.Detection
	calls  int
	err    error
}

func (f *fakeClassifier) Classify(image.Image) ([]ocr.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls
	if i >= len(f.frames) {
		i = len(f.frames) - 1
	}
	f.calls++
	if i < 0 {
		return nil, nil
	}
	return f.frames[i], nil
}

func waitEvent(t *testing.T, sub *events.Subscription, want events.Type) events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-sub.C:
			require.True(t, ok, "bus closed while waiting for %s", want)
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func TestWorkerRequiresClassifier(t *testing.T) {
	w := NewWorker(&fakeSource{}, nil, newTestTracker(), nil, time.Millisecond)
	err := w.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoClassifier)
}

func TestWorkerPublishesCoordinates(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	sub := bus.Subscribe()

	cls := &fakeClassifier{frames: [][]ocr.Detection{glyphRow(t, "-1234,5678,90")}}
	w := NewWorker(&fakeSource{}, cls, newTestTracker(), bus, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	ev := waitEvent(t, sub, events.TypeStateChanged)
	assert.Equal(t, StateLocked.String(), ev.State)

	ev = waitEvent(t, sub, events.TypeCoordinates)
	assert.Equal(t, geometry.Coordinate{X: -1234, Y: 5678, Z: 90}, ev.Coordinate)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWorkerPublishesDiagnosticOnAcceptedTicks(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	sub := bus.Subscribe()

	cls := &fakeClassifier{frames: [][]ocr.Detection{glyphRow(t, "500,600,70")}}
	w := NewWorker(&fakeSource{}, cls, newTestTracker(), bus, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Readout displays follow the diagnostic stream, so it must keep
	// flowing while tracking succeeds, carrying the accepted coordinate.
	ev := waitEvent(t, sub, events.TypeDiagnostic)
	assert.Contains(t, ev.Message, "accepted=(500, 600, 70)")
}

func TestWorkerReportsClassifyFailureAsDiagnostic(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	sub := bus.Subscribe()

	cls := &fakeClassifier{err: errors.New("model not loaded")}
	w := NewWorker(&fakeSource{}, cls, newTestTracker(), bus, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	ev := waitEvent(t, sub, events.TypeDiagnostic)
	assert.Contains(t, ev.Message, "classify failed")
}

func TestWorkerReportsCaptureFailureAsDiagnostic(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	sub := bus.Subscribe()

	src := &fakeSource{err: errors.New("window not found")}
	cls := &fakeClassifier{frames: [][]ocr.Detection{glyphRow(t, "1,2,3")}}
	w := NewWorker(src, cls, newTestTracker(), bus, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	ev := waitEvent(t, sub, events.TypeDiagnostic)
	assert.Contains(t, ev.Message, "capture failed")
}

func TestWorkerTransitionsToLostOnRepeatedFailures(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	sub := bus.SubscribeBuffer(256)

	cls := &fakeClassifier{frames: [][]ocr.Detection{
		glyphRow(t, "100,200,10"),
		nil, // replayed forever, starving the tracker
	}}
	w := NewWorker(&fakeSource{}, cls, newTestTracker(), bus, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	ev := waitEvent(t, sub, events.TypeStateChanged)
	assert.Equal(t, StateLocked.String(), ev.State)

	ev = waitEvent(t, sub, events.TypeStateChanged)
	assert.Equal(t, StateLost.String(), ev.State)
}

func TestWorkerSetInterval(t *testing.T) {
	w := NewWorker(&fakeSource{}, &fakeClassifier{}, newTestTracker(), nil, time.Second)
	w.SetInterval(5 * time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, w.currentInterval())
}
