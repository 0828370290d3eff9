package track

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"game-navigator/internal/events"
	"game-navigator/internal/ocr"
)

// FrameSource produces screenshots of the coordinate readout region.
type FrameSource interface {
	Capture() (image.Image, error)
}

// Classifier recognizes glyph detections in a captured frame.
type Classifier interface {
	Classify(img image.Image) ([]ocr.Detection, error)
}

// ErrNoClassifier is returned when a worker is started without a recognizer.
var ErrNoClassifier = errors.New("track: no classifier configured")

// Worker drives the tracker on a fixed sampling interval. Each tick captures
// a frame, classifies it and feeds the detections through the tracker,
// publishing results on the event bus.
type Worker struct {
	source     FrameSource
	classifier Classifier
	tracker    *Tracker
	bus        *events.Bus

	mu       sync.Mutex
	interval time.Duration
}

// NewWorker assembles a polling worker. The bus may be nil, in which case
// results are only observable through the tracker itself.
func NewWorker(source FrameSource, classifier Classifier, tracker *Tracker, bus *events.Bus, interval time.Duration) *Worker {
	return &Worker{
		source:     source,
		classifier: classifier,
		tracker:    tracker,
		bus:        bus,
		interval:   interval,
	}
}

// SetInterval changes the sampling interval for subsequent ticks.
func (w *Worker) SetInterval(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interval = d
}

// SetParams forwards new thresholds to the tracker.
func (w *Worker) SetParams(p Params) {
	w.tracker.SetParams(p)
}

// Tracker exposes the underlying state machine.
func (w *Worker) Tracker() *Tracker {
	return w.tracker
}

// Run polls until the context is cancelled. The time spent processing a tick
// is subtracted from the sleep so the sampling rate stays close to the
// configured interval. Per-tick capture or recognition failures are reported
// as diagnostics and never stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	if w.classifier == nil {
		return ErrNoClassifier
	}
	if w.source == nil {
		return errors.New("track: no frame source configured")
	}

	trackLog.Info().Dur("interval", w.currentInterval()).Msg("worker started")
	defer trackLog.Info().Msg("worker stopped")

	for {
		start := time.Now()
		w.tick()

		sleep := w.currentInterval() - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (w *Worker) currentInterval() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.interval
}

// tick runs one capture-classify-evaluate cycle.
func (w *Worker) tick() {
	frame, err := w.source.Capture()
	if err != nil {
		w.diagnostic("capture failed: " + err.Error())
		return
	}
	if frame == nil {
		w.diagnostic("capture returned no frame")
		return
	}

	detections, err := w.classifier.Classify(frame)
	if err != nil {
		w.diagnostic("classify failed: " + err.Error())
		return
	}

	res := w.tracker.Evaluate(detections)
	if w.bus == nil {
		return
	}
	if res.StateChanged {
		w.bus.StateChanged(res.State.String())
	}
	if res.Accepted {
		w.bus.Coordinates(res.Coordinate)
	}
	// The pipeline trace goes out every tick, success included.
	w.bus.Diagnostic(res.Diagnostic)
}

func (w *Worker) diagnostic(msg string) {
	trackLog.Debug().Msg(msg)
	if w.bus != nil {
		w.bus.Diagnostic(msg)
	}
}
