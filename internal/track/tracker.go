// Package track implements the coordinate tracking state machine and the
// polling worker that drives it.
package track

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"game-navigator/internal/ocr"
	"game-navigator/pkg/geometry"
)

var trackLog zerolog.Logger = log.With().Str("module", "track").Logger()

// Params are the tunable thresholds of the tracker. They can be replaced at
// runtime through SetParams.
type Params struct {
	// MaxSpeedThreshold is the largest horizontal displacement accepted
	// between two consecutive reads while locked.
	MaxSpeedThreshold float64
	// ZAxisThreshold is the largest height displacement accepted between
	// two consecutive reads while locked.
	ZAxisThreshold int64
	// LostThresholdFrames is the number of consecutive failed ticks while
	// locked before the tracker gives up the lock.
	LostThresholdFrames int
	// EMAAlpha is stored for forward compatibility; coordinates are
	// reported unsmoothed.
	EMAAlpha float64
}

// DefaultParams returns the thresholds used when none are configured.
func DefaultParams() Params {
	return Params{
		MaxSpeedThreshold:   1000,
		ZAxisThreshold:      50,
		LostThresholdFrames: 5,
		EMAAlpha:            0.3,
	}
}

// Result describes the outcome of a single tracking tick.
type Result struct {
	State        State
	StateChanged bool
	Accepted     bool
	Coordinate   geometry.Coordinate
	Text         string
	JumpRejected bool
	Diagnostic   string
}

// Tracker turns per-tick glyph detections into a validated coordinate
// stream. It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	params    Params
	clusterer *ocr.Clusterer
	parser    *ocr.Parser

	state     State
	last      geometry.Coordinate
	hasLast   bool
	failures  int
	lastValid []ocr.Detection
}

// NewTracker builds a tracker over the given alphabet.
func NewTracker(alphabet *ocr.Alphabet, params Params) *Tracker {
	return &Tracker{
		params:    params,
		clusterer: ocr.NewClusterer(alphabet),
		parser:    ocr.NewParser(alphabet),
		state:     StateSearching,
	}
}

// SetParams replaces the thresholds for subsequent ticks.
func (t *Tracker) SetParams(p Params) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.params = p
}

// State returns the current tracking state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LastCoordinate returns the most recently accepted coordinate, if any.
func (t *Tracker) LastCoordinate() (geometry.Coordinate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.hasLast
}

// LastValidDetections returns the detections of the last accepted read.
func (t *Tracker) LastValidDetections() []ocr.Detection {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ocr.Detection, len(t.lastValid))
	copy(out, t.lastValid)
	return out
}

// Reset returns the tracker to its initial searching state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateSearching
	t.hasLast = false
	t.failures = 0
	t.lastValid = nil
}

// Evaluate runs one tracking tick over the detections of a captured frame.
func (t *Tracker) Evaluate(detections []ocr.Detection) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	clusters := t.clusterer.Cluster(detections)
	best, details := ocr.SelectBest(clusters)

	res := Result{
		Diagnostic: fmt.Sprintf("detections=%d clusters=%d", len(detections), len(clusters)),
	}

	if best == nil {
		res.Diagnostic += selectionSummary(details)
		return t.registerFailure(res)
	}

	coord, text, err := t.parser.Parse(best.Detections)
	if err != nil {
		res.Diagnostic += fmt.Sprintf(" text=%q err=%v", best.Text, err)
		res.Diagnostic += selectionSummary(details)
		return t.registerFailure(res)
	}
	res.Text = text

	if t.state == StateLocked && t.hasLast {
		dz := coord.Z - t.last.Z
		if dz < 0 {
			dz = -dz
		}
		dist := coord.HorizontalDistance(t.last)
		if dz > t.params.ZAxisThreshold || dist > t.params.MaxSpeedThreshold {
			res.JumpRejected = true
			res.Diagnostic += fmt.Sprintf(" jump dz=%d dist=%.0f from=%s to=%s",
				dz, dist, t.last, coord)
			trackLog.Warn().
				Stringer("from", t.last).
				Stringer("to", coord).
				Int64("dz", dz).
				Float64("dist", dist).
				Msg("rejected coordinate jump")
			return t.registerFailure(res)
		}
	}

	prev := t.state
	t.state = StateLocked
	t.last = coord
	t.hasLast = true
	t.failures = 0
	t.lastValid = append(t.lastValid[:0], best.Detections...)

	res.State = t.state
	res.StateChanged = prev != t.state
	res.Accepted = true
	res.Coordinate = coord
	res.Diagnostic += fmt.Sprintf(" accepted=%s", coord)
	if res.StateChanged {
		trackLog.Info().
			Stringer("coord", coord).
			Str("from", prev.String()).
			Msg("tracking locked")
	}
	return res
}

// selectionSummary renders the per-cluster match decisions so a failed tick's
// diagnostic shows which texts were seen and why none was chosen.
func selectionSummary(details []ocr.SelectionDetail) string {
	var sb strings.Builder
	for _, d := range details {
		verdict := "rejected"
		if d.Matched {
			verdict = "matched"
		}
		fmt.Fprintf(&sb, " cluster=%q %s (%s)", d.Cleaned, verdict, d.Reason)
	}
	return sb.String()
}

// registerFailure records a failed tick and applies the lock timeout. Must be
// called with the mutex held.
func (t *Tracker) registerFailure(res Result) Result {
	prev := t.state
	t.failures++
	if t.state == StateLocked && t.failures >= t.params.LostThresholdFrames {
		t.state = StateLost
		trackLog.Warn().
			Int("failures", t.failures).
			Msg("tracking lost")
	}
	res.State = t.state
	res.StateChanged = prev != t.state
	res.Diagnostic += fmt.Sprintf(" state=%s failures=%d", t.state, t.failures)
	return res
}
