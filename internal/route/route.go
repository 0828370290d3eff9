// Package route records traveled coordinate sequences to JSON files.
package route

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"game-navigator/internal/events"
	"game-navigator/pkg/geometry"
)

var routeLog zerolog.Logger = log.With().Str("module", "route").Logger()

// pointTimeLayout is the timestamp format stored with each route point.
const pointTimeLayout = "2006-01-02 15:04:05.000"

// duplicateFilterInterval drops points that arrive within this window of the
// previous one, so a stationary player does not inflate the route.
const duplicateFilterInterval = time.Second

// Point is a single recorded position.
type Point struct {
	X         int64  `json:"x"`
	Y         int64  `json:"y"`
	Z         int64  `json:"z"`
	Timestamp string `json:"timestamp"`
}

// Info is the header block of a stored route file.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedTime string `json:"created_time"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
	Duration    string `json:"duration"`
	TotalPoints int    `json:"total_points"`
}

// Route is a recorded coordinate sequence.
type Route struct {
	Info   Info    `json:"route_info"`
	Points []Point `json:"points"`
}

// Summary describes a stored route file without its points.
type Summary struct {
	Path        string
	Name        string
	CreatedTime string
	Duration    string
	PointCount  int
}

// Recorder accumulates accepted coordinates into routes and persists them.
// It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	dir       string
	recording bool
	current   *Route
	lastPoint time.Time

	now func() time.Time
}

// NewRecorder builds a recorder storing routes under dir, creating it if
// needed.
func NewRecorder(dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create routes directory: %w", err)
	}
	return &Recorder{dir: dir, now: time.Now}, nil
}

// Start begins a new recording. An empty name gets a generated one.
func (r *Recorder) Start(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return "", fmt.Errorf("already recording route %q", r.current.Info.Name)
	}

	now := r.now()
	if name == "" {
		name = "route_" + now.Format("20060102_150405")
	}
	r.current = &Route{Info: Info{
		ID:          uuid.NewString(),
		Name:        name,
		CreatedTime: now.Format("2006-01-02 15:04:05"),
		Duration:    "00:00:00",
	}}
	r.recording = true
	r.lastPoint = time.Time{}

	routeLog.Info().Str("name", name).Msg("route recording started")
	return name, nil
}

// Record appends a coordinate to the active route. Points arriving faster
// than the duplicate filter interval are skipped. Returns whether the point
// was stored.
func (r *Recorder) Record(c geometry.Coordinate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording || r.current == nil {
		return false
	}

	now := r.now()
	if !r.lastPoint.IsZero() && now.Sub(r.lastPoint) < duplicateFilterInterval {
		return false
	}
	r.lastPoint = now

	ts := now.Format(pointTimeLayout)
	r.current.Points = append(r.current.Points, Point{X: c.X, Y: c.Y, Z: c.Z, Timestamp: ts})
	r.current.Info.TotalPoints = len(r.current.Points)
	if r.current.Info.StartTime == "" {
		r.current.Info.StartTime = ts
	}
	r.current.Info.EndTime = ts
	r.current.Info.Duration = formatDuration(r.current.Info.StartTime, ts)
	return true
}

// Stop finishes the active recording and writes it to disk, returning the
// file path.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording || r.current == nil {
		return "", fmt.Errorf("no recording in progress")
	}

	path, err := r.save(r.current)
	if err != nil {
		return "", err
	}

	routeLog.Info().
		Str("name", r.current.Info.Name).
		Int("points", r.current.Info.TotalPoints).
		Str("file", path).
		Msg("route recording stopped")

	r.recording = false
	r.current = nil
	r.lastPoint = time.Time{}
	return path, nil
}

// Recording reports whether a route is currently being recorded, along with
// its name and point count.
func (r *Recorder) Recording() (bool, string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording || r.current == nil {
		return false, "", 0
	}
	return true, r.current.Info.Name, r.current.Info.TotalPoints
}

// save writes the route to a sanitized, collision-free file name. Must be
// called with the mutex held.
func (r *Recorder) save(route *Route) (string, error) {
	base := sanitizeFilename(route.Info.Name)
	if base == "" {
		base = route.Info.ID
	}

	path := filepath.Join(r.dir, base+".json")
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(r.dir, fmt.Sprintf("%s_%d.json", base, counter))
	}

	data, err := json.MarshalIndent(route, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode route: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write route: %w", err)
	}
	return path, nil
}

// Load reads a stored route file.
func Load(path string) (*Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route: %w", err)
	}
	var route Route
	if err := json.Unmarshal(data, &route); err != nil {
		return nil, fmt.Errorf("parse route %s: %w", path, err)
	}
	return &route, nil
}

// List returns summaries of all stored routes, newest first.
func (r *Recorder) List() ([]Summary, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}

	type stamped struct {
		sum Summary
		mod time.Time
	}
	var found []stamped
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(r.dir, e.Name())
		route, err := Load(path)
		if err != nil {
			routeLog.Warn().Err(err).Str("file", path).Msg("skipping unreadable route file")
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, stamped{
			sum: Summary{
				Path:        path,
				Name:        route.Info.Name,
				CreatedTime: route.Info.CreatedTime,
				Duration:    route.Info.Duration,
				PointCount:  route.Info.TotalPoints,
			},
			mod: info.ModTime(),
		})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].mod.After(found[j].mod) })

	sums := make([]Summary, len(found))
	for i, f := range found {
		sums[i] = f.sum
	}
	return sums, nil
}

// Delete removes a stored route file. Paths outside the routes directory are
// refused.
func (r *Recorder) Delete(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(r.dir)
	if err != nil {
		return err
	}
	if filepath.Dir(abs) != dir {
		return fmt.Errorf("route file %s is outside the routes directory", path)
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	return nil
}

// Run consumes accepted coordinates from the bus until the context is
// cancelled, recording them whenever a recording is active.
func (r *Recorder) Run(ctx context.Context, bus *events.Bus) {
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if ev.Type == events.TypeCoordinates {
				r.Record(ev.Coordinate)
			}
		}
	}
}

// sanitizeFilename keeps only characters that are safe in a file name.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '.' || c == '_' || c == '-' || c == ' ':
			b.WriteRune(c)
		}
	}
	return strings.TrimSpace(b.String())
}

// formatDuration renders the span between two point timestamps as HH:MM:SS.
func formatDuration(start, end string) string {
	s, err1 := time.Parse(pointTimeLayout, start)
	e, err2 := time.Parse(pointTimeLayout, end)
	if err1 != nil || err2 != nil {
		return "00:00:00"
	}
	d := e.Sub(s)
	if d < 0 {
		return "00:00:00"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}
