// Package capture grabs the on-screen coordinate readout region.
package capture

import (
	"fmt"
	"image"
	"sync"

	"github.com/go-vgo/robotgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vova616/screenshot"

	"game-navigator/pkg/geometry"
)

var capLog zerolog.Logger = log.With().Str("module", "capture").Logger()

// Capture backends. BitBlt grabs frames through the native screenshot
// bindings; robotgo routes them through robotgo's capture call instead,
// for displays where the native path returns stale frames.
const (
	ModeBitBlt  = "BitBlt"
	ModeRobotgo = "robotgo"
)

// ScreenSource captures a fixed screen region. When a target window name is
// set, the region is interpreted relative to that window's top-left corner;
// otherwise it is absolute on the primary display. An empty region captures
// the whole screen.
type ScreenSource struct {
	mu         sync.Mutex
	region     geometry.RectInt
	windowName string
	mode       string
}

// NewScreenSource builds a capture source for the given region. Unknown
// modes fall back to BitBlt.
func NewScreenSource(region geometry.RectInt, windowName, mode string) *ScreenSource {
	if mode != ModeRobotgo {
		mode = ModeBitBlt
	}
	return &ScreenSource{region: region, windowName: windowName, mode: mode}
}

// SetRegion changes the capture region for subsequent frames.
func (s *ScreenSource) SetRegion(r geometry.RectInt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.region = r
}

// SetWindow changes the target window for subsequent frames. An empty name
// switches back to absolute screen coordinates.
func (s *ScreenSource) SetWindow(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windowName = name
}

// SetMode switches the capture backend for subsequent frames.
func (s *ScreenSource) SetMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode != ModeRobotgo {
		mode = ModeBitBlt
	}
	s.mode = mode
}

// Capture grabs one frame of the configured region.
func (s *ScreenSource) Capture() (image.Image, error) {
	s.mu.Lock()
	region := s.region
	window := s.windowName
	mode := s.mode
	s.mu.Unlock()

	if region.Empty() {
		if mode == ModeRobotgo {
			img := robotgo.CaptureImg()
			if img == nil {
				return nil, fmt.Errorf("capture screen: robotgo returned no frame")
			}
			return img, nil
		}
		img, err := screenshot.CaptureScreen()
		if err != nil {
			return nil, fmt.Errorf("capture screen: %w", err)
		}
		return img, nil
	}

	offX, offY := 0, 0
	if window != "" {
		x, y, ok := windowOrigin(window)
		if ok {
			offX, offY = x, y
		} else {
			capLog.Debug().Str("window", window).Msg("target window not found, using absolute coordinates")
		}
	}

	rect := captureRect(region, offX, offY)
	if mode == ModeRobotgo {
		img := robotgo.CaptureImg(rect.Min.X, rect.Min.Y, region.Width, region.Height)
		if img == nil {
			return nil, fmt.Errorf("capture region: robotgo returned no frame")
		}
		return img, nil
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("capture region: %w", err)
	}
	return img, nil
}

// windowOrigin locates the top-left corner of the first window matching the
// given title.
func windowOrigin(name string) (int, int, bool) {
	ids, err := robotgo.FindIds(name)
	if err != nil || len(ids) == 0 {
		return 0, 0, false
	}
	x, y, _, _ := robotgo.GetBounds(ids[0])
	return x, y, true
}

func captureRect(region geometry.RectInt, offX, offY int) image.Rectangle {
	return image.Rect(
		offX+region.X,
		offY+region.Y,
		offX+region.X+region.Width,
		offY+region.Y+region.Height,
	)
}
