package capture

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"game-navigator/pkg/geometry"
)

func TestCaptureRectAbsolute(t *testing.T) {
	r := captureRect(geometry.RectInt{X: 100, Y: 50, Width: 200, Height: 40}, 0, 0)
	assert.Equal(t, image.Rect(100, 50, 300, 90), r)
}

func TestCaptureRectWindowRelative(t *testing.T) {
	r := captureRect(geometry.RectInt{X: 10, Y: 20, Width: 200, Height: 40}, 300, 150)
	assert.Equal(t, image.Rect(310, 170, 510, 210), r)
}

func TestSettersTakeEffect(t *testing.T) {
	s := NewScreenSource(geometry.RectInt{X: 1, Y: 2, Width: 3, Height: 4}, "", ModeBitBlt)
	s.SetRegion(geometry.RectInt{X: 5, Y: 6, Width: 7, Height: 8})
	s.SetWindow("SCUM")
	s.SetMode(ModeRobotgo)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, geometry.RectInt{X: 5, Y: 6, Width: 7, Height: 8}, s.region)
	assert.Equal(t, "SCUM", s.windowName)
	assert.Equal(t, ModeRobotgo, s.mode)
}

func TestUnknownModeFallsBackToBitBlt(t *testing.T) {
	s := NewScreenSource(geometry.RectInt{}, "", "DXGI")
	assert.Equal(t, ModeBitBlt, s.mode)

	s.SetMode("nonsense")
	assert.Equal(t, ModeBitBlt, s.mode)
}
