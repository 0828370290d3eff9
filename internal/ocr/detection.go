package ocr

import (
	"game-navigator/pkg/geometry"
)

// Detection is a single classified glyph for one sampling tick.
type Detection struct {
	ClassID    int
	Box        geometry.Box
	Confidence float64
}

// Cluster is a run of detections grouped into a word-like unit.
// Detections are sorted by Box.X1 ascending and Text holds the decoded
// glyph of each detection in the same order.
type Cluster struct {
	Text       string
	Detections []Detection
}
