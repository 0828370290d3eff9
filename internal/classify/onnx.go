// Package classify recognizes coordinate glyphs in captured frames. The
// primary backend runs a YOLO-style ONNX detection model through OpenCV's
// DNN module; a Tesseract backend serves as a fallback when no model file
// is available.
package classify

import (
	"fmt"
	"image"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"game-navigator/internal/ocr"
	"game-navigator/pkg/geometry"
)

var clsLog zerolog.Logger = log.With().Str("module", "classify").Logger()

const (
	defaultInputSize    = 640
	defaultNMSThreshold = 0.45
)

// ONNX runs a single-class-per-glyph detection model exported to ONNX.
// The expected output is the YOLOv8 tensor layout, [1, 4+classes, anchors]
// or its transposed variant.
type ONNX struct {
	mu            sync.Mutex
	net           gocv.Net
	inputSize     int
	confThreshold float32
	nmsThreshold  float32
}

// NewONNX loads a detection model from disk.
func NewONNX(modelPath string, confidenceThreshold float64) (*ONNX, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("load model %s: network is empty", modelPath)
	}

	clsLog.Info().Str("model", modelPath).Msg("detection model loaded")
	return &ONNX{
		net:           net,
		inputSize:     defaultInputSize,
		confThreshold: float32(confidenceThreshold),
		nmsThreshold:  defaultNMSThreshold,
	}, nil
}

// Close releases the network.
func (c *ONNX) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}

// SetConfidenceThreshold changes the score cutoff for subsequent frames.
func (c *ONNX) SetConfidenceThreshold(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confThreshold = float32(v)
}

// Classify runs the model over one frame and returns the surviving glyph
// detections in image coordinates.
func (c *ONNX) Classify(img image.Image) ([]ocr.Detection, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	bounds := img.Bounds()
	scaleX := float64(bounds.Dx()) / float64(c.inputSize)
	scaleY := float64(bounds.Dy()) / float64(c.inputSize)

	blob := gocv.BlobFromImage(mat, 1.0/255.0,
		image.Pt(c.inputSize, c.inputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	c.mu.Lock()
	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	conf := c.confThreshold
	nms := c.nmsThreshold
	c.mu.Unlock()
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read model output: %w", err)
	}

	cands, err := decodeDetections(data, out.Size(), conf, scaleX, scaleY)
	if err != nil {
		return nil, err
	}
	return suppressOverlaps(cands, nms), nil
}

// decodeDetections converts a raw YOLO output tensor into candidate glyph
// detections. Box centers and sizes are in model input pixels and get mapped
// back to frame pixels through the scale factors.
func decodeDetections(data []float32, dims []int, conf float32, scaleX, scaleY float64) ([]ocr.Detection, error) {
	if len(dims) != 3 || dims[0] != 1 {
		return nil, fmt.Errorf("unexpected model output shape %v", dims)
	}

	// The v8 export is channels-first: the attribute axis (4 box terms plus
	// one score per class) is the shorter one.
	attrs, anchors := dims[1], dims[2]
	transposed := false
	if attrs > anchors {
		attrs, anchors = anchors, attrs
		transposed = true
	}
	if attrs <= 4 {
		return nil, fmt.Errorf("unexpected model output shape %v", dims)
	}
	if len(data) < attrs*anchors {
		return nil, fmt.Errorf("model output truncated: %d values for shape %v", len(data), dims)
	}

	at := func(attr, anchor int) float32 {
		if transposed {
			return data[anchor*attrs+attr]
		}
		return data[attr*anchors+anchor]
	}

	var cands []ocr.Detection
	for i := 0; i < anchors; i++ {
		bestClass, bestScore := -1, float32(0)
		for c := 4; c < attrs; c++ {
			if s := at(c, i); s > bestScore {
				bestScore = s
				bestClass = c - 4
			}
		}
		if bestClass < 0 || bestScore < conf {
			continue
		}

		cx, cy := float64(at(0, i)), float64(at(1, i))
		w, h := float64(at(2, i)), float64(at(3, i))
		cands = append(cands, ocr.Detection{
			ClassID: bestClass,
			Box: geometry.Box{
				X1: (cx - w/2) * scaleX,
				Y1: (cy - h/2) * scaleY,
				X2: (cx + w/2) * scaleX,
				Y2: (cy + h/2) * scaleY,
			},
			Confidence: float64(bestScore),
		})
	}
	return cands, nil
}

// suppressOverlaps runs greedy per-class non-maximum suppression.
func suppressOverlaps(cands []ocr.Detection, iouThreshold float32) []ocr.Detection {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Confidence > cands[j].Confidence
	})

	kept := make([]ocr.Detection, 0, len(cands))
	for _, c := range cands {
		drop := false
		for _, k := range kept {
			if k.ClassID == c.ClassID && boxIoU(k.Box, c.Box) > float64(iouThreshold) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, c)
		}
	}
	return kept
}

func boxIoU(a, b geometry.Box) float64 {
	ix1, iy1 := math.Max(a.X1, b.X1), math.Max(a.Y1, b.Y1)
	ix2, iy2 := math.Min(a.X2, b.X2), math.Min(a.Y2, b.Y2)
	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := a.Width()*a.Height() + b.Width()*b.Height() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
