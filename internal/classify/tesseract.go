package classify

import (
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"

	"game-navigator/internal/ocr"
	"game-navigator/pkg/geometry"
)

// Tesseract recognizes coordinate glyphs one symbol at a time. It is the
// fallback backend for setups without a detection model; boxes come from
// Tesseract's symbol iterator and are mapped to class ids through the
// alphabet.
type Tesseract struct {
	client   *gosseract.Client
	alphabet *ocr.Alphabet
}

// NewTesseract creates the fallback recognizer.
func NewTesseract(alphabet *ocr.Alphabet) (*Tesseract, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("set recognizer language: %w", err)
	}

	// Coordinate readouts are not words; dictionary correction only
	// mangles them.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	return &Tesseract{client: client, alphabet: alphabet}, nil
}

// Close releases recognizer resources.
func (t *Tesseract) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}

// Classify recognizes the glyphs of one frame.
func (t *Tesseract) Classify(img image.Image) ([]ocr.Detection, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	processed := preprocessFrame(mat)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// PSM 7 = single text line, which is what the readout region is.
	if err := t.client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return nil, fmt.Errorf("set page mode: %w", err)
	}
	if err := t.client.SetWhitelist(t.alphabet.Whitelist()); err != nil {
		return nil, fmt.Errorf("set whitelist: %w", err)
	}
	if err := t.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_SYMBOL)
	if err != nil {
		return nil, fmt.Errorf("get symbol boxes: %w", err)
	}

	// The frame was upscaled before recognition; map boxes back.
	scale := float64(mat.Cols()) / float64(processed.Cols())

	var dets []ocr.Detection
	for _, box := range boxes {
		glyph := strings.TrimSpace(box.Word)
		class := t.alphabet.ClassOf(glyph)
		if class < 0 {
			continue
		}
		dets = append(dets, ocr.Detection{
			ClassID: class,
			Box: geometry.Box{
				X1: float64(box.Box.Min.X) * scale,
				Y1: float64(box.Box.Min.Y) * scale,
				X2: float64(box.Box.Max.X) * scale,
				Y2: float64(box.Box.Max.Y) * scale,
			},
			Confidence: box.Confidence / 100,
		})
	}
	return dets, nil
}
