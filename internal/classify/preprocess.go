package classify

import (
	"image"

	"gocv.io/x/gocv"
)

// preprocessFrame prepares a captured readout region for symbol recognition:
// upscale small crops, boost local contrast, binarize and normalize to dark
// text on a light background.
func preprocessFrame(frame gocv.Mat) gocv.Mat {
	h := frame.Rows()

	var scaled gocv.Mat
	if h < 150 {
		scale := 150.0 / float64(h)
		scaled = gocv.NewMat()
		gocv.Resize(frame, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		scaled = frame.Clone()
	}

	gray := gocv.NewMat()
	gocv.CvtColor(scaled, &gray, gocv.ColorBGRToGray)
	scaled.Close()

	clahe := gocv.NewCLAHEWithParams(2.0, image.Point{X: 8, Y: 8})
	defer clahe.Close()

	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)
	gray.Close()

	binary := gocv.NewMat()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	enhanced.Close()

	// The in-game readout is light text on a dark map. Tesseract wants the
	// opposite.
	whiteCount := gocv.CountNonZero(binary)
	total := binary.Rows() * binary.Cols()
	if total > 0 && float64(whiteCount)/float64(total) > 0.5 {
		gocv.BitwiseNot(binary, &binary)
	}

	result := gocv.NewMat()
	gocv.CvtColor(binary, &result, gocv.ColorGrayToBGR)
	binary.Close()

	return result
}
