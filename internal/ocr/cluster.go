package ocr

import (
	"sort"
	"strings"
)

// Clustering thresholds, all expressed as multiples of the measured average
// character width so the grouping is invariant to font size.
const (
	// sepWidthFactor is the baseline separation threshold.
	sepWidthFactor = 1.8
	// sepGapFactor scales the 75th-percentile inter-detection gap.
	sepGapFactor = 2.0
	// spaceWidthFactor marks a gap as an explicit space.
	spaceWidthFactor = 2.5
	// numericSplitFactor splits two adjacent numeric groups that lack a
	// separator glyph between them.
	numericSplitFactor = 2.0
	// numericSplitMinLen is the minimum accumulated text length before the
	// numeric split heuristic applies.
	numericSplitMinLen = 4
)

// Clusterer groups glyph detections into word-like clusters by analyzing
// horizontal gaps against an adaptively measured character width.
type Clusterer struct {
	alphabet *Alphabet
}

// NewClusterer creates a clusterer that decodes detections with the given
// alphabet.
func NewClusterer(alphabet *Alphabet) *Clusterer {
	return &Clusterer{alphabet: alphabet}
}

// Cluster groups one tick's detections into ordered clusters. The input
// order does not matter; detections are sorted left to right first.
// Detections whose class id does not decode to a known glyph are dropped.
func (c *Clusterer) Cluster(detections []Detection) []Cluster {
	if len(detections) == 0 {
		return nil
	}

	// Keep only detections that decode to a glyph, left to right.
	kept := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if c.alphabet.Char(d.ClassID) != "" {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Box.X1 < kept[j].Box.X1
	})

	// Average width of the glyphs that carry width information. ':' is
	// excluded: colon boxes are much narrower than digits and would skew
	// the baseline.
	var totalWidth float64
	var widthCount int
	for _, d := range kept {
		char := c.alphabet.Char(d.ClassID)
		if isDigit(char) || char == "-" || char == "," {
			if w := d.Box.Width(); w > 0 {
				totalWidth += w
				widthCount++
			}
		}
	}
	if widthCount == 0 {
		return nil
	}
	avgCharWidth := totalWidth / float64(widthCount)

	sepThreshold := c.separationThreshold(kept, avgCharWidth)

	ocrLog.Debug().
		Float64("avgCharWidth", avgCharWidth).
		Float64("sepThreshold", sepThreshold).
		Int("detections", len(kept)).
		Msg("clustering glyph detections")

	var clusters []Cluster
	var currentText strings.Builder
	var currentDets []Detection
	lastX2 := 0.0
	started := false

	for _, d := range kept {
		char := c.alphabet.Char(d.ClassID)

		if !started {
			currentText.WriteString(char)
			currentDets = []Detection{d}
			lastX2 = d.Box.X2
			started = true
			continue
		}

		gap := d.Box.X1 - lastX2
		if c.shouldSeparate(currentText.String(), char, gap, avgCharWidth, sepThreshold) {
			clusters = append(clusters, Cluster{Text: currentText.String(), Detections: currentDets})
			currentText.Reset()
			currentText.WriteString(char)
			currentDets = []Detection{d}
		} else {
			currentText.WriteString(char)
			currentDets = append(currentDets, d)
		}
		lastX2 = d.Box.X2
	}
	if currentText.Len() > 0 {
		clusters = append(clusters, Cluster{Text: currentText.String(), Detections: currentDets})
	}

	if e := ocrLog.Debug(); e.Enabled() {
		words := make([]string, len(clusters))
		for i, cl := range clusters {
			words[i] = cl.Text
		}
		e.Strs("clusters", words).Msg("clustering result")
	}

	return clusters
}

// separationThreshold derives the cluster break threshold from the measured
// character width and, when enough gaps exist, the gap distribution itself.
// The larger of the two estimates wins to avoid splitting inside a number.
func (c *Clusterer) separationThreshold(sorted []Detection, avgCharWidth float64) float64 {
	widthBased := avgCharWidth * sepWidthFactor

	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, sorted[i].Box.X1-sorted[i-1].Box.X2)
	}
	if len(gaps) <= 2 {
		return widthBased
	}

	sort.Float64s(gaps)
	p75 := gaps[int(float64(len(gaps))*0.75)]
	gapBased := p75 * sepGapFactor

	if gapBased > widthBased {
		return gapBased
	}
	return widthBased
}

// shouldSeparate decides whether the next glyph starts a new cluster.
func (c *Clusterer) shouldSeparate(currentText, nextChar string, gap, avgCharWidth, sepThreshold float64) bool {
	// Gap beyond the adaptive separation threshold.
	if gap > sepThreshold {
		return true
	}

	// Gap wide enough to be an explicit space.
	if gap > avgCharWidth*spaceWidthFactor {
		return true
	}

	// Two adjacent numeric groups with no separator glyph between them:
	// split when the accumulated text is already a complete-looking number
	// and the gap is clearly wider than a character.
	stripped := strings.NewReplacer(",", "", "-", "").Replace(currentText)
	if allDigits(stripped) && len(currentText) >= numericSplitMinLen &&
		isDigit(nextChar) && gap > avgCharWidth*numericSplitFactor {
		return true
	}

	return false
}

// allDigits reports whether s is non-empty and consists only of ASCII digits.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
