package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-navigator/pkg/geometry"
)

// classOf maps a glyph to its class id in the default alphabet.
func classOf(t *testing.T, char byte) int {
	t.Helper()
	for i := 0; i < len(DefaultClassNames); i++ {
		if DefaultClassNames[i] == char {
			return i
		}
	}
	t.Fatalf("glyph %q not in default alphabet", char)
	return -1
}

// det builds a detection for a glyph at the given horizontal extent.
func det(t *testing.T, char byte, x1, x2 float64) Detection {
	t.Helper()
	return Detection{
		ClassID:    classOf(t, char),
		Box:        geometry.NewBox(x1, 0, x2, 14),
		Confidence: 0.9,
	}
}

// row lays out the glyphs of text left to right with the given character
// width and inter-character gap, starting at x.
func row(t *testing.T, text string, x, width, gap float64) []Detection {
	t.Helper()
	dets := make([]Detection, 0, len(text))
	for i := 0; i < len(text); i++ {
		dets = append(dets, det(t, text[i], x, x+width))
		x += width + gap
	}
	return dets
}

func clusterTexts(clusters []Cluster) []string {
	texts := make([]string, len(clusters))
	for i, c := range clusters {
		texts[i] = c.Text
	}
	return texts
}

func TestClusterEmptyInput(t *testing.T) {
	c := NewClusterer(DefaultAlphabet())
	assert.Empty(t, c.Cluster(nil))
	assert.Empty(t, c.Cluster([]Detection{}))
}

func TestClusterSingleDetection(t *testing.T) {
	c := NewClusterer(DefaultAlphabet())
	clusters := c.Cluster([]Detection{det(t, '7', 10, 20)})
	require.Len(t, clusters, 1)
	assert.Equal(t, "7", clusters[0].Text)
	require.Len(t, clusters[0].Detections, 1)
}

func TestClusterNoWidthGlyphs(t *testing.T) {
	// Colons carry no width statistics, so no baseline can be measured.
	c := NewClusterer(DefaultAlphabet())
	clusters := c.Cluster([]Detection{det(t, ':', 0, 4), det(t, ':', 10, 14)})
	assert.Empty(t, clusters)
}

func TestClusterUnknownClassDropped(t *testing.T) {
	c := NewClusterer(DefaultAlphabet())
	dets := row(t, "12", 0, 10, 2)
	dets = append(dets, Detection{ClassID: 99, Box: geometry.NewBox(24, 0, 34, 14)})
	clusters := c.Cluster(dets)
	require.Len(t, clusters, 1)
	assert.Equal(t, "12", clusters[0].Text)
}

func TestClusterSortsLeftToRight(t *testing.T) {
	c := NewClusterer(DefaultAlphabet())
	dets := []Detection{
		det(t, '3', 24, 34),
		det(t, '1', 0, 10),
		det(t, '2', 12, 22),
	}
	clusters := c.Cluster(dets)
	require.Len(t, clusters, 1)
	assert.Equal(t, "123", clusters[0].Text)
}

func TestClusterIdempotent(t *testing.T) {
	c := NewClusterer(DefaultAlphabet())
	dets := append(row(t, "-512", 0, 10, 2), row(t, "3191,5189", 96, 10, 2)...)

	first := c.Cluster(dets)
	second := c.Cluster(dets)
	assert.Equal(t, first, second)
}

func TestClusterSplitsOnWideGap(t *testing.T) {
	c := NewClusterer(DefaultAlphabet())

	// "-512" then a wide gap then "3191,5189". Average character width is
	// 10 and in-word gaps are 2, so the 50px hole forces a split.
	dets := append(row(t, "-512", 0, 10, 2), row(t, "3191,5189", 96, 10, 2)...)

	clusters := c.Cluster(dets)
	assert.Equal(t, []string{"-512", "3191,5189"}, clusterTexts(clusters))

	// Neither part is a full x,y,z readout, so selection reports nothing.
	best, details := SelectBest(clusters)
	assert.Nil(t, best)
	assert.Len(t, details, 2)
}

func TestClusterNumericSplitHeuristic(t *testing.T) {
	c := NewClusterer(DefaultAlphabet())

	// Narrow glyphs (width 5) with loose spacing (gap 8). The 11px hole
	// after "1234" is below the separation threshold (driven up by the
	// 75th-percentile gap) and below the explicit-space threshold, but a
	// digit following a >=4 digit group across more than two character
	// widths still starts a new cluster.
	dets := row(t, "1234", 0, 5, 8)
	dets = append(dets, det(t, '5', 55, 60))

	clusters := c.Cluster(dets)
	assert.Equal(t, []string{"1234", "5"}, clusterTexts(clusters))
}

func TestClusterKeepsCoordinateTogether(t *testing.T) {
	c := NewClusterer(DefaultAlphabet())

	// A clean readout with uniform tight spacing stays one cluster.
	dets := row(t, "-1234,5678,90", 0, 10, 2)
	clusters := c.Cluster(dets)
	assert.Equal(t, []string{"-1234,5678,90"}, clusterTexts(clusters))
}
