package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBestPicksLongestMatch(t *testing.T) {
	clusters := []Cluster{
		{Text: "12,34,56"},
		{Text: "-1234,5678,9012"},
		{Text: "1,2,3"},
	}

	best, details := SelectBest(clusters)
	require.NotNil(t, best)
	assert.Equal(t, "-1234,5678,9012", best.Text)

	require.Len(t, details, 3)
	assert.True(t, details[0].Matched)
	assert.True(t, details[1].Matched)
	assert.True(t, details[2].Matched)
}

func TestSelectBestTieKeepsFirst(t *testing.T) {
	clusters := []Cluster{
		{Text: "11,22,33"},
		{Text: "44,55,66"},
	}

	best, _ := SelectBest(clusters)
	require.NotNil(t, best)
	assert.Equal(t, "11,22,33", best.Text)
}

func TestSelectBestNoMatch(t *testing.T) {
	clusters := []Cluster{
		{Text: "-512"},
		{Text: "3191,5189"},
		{Text: "12:30:45"},
	}

	best, details := SelectBest(clusters)
	assert.Nil(t, best)

	require.Len(t, details, 3)
	for _, d := range details {
		assert.False(t, d.Matched)
		assert.NotEmpty(t, d.Reason)
	}
}

func TestSelectBestIgnoresWhitespaceInText(t *testing.T) {
	clusters := []Cluster{
		{Text: " 12,34,56 "},
	}

	best, details := SelectBest(clusters)
	require.NotNil(t, best)
	assert.Equal(t, "12,34,56", details[0].Cleaned)
}

func TestSelectBestEmptyInput(t *testing.T) {
	best, details := SelectBest(nil)
	assert.Nil(t, best)
	assert.Empty(t, details)
}

func TestSelectBestToleratesTrailingTimestamp(t *testing.T) {
	clusters := []Cluster{
		{Text: "-1234,5678,202025-01-01"},
	}

	best, _ := SelectBest(clusters)
	require.NotNil(t, best)
}
