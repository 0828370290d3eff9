package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-navigator/pkg/geometry"
)

func TestParseCoordinateText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    geometry.Coordinate
		wantErr error
	}{
		{
			name: "plain triplet",
			text: "123,456,789",
			want: geometry.Coordinate{X: 123, Y: 456, Z: 789},
		},
		{
			name: "negative components",
			text: "-1234,5678,-90",
			want: geometry.Coordinate{X: -1234, Y: 5678, Z: -90},
		},
		{
			name: "seven digit components",
			text: "9999999,-9999999,1",
			want: geometry.Coordinate{X: 9999999, Y: -9999999, Z: 1},
		},
		{
			name: "single digit components",
			text: "1,2,3",
			want: geometry.Coordinate{X: 1, Y: 2, Z: 3},
		},
		{
			name: "trailing garbage tolerated",
			text: "12,34,56abc",
			want: geometry.Coordinate{X: 12, Y: 34, Z: 56},
		},
		{
			name:    "two components only",
			text:    "3191,5189",
			wantErr: ErrNoMatch,
		},
		{
			name:    "missing comma",
			text:    "123 456 789",
			wantErr: ErrNoMatch,
		},
		{
			name:    "eight digit component",
			text:    "12345678,1,1",
			wantErr: ErrNoMatch,
		},
		{
			name:    "empty string",
			text:    "",
			wantErr: ErrNoMatch,
		},
		{
			name:    "letters",
			text:    "abc,def,ghi",
			wantErr: ErrNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCoordinateText(tt.text)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "full timestamp after readout",
			in:   "-1234,5678,20 2025-01-01 10:00:00",
			want: "-1234,5678,20",
		},
		{
			name: "year token without spacing",
			in:   "100,200,300 2031-12-31",
			want: "100,200,300",
		},
		{
			name: "z of 20 is not a year",
			in:   "-1234,5678,20",
			want: "-1234,5678,20",
		},
		{
			name: "double space separates timestamp",
			in:   "-1,2,3  12:00:00",
			want: "-1,2,3",
		},
		{
			name: "bare trailing year",
			in:   "-1,2,3 2025",
			want: "-1,2,3",
		},
		{
			name: "trailing year needs whitespace",
			in:   "-1,2,32025",
			want: "-1,2,32025",
		},
		{
			name: "no timestamp unchanged",
			in:   "123,456,789",
			want: "123,456,789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripTimestamp(tt.in))
		})
	}
}

func TestParseFromDetections(t *testing.T) {
	p := NewParser(DefaultAlphabet())

	dets := row(t, "-512,3191,20", 0, 10, 2)
	coord, cleaned, err := p.Parse(dets)
	require.NoError(t, err)
	assert.Equal(t, geometry.Coordinate{X: -512, Y: 3191, Z: 20}, coord)
	assert.Equal(t, "-512,3191,20", cleaned)
}

func TestParseFromDetectionsSortsByX(t *testing.T) {
	p := NewParser(DefaultAlphabet())

	// Detections arrive out of order; the parser must re-sort by X1.
	dets := row(t, "1,2,3", 0, 10, 2)
	dets[0], dets[4] = dets[4], dets[0]

	coord, _, err := p.Parse(dets)
	require.NoError(t, err)
	assert.Equal(t, geometry.Coordinate{X: 1, Y: 2, Z: 3}, coord)
}

func TestParseEmptyDetections(t *testing.T) {
	p := NewParser(DefaultAlphabet())
	_, _, err := p.Parse(nil)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestParseStripsAdjoinedTimestamp(t *testing.T) {
	p := NewParser(DefaultAlphabet())

	// The glyph alphabet contains "-" and ":" so an adjoined timestamp can
	// survive clustering; parsing must still recover the coordinate.
	dets := row(t, "-1234,5678,202025-01-01", 0, 10, 2)
	coord, cleaned, err := p.Parse(dets)
	require.NoError(t, err)
	assert.Equal(t, geometry.Coordinate{X: -1234, Y: 5678, Z: 20}, coord)
	assert.Equal(t, "-1234,5678,20", cleaned)
}
