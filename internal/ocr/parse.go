package ocr

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"game-navigator/pkg/geometry"
)

// MaxCoordValue bounds the magnitude of each coordinate component.
const MaxCoordValue = 9_999_999

var (
	// ErrNoMatch means the text does not form an x,y,z readout.
	ErrNoMatch = errors.New("text does not match coordinate grammar")
	// ErrOutOfRange means a component magnitude exceeds MaxCoordValue.
	ErrOutOfRange = errors.New("coordinate component out of range")
)

// parsePattern captures the three signed integer components.
var parsePattern = regexp.MustCompile(`^(-?\d{1,7}),(-?\d{1,7}),(-?\d{1,7})`)

// Timestamp recognition. The year must be followed by a hyphen so that a
// z coordinate of 20-39 is never mistaken for the start of a year.
var (
	timestampPattern    = regexp.MustCompile(`20[23]\d-`)
	doubleSpacePattern  = regexp.MustCompile(`\s{2,}`)
	trailingYearPattern = regexp.MustCompile(`\s+20[23]\d$`)
)

// Parser reconstructs a coordinate from a chosen cluster's detections.
type Parser struct {
	alphabet *Alphabet
}

// NewParser creates a parser that decodes detections with the given alphabet.
func NewParser(alphabet *Alphabet) *Parser {
	return &Parser{alphabet: alphabet}
}

// Parse decodes the detections of a cluster into a coordinate. It returns
// the cleaned readout text alongside the result for diagnostics. The error
// wraps ErrNoMatch or ErrOutOfRange on failure.
func (p *Parser) Parse(detections []Detection) (geometry.Coordinate, string, error) {
	if len(detections) == 0 {
		return geometry.Coordinate{}, "", ErrNoMatch
	}

	sorted := make([]Detection, len(detections))
	copy(sorted, detections)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Box.X1 < sorted[j].Box.X1
	})

	var raw strings.Builder
	for _, d := range sorted {
		raw.WriteString(p.alphabet.Char(d.ClassID))
	}

	cleaned := StripTimestamp(raw.String())
	ocrLog.Debug().Str("raw", raw.String()).Str("cleaned", cleaned).Msg("parsing coordinate string")

	coord, err := ParseCoordinateText(cleaned)
	if err != nil {
		return geometry.Coordinate{}, cleaned, err
	}
	return coord, cleaned, nil
}

// ParseCoordinateText extracts the x,y,z components from a cleaned readout
// string and validates their range.
func ParseCoordinateText(text string) (geometry.Coordinate, error) {
	m := parsePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return geometry.Coordinate{}, ErrNoMatch
	}

	var parts [3]int64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return geometry.Coordinate{}, ErrNoMatch
		}
		if v > MaxCoordValue || v < -MaxCoordValue {
			return geometry.Coordinate{}, ErrOutOfRange
		}
		parts[i] = v
	}

	return geometry.Coordinate{X: parts[0], Y: parts[1], Z: parts[2]}, nil
}

// StripTimestamp removes a trailing timestamp from a readout string. The
// game occasionally renders a wall-clock timestamp after the coordinates;
// it is recognized in order of decreasing specificity:
//
//  1. a YYYY- year token anywhere in the string truncates from there on,
//  2. two or more consecutive whitespace characters split coordinate from
//     timestamp,
//  3. a bare trailing 4-digit year preceded by whitespace is dropped.
//
// Anything else is returned unchanged.
func StripTimestamp(s string) string {
	if loc := timestampPattern.FindStringIndex(s); loc != nil {
		return strings.TrimRight(s[:loc[0]], " \t\n\r")
	}

	if parts := doubleSpacePattern.Split(s, 2); len(parts) > 1 {
		return strings.TrimSpace(parts[0])
	}

	if loc := trailingYearPattern.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[:loc[0]])
	}

	return s
}
