// Package ocr turns raw glyph detections into game coordinates. The
// pipeline runs in three stages: clustering detections into word-like
// groups, selecting the group that looks like a coordinate readout, and
// parsing the three signed integers out of it.
package ocr

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultClassNames is the fallback glyph table, in class-id order. It
// matches the character set the coordinate detection model is trained on.
const DefaultClassNames = "0123456789,:-"

// Alphabet maps classifier class ids to glyph characters. It is built once
// at startup and injected into every stage that needs to decode detections.
type Alphabet struct {
	chars []string
}

// NewAlphabet creates an alphabet from a list of class names.
func NewAlphabet(chars []string) *Alphabet {
	return &Alphabet{chars: chars}
}

// DefaultAlphabet returns the built-in digit/separator alphabet.
func DefaultAlphabet() *Alphabet {
	chars := make([]string, 0, len(DefaultClassNames))
	for _, r := range DefaultClassNames {
		chars = append(chars, string(r))
	}
	return &Alphabet{chars: chars}
}

// LoadAlphabet reads class names from a file, one per line, where the line
// number corresponds to the class id. Blank lines are skipped.
func LoadAlphabet(path string) (*Alphabet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open class names: %w", err)
	}
	defer f.Close()

	var chars []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		chars = append(chars, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("class names file %s is empty", path)
	}
	return &Alphabet{chars: chars}, nil
}

// Char returns the glyph for a class id, or "" if the id is out of range.
func (a *Alphabet) Char(classID int) string {
	if classID < 0 || classID >= len(a.chars) {
		return ""
	}
	return a.chars[classID]
}

// ClassOf returns the class id of a glyph, or -1 if the glyph is not part
// of the alphabet.
func (a *Alphabet) ClassOf(glyph string) int {
	for i, c := range a.chars {
		if c == glyph {
			return i
		}
	}
	return -1
}

// Len returns the number of classes in the alphabet.
func (a *Alphabet) Len() int {
	return len(a.chars)
}

// Whitelist returns all glyphs joined into a single recognizer whitelist
// string.
func (a *Alphabet) Whitelist() string {
	return strings.Join(a.chars, "")
}

// isDigit reports whether s is a single ASCII digit.
func isDigit(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}
