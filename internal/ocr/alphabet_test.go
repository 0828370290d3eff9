package ocr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAlphabet(t *testing.T) {
	a := DefaultAlphabet()
	require.Equal(t, len(DefaultClassNames), a.Len())
	assert.Equal(t, "0", a.Char(0))
	assert.Equal(t, ",", a.Char(10))
	assert.Equal(t, "-", a.Char(12))
	assert.Equal(t, "", a.Char(-1))
	assert.Equal(t, "", a.Char(99))
}

func TestClassOf(t *testing.T) {
	a := DefaultAlphabet()
	assert.Equal(t, 7, a.ClassOf("7"))
	assert.Equal(t, 10, a.ClassOf(","))
	assert.Equal(t, -1, a.ClassOf("x"))
	assert.Equal(t, -1, a.ClassOf(""))
}

func TestWhitelist(t *testing.T) {
	assert.Equal(t, DefaultClassNames, DefaultAlphabet().Whitelist())
}

func TestLoadAlphabet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "class_names.txt")
	require.NoError(t, os.WriteFile(path, []byte("0\n1\n,\n\n-\n"), 0644))

	a, err := LoadAlphabet(path)
	require.NoError(t, err)
	assert.Equal(t, 4, a.Len(), "blank lines are skipped")
	assert.Equal(t, "-", a.Char(3))
}

func TestLoadAlphabetEmptyFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "class_names.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n\n"), 0644))

	_, err := LoadAlphabet(path)
	assert.Error(t, err)
}

func TestLoadAlphabetMissingFile(t *testing.T) {
	_, err := LoadAlphabet(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
