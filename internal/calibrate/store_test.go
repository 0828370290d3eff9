package calibrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "calibration_data.json"))
}

func TestMapKey(t *testing.T) {
	tests := []struct {
		mode, name, area, want string
	}{
		{ModeOnline, "tianditu", "area7", "online_tianditu_area7"},
		{ModeOnline, "tianditu", "", "online_tianditu_default"},
		{ModeLocal, "huanglong", "", "local_huanglong"},
		{ModeLocal, "huanglong", "ignored", "local_huanglong"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapKey(tt.mode, tt.name, tt.area))
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	s := tempStore(t)

	tr := Transform{A: 0.001, B: 0.002, C: 3, D: 0.004, E: 0.005, F: 6}
	require.NoError(t, s.Save(ModeOnline, "amap", "", tr))

	got, err := s.Load(ModeOnline, "amap", "")
	require.NoError(t, err)
	assert.Equal(t, tr, got)

	// Loaded verbatim, also under the explicit default area id.
	got, err = s.Load(ModeOnline, "amap", DefaultAreaID)
	require.NoError(t, err)
	assert.Equal(t, tr, got)
}

func TestStoreLoadMissing(t *testing.T) {
	s := tempStore(t)

	_, err := s.Load(ModeLocal, "nowhere", "")
	assert.ErrorIs(t, err, ErrNotCalibrated)
	assert.False(t, s.Has(ModeLocal, "nowhere", ""))
}

func TestStoreKeepsOtherRecords(t *testing.T) {
	s := tempStore(t)

	first := Transform{A: 1, E: 1}
	second := Transform{A: 2, E: 2, C: 0.5}
	require.NoError(t, s.Save(ModeLocal, "mapA", "", first))
	require.NoError(t, s.Save(ModeLocal, "mapB", "", second))

	got, err := s.Load(ModeLocal, "mapA", "")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	all, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStoreDelete(t *testing.T) {
	s := tempStore(t)

	require.NoError(t, s.Save(ModeLocal, "mapA", "", Transform{A: 1}))
	require.NoError(t, s.Delete(ModeLocal, "mapA", ""))
	assert.False(t, s.Has(ModeLocal, "mapA", ""))

	// Deleting a missing key is not an error.
	require.NoError(t, s.Delete(ModeLocal, "mapA", ""))
}

func TestStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calibration_data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewStore(path)
	_, err := s.Load(ModeLocal, "mapA", "")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotCalibrated)
}
