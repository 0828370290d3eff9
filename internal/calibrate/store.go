package calibrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrNotCalibrated means no saved transform exists for the requested map key.
var ErrNotCalibrated = errors.New("no calibration saved for map")

// Map source modes for calibration keys.
const (
	ModeOnline = "online"
	ModeLocal  = "local"
)

// DefaultAreaID is used when an online map has no explicit area identifier.
const DefaultAreaID = "default"

// Record is one persisted calibration entry.
type Record struct {
	Mode              string    `json:"mode"`
	ProviderOrMapName string    `json:"provider_or_map_name"`
	AreaID            string    `json:"area_id,omitempty"`
	Matrix            Transform `json:"matrix"`
	Timestamp         time.Time `json:"timestamp"`
}

// Store persists named calibration transforms in a single JSON file, one
// record per map key.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file. The file is created on
// first save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// MapKey composes the deterministic key for a map. Online maps are keyed by
// provider and area (defaulting to "default"); local maps by name alone.
func MapKey(mode, providerOrMapName, areaID string) string {
	if mode == ModeOnline {
		if areaID == "" {
			areaID = DefaultAreaID
		}
		return fmt.Sprintf("%s_%s_%s", mode, providerOrMapName, areaID)
	}
	return fmt.Sprintf("%s_%s", ModeLocal, providerOrMapName)
}

// Save writes a transform for a map key, preserving all other records.
func (s *Store) Save(mode, providerOrMapName, areaID string, t Transform) error {
	records, err := s.LoadAll()
	if err != nil {
		return err
	}

	records[MapKey(mode, providerOrMapName, areaID)] = Record{
		Mode:              mode,
		ProviderOrMapName: providerOrMapName,
		AreaID:            areaID,
		Matrix:            t,
		Timestamp:         time.Now(),
	}

	return s.writeAll(records)
}

// Load returns the saved transform for a map key. The transform is returned
// verbatim, never refitted. Returns ErrNotCalibrated when no record exists.
func (s *Store) Load(mode, providerOrMapName, areaID string) (Transform, error) {
	records, err := s.LoadAll()
	if err != nil {
		return Transform{}, err
	}

	rec, ok := records[MapKey(mode, providerOrMapName, areaID)]
	if !ok {
		return Transform{}, ErrNotCalibrated
	}
	return rec.Matrix, nil
}

// Has reports whether a calibration exists for a map key.
func (s *Store) Has(mode, providerOrMapName, areaID string) bool {
	records, err := s.LoadAll()
	if err != nil {
		return false
	}
	_, ok := records[MapKey(mode, providerOrMapName, areaID)]
	return ok
}

// Delete removes the record for a map key. Deleting a missing key is not an
// error.
func (s *Store) Delete(mode, providerOrMapName, areaID string) error {
	records, err := s.LoadAll()
	if err != nil {
		return err
	}

	key := MapKey(mode, providerOrMapName, areaID)
	if _, ok := records[key]; !ok {
		return nil
	}
	delete(records, key)

	return s.writeAll(records)
}

// LoadAll reads every record from the store file. A missing file yields an
// empty map.
func (s *Store) LoadAll() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Record{}, nil
		}
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse calibration file: %w", err)
	}
	if records == nil {
		records = map[string]Record{}
	}
	return records, nil
}

func (s *Store) writeAll(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode calibration data: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write calibration file: %w", err)
	}
	return nil
}
