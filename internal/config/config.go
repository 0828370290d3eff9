// Package config loads and persists the application settings file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"game-navigator/pkg/geometry"
)

// Default values for the recognition pipeline.
const (
	DefaultConfidenceThreshold = 0.45
	DefaultOCRIntervalMS       = 1000
	DefaultMaxSpeedThreshold   = 1000
	DefaultZAxisThreshold      = 50
	DefaultLostThresholdFrames = 5
	DefaultEMAAlpha            = 0.3
)

// Advanced holds the tracking parameters of the recognition state machine.
type Advanced struct {
	// MaxSpeedThreshold is the per-tick horizontal displacement limit; a
	// larger jump while locked is rejected as a teleport misread.
	MaxSpeedThreshold float64 `yaml:"max_speed_threshold"`
	// ZAxisThreshold is the per-tick height displacement limit.
	ZAxisThreshold int64 `yaml:"z_axis_threshold"`
	// LostThresholdFrames is the number of consecutive failed ticks while
	// locked before the tracker transitions to LOST.
	LostThresholdFrames int `yaml:"lost_threshold_frames"`
	// EMAAlpha is accepted and stored for forward compatibility but is not
	// applied to coordinate output.
	EMAAlpha float64 `yaml:"ema_alpha"`
}

// Settings is the full configuration surface of the tracker daemon.
type Settings struct {
	ConfidenceThreshold float64          `yaml:"confidence_threshold"`
	OCRIntervalMS       int              `yaml:"ocr_interval"`
	OCRCaptureArea      geometry.RectInt `yaml:"ocr_capture_area"`
	// TargetWindowName selects window-relative capture; empty means
	// full-screen capture.
	TargetWindowName string   `yaml:"target_window_name"`
	ScreenshotMode   string   `yaml:"screenshot_mode"`
	Advanced         Advanced `yaml:"advanced_ocr_settings"`

	// MapProvider selects an online tile provider; empty means a local map.
	MapProvider string `yaml:"map_provider"`
	// MapName is the local map (or provider area) the calibration belongs to.
	MapName string `yaml:"map_name"`

	ModelPath       string `yaml:"model_path"`
	ClassNamesPath  string `yaml:"class_names_path"`
	CalibrationFile string `yaml:"calibration_file"`
	RoutesDir       string `yaml:"routes_dir"`
	// RecordRoutes starts a route recording as soon as the daemon runs.
	RecordRoutes  bool   `yaml:"record_routes"`
	BroadcastAddr string `yaml:"broadcast_addr"`
}

// Default returns the settings used when no config file exists.
func Default() Settings {
	return Settings{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		OCRIntervalMS:       DefaultOCRIntervalMS,
		OCRCaptureArea:      geometry.RectInt{X: 100, Y: 100, Width: 200, Height: 50},
		ScreenshotMode:      "BitBlt",
		Advanced: Advanced{
			MaxSpeedThreshold:   DefaultMaxSpeedThreshold,
			ZAxisThreshold:      DefaultZAxisThreshold,
			LostThresholdFrames: DefaultLostThresholdFrames,
			EMAAlpha:            DefaultEMAAlpha,
		},
		MapName:         "default",
		ModelPath:       "models/coord_ocr.onnx",
		ClassNamesPath:  "models/class_names.txt",
		CalibrationFile: "calibration_data.json",
		RoutesDir:       "routes",
		BroadcastAddr:   "127.0.0.1:8765",
	}
}

// Load reads settings from a YAML file. A missing file yields the defaults;
// unknown keys are ignored so older files keep working.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("read config: %w", err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse config: %w", err)
	}
	s.normalize()
	return s, nil
}

// Save writes settings to a YAML file.
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Interval returns the sampling interval as a duration.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.OCRIntervalMS) * time.Millisecond
}

// normalize clamps nonsensical values back to their defaults.
func (s *Settings) normalize() {
	if s.OCRIntervalMS <= 0 {
		s.OCRIntervalMS = DefaultOCRIntervalMS
	}
	if s.ConfidenceThreshold <= 0 || s.ConfidenceThreshold > 1 {
		s.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if s.Advanced.LostThresholdFrames <= 0 {
		s.Advanced.LostThresholdFrames = DefaultLostThresholdFrames
	}
	if s.Advanced.MaxSpeedThreshold <= 0 {
		s.Advanced.MaxSpeedThreshold = DefaultMaxSpeedThreshold
	}
	if s.Advanced.ZAxisThreshold <= 0 {
		s.Advanced.ZAxisThreshold = DefaultZAxisThreshold
	}
}
