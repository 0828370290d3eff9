// Package app assembles the coordinate tracker daemon: capture, recognition,
// tracking, calibration, route recording and the map broadcast server.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"game-navigator/internal/calibrate"
	"game-navigator/internal/capture"
	"game-navigator/internal/classify"
	"game-navigator/internal/config"
	"game-navigator/internal/events"
	"game-navigator/internal/ocr"
	"game-navigator/internal/route"
	"game-navigator/internal/track"
)

var appLog zerolog.Logger = log.With().Str("module", "app").Logger()

// closableClassifier lets both recognizer backends be released on shutdown.
type closableClassifier interface {
	track.Classifier
	Close() error
}

// App wires the daemon's components together.
type App struct {
	cfg config.Settings

	bus         *events.Bus
	source      *capture.ScreenSource
	classifier  closableClassifier
	tracker     *track.Tracker
	worker      *track.Worker
	broadcaster *events.Broadcaster
	recorder    *route.Recorder
	store       *calibrate.Store

	transform    calibrate.Transform
	hasTransform bool
}

// New builds the daemon from its configuration.
func New(cfg config.Settings) (*App, error) {
	alphabet := loadAlphabet(cfg.ClassNamesPath)

	classifier, err := newClassifier(cfg, alphabet)
	if err != nil {
		return nil, err
	}

	recorder, err := route.NewRecorder(cfg.RoutesDir)
	if err != nil {
		classifier.Close()
		return nil, err
	}

	bus := events.NewBus()
	tracker := track.NewTracker(alphabet, track.Params{
		MaxSpeedThreshold:   cfg.Advanced.MaxSpeedThreshold,
		ZAxisThreshold:      cfg.Advanced.ZAxisThreshold,
		LostThresholdFrames: cfg.Advanced.LostThresholdFrames,
		EMAAlpha:            cfg.Advanced.EMAAlpha,
	})
	source := capture.NewScreenSource(cfg.OCRCaptureArea, cfg.TargetWindowName, cfg.ScreenshotMode)

	a := &App{
		cfg:         cfg,
		bus:         bus,
		source:      source,
		classifier:  classifier,
		tracker:     tracker,
		worker:      track.NewWorker(source, classifier, tracker, bus, cfg.Interval()),
		broadcaster: events.NewBroadcaster(cfg.BroadcastAddr),
		recorder:    recorder,
		store:       calibrate.NewStore(cfg.CalibrationFile),
	}
	a.loadCalibration()
	return a, nil
}

// loadAlphabet reads the class name table, falling back to the built-in one.
func loadAlphabet(path string) *ocr.Alphabet {
	if path != "" {
		if a, err := ocr.LoadAlphabet(path); err == nil {
			return a
		} else if !os.IsNotExist(err) {
			appLog.Warn().Err(err).Str("path", path).Msg("class names file unusable, using built-in alphabet")
		}
	}
	return ocr.DefaultAlphabet()
}

// newClassifier prefers the ONNX detector and falls back to Tesseract when
// no model file is present.
func newClassifier(cfg config.Settings, alphabet *ocr.Alphabet) (closableClassifier, error) {
	if _, err := os.Stat(cfg.ModelPath); err == nil {
		c, err := classify.NewONNX(cfg.ModelPath, cfg.ConfidenceThreshold)
		if err != nil {
			return nil, fmt.Errorf("load detection model: %w", err)
		}
		return c, nil
	}

	appLog.Warn().Str("model", cfg.ModelPath).Msg("no detection model, falling back to tesseract")
	c, err := classify.NewTesseract(alphabet)
	if err != nil {
		return nil, fmt.Errorf("start fallback recognizer: %w", err)
	}
	return c, nil
}

// loadCalibration resolves the active map's transform, if one is stored.
func (a *App) loadCalibration() {
	mode := calibrate.ModeLocal
	name := a.cfg.MapName
	area := ""
	if a.cfg.MapProvider != "" {
		mode = calibrate.ModeOnline
		name = a.cfg.MapProvider
		area = a.cfg.MapName
	}

	t, err := a.store.Load(mode, name, area)
	switch {
	case err == nil:
		a.transform = t
		a.hasTransform = true
		appLog.Info().Str("key", calibrate.MapKey(mode, name, area)).Msg("calibration loaded")
	case err == calibrate.ErrNotCalibrated:
		appLog.Info().Str("key", calibrate.MapKey(mode, name, area)).Msg("map not calibrated, broadcasting raw coordinates")
	default:
		appLog.Warn().Err(err).Msg("calibration file unusable")
	}
}

// Bus exposes the event stream, mainly for embedding and tests.
func (a *App) Bus() *events.Bus {
	return a.bus
}

// Recorder exposes the route recorder.
func (a *App) Recorder() *route.Recorder {
	return a.recorder
}

// Run starts every component and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.broadcaster.Start()
	go a.recorder.Run(ctx, a.bus)
	go a.forwardEvents(ctx)

	if a.cfg.RecordRoutes {
		if name, err := a.recorder.Start(""); err != nil {
			appLog.Warn().Err(err).Msg("could not start route recording")
		} else {
			appLog.Info().Str("route", name).Msg("route recording active")
			defer func() {
				if _, err := a.recorder.Stop(); err != nil {
					appLog.Warn().Err(err).Msg("could not save route")
				}
			}()
		}
	}

	err := a.worker.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if serr := a.broadcaster.Shutdown(shutdownCtx); serr != nil {
		appLog.Warn().Err(serr).Msg("broadcast shutdown incomplete")
	}
	a.bus.Close()
	if cerr := a.classifier.Close(); cerr != nil {
		appLog.Warn().Err(cerr).Msg("classifier close failed")
	}

	if err == context.Canceled {
		return nil
	}
	return err
}

// forwardEvents translates bus events into map client messages, attaching
// calibrated latitude and longitude when a transform is active.
func (a *App) forwardEvents(ctx context.Context) {
	sub := a.bus.Subscribe()
	defer a.bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			switch ev.Type {
			case events.TypeCoordinates:
				msg := events.CoordinateMessage{
					Type: "stateUpdate",
					X:    ev.Coordinate.X,
					Y:    ev.Coordinate.Y,
					Z:    ev.Coordinate.Z,
				}
				if a.hasTransform {
					lat, lon := a.transform.Apply(float64(ev.Coordinate.X), float64(ev.Coordinate.Y))
					msg.Lat = &lat
					msg.Lon = &lon
				}
				a.broadcaster.Broadcast(msg)
			case events.TypeStateChanged:
				a.broadcaster.Broadcast(events.StateMessage{Type: "trackingState", State: ev.State})
			}
		}
	}
}
