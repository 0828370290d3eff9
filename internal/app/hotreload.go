package app

import (
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// HotReloader watches the running binary and restarts the process when a
// newer build appears. Development convenience for long-running daemon
// sessions.
type HotReloader struct {
	execPath      string
	startupTime   time.Time
	checkInterval time.Duration
	stopCh        chan struct{}
}

// NewHotReloader creates a reloader for the current executable. Returns nil
// if the executable path cannot be determined.
func NewHotReloader(checkInterval time.Duration) *HotReloader {
	execPath, err := os.Executable()
	if err != nil {
		return nil
	}
	// go build may replace the file the symlink points at.
	if realPath, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = realPath
	}

	info, err := os.Stat(execPath)
	if err != nil {
		return nil
	}

	return &HotReloader{
		execPath:      execPath,
		startupTime:   info.ModTime(),
		checkInterval: checkInterval,
		stopCh:        make(chan struct{}),
	}
}

// ExecPath returns the watched executable path.
func (h *HotReloader) ExecPath() string {
	return h.execPath
}

// Start watches for a newer binary in a background goroutine and execs into
// it when found.
func (h *HotReloader) Start() {
	go func() {
		ticker := time.NewTicker(h.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stopCh:
				return
			case <-ticker.C:
				if h.newerBinary() {
					appLog.Info().Str("exec", h.execPath).Msg("newer binary detected, restarting")
					if err := h.Restart(); err != nil {
						appLog.Error().Err(err).Msg("restart failed")
						return
					}
				}
			}
		}
	}()
}

// Stop ends the watch goroutine.
func (h *HotReloader) Stop() {
	close(h.stopCh)
}

func (h *HotReloader) newerBinary() bool {
	info, err := os.Stat(h.execPath)
	if err != nil {
		return false
	}
	return info.ModTime().After(h.startupTime)
}

// Restart replaces the current process with a fresh instance of the binary,
// preserving arguments and environment. Does not return on success.
func (h *HotReloader) Restart() error {
	return syscall.Exec(h.execPath, os.Args, os.Environ())
}
