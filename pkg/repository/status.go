package repository

import (
	"os"
	"path/filepath"
	"time"

	"jfrhub/internal/model"
)

// detectWithSentinel derives session status from a sentinel file the
// recording agent writes when the session ends. The grace period after the
// sentinel's last modification lets the agent finish flushing recordings.
func detectWithSentinel(dir, detectionFile string, grace time.Duration, now time.Time) model.RecordingStatus {
	info, err := os.Stat(filepath.Join(dir, detectionFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.StatusActive
		}
		return model.StatusUnknown
	}
	if now.Sub(info.ModTime()) >= grace {
		return model.StatusFinished
	}
	return model.StatusActive
}

// detectByInactivity derives session status purely from file activity: quiet
// for the whole grace period means finished. This heuristic cannot tell an
// idle application from a dead one.
func detectByInactivity(dir string, grace time.Duration, now time.Time) model.RecordingStatus {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return model.StatusUnknown
	}

	var latest time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	if latest.IsZero() {
		return model.StatusUnknown
	}
	if now.Sub(latest) >= grace {
		return model.StatusFinished
	}
	return model.StatusActive
}
