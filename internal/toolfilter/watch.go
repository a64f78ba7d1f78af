package toolfilter

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bobmcallan/humcp/internal/common"
)

// DebounceInterval collapses bursts of writes from editors into one event.
const DebounceInterval = 250 * time.Millisecond

// Watch calls onChange whenever the filter file at path is written, created,
// renamed or removed, until ctx is done. The parent directory is watched so
// atomic-rename saves are seen. The filter is not reapplied; the running
// tool set is fixed at startup.
func Watch(ctx context.Context, path string, logger *common.Logger, onChange func(fsnotify.Event)) error {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Debug().Str("path", abs).Msg("watching tools config")

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending fsnotify.Event
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op == fsnotify.Chmod {
				continue
			}
			pending = ev
			if timer == nil {
				timer = time.NewTimer(DebounceInterval)
			} else {
				timer.Reset(DebounceInterval)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange(pending)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("tools config watcher error")
		}
	}
}
