package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "schedgrid/internal/log"
)

// watchDebounce coalesces the burst of events editors produce on save.
const watchDebounce = 250 * time.Millisecond

// WatchFile calls onChange after path is written, created or renamed into
// place, until ctx is cancelled. The parent directory is watched so atomic
// replace-by-rename is seen too.
func WatchFile(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				appLog.Warn("manifest watcher error", "err", err)
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
				} else {
					timer.Reset(watchDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				appLog.Info("manifest changed", "path", abs)
				onChange()
			}
		}
	}()
	return nil
}
