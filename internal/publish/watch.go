package publish

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/issueblog/internal/storage"
)

// DefaultDebounce is how long the watcher waits for edits to settle.
const DefaultDebounce = 500 * time.Millisecond

// PassFunc runs one sync pass.
type PassFunc func(ctx context.Context) error

// Watch runs pass once, then again each time files under root change, after
// debounce of quiet. New directories are added to the watch list as they
// appear. Passes run on the calling goroutine, one at a time; a failing pass
// is logged and watching continues. Watch returns when ctx is cancelled.
func Watch(ctx context.Context, root string, debounce time.Duration, logger *slog.Logger, pass PassFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger.Info("watcher: started", slog.String("root", root), slog.Duration("debounce", debounce))
	runPass(ctx, logger, pass)

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
			return
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			runPass(ctx, logger, pass)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(ev.Name), storage.TempPrefix) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
				}
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func runPass(ctx context.Context, logger *slog.Logger, pass PassFunc) {
	if err := pass(ctx); err != nil && ctx.Err() == nil {
		logger.Error("watcher: sync pass failed", slog.String("error", err.Error()))
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
