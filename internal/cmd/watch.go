package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Alia5/keyflow/layout"
)

const reloadDebounce = 150 * time.Millisecond

// watchKeymap delivers a freshly parsed keymap every time the file at path
// is written, created or renamed into place. Files that fail to parse are
// logged and skipped.
func watchKeymap(ctx context.Context, path string, logger *slog.Logger) (<-chan *layout.File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch keymap: %w", err)
	}
	// Editors replace files by rename, so watch the directory.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch keymap: %w", err)
	}

	out := make(chan *layout.File)
	go func() {
		defer close(out)
		defer w.Close()

		debounce := time.NewTimer(time.Hour)
		debounce.Stop()
		defer debounce.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				debounce.Reset(reloadDebounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("keymap watcher", "error", err)
			case <-debounce.C:
				f, err := layout.Load(abs)
				if err != nil {
					logger.Error("keymap reload failed, keeping the running keymap", "path", abs, "error", err)
					continue
				}
				select {
				case out <- f:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
