package i18n

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay batches the bursts of events editors emit on save.
const reloadDelay = 250 * time.Millisecond

// Watch reloads b from dir whenever a locale file changes, until ctx is
// done. A file that fails to parse is logged and the previous messages
// are kept.
func Watch(ctx context.Context, dir string, b *Bundle) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating locale watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()

		timer := time.NewTimer(reloadDelay)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != ".json" {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					timer.Reset(reloadDelay)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("locale watcher error", "error", err)
			case <-timer.C:
				if err := b.Reload(os.DirFS(dir)); err != nil {
					slog.Error("reloading locales", "dir", dir, "error", err)
					continue
				}
				slog.Info("locales reloaded", "dir", dir, "locales", b.Locales())
			}
		}
	}()
	return nil
}
