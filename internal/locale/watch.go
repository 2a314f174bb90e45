package locale

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the catalog when files in its directory change. Events are
// debounced; the watcher stops when ctx is cancelled.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.dir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(c.dir); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		debounce := time.NewTimer(0)
		if !debounce.Stop() {
			<-debounce.C
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					if !debounce.Stop() {
						select {
						case <-debounce.C:
						default:
						}
					}
					debounce.Reset(250 * time.Millisecond)
				}
			case <-debounce.C:
				if err := c.Reload(); err != nil {
					slog.Error("locale reload failed", "dir", c.dir, "err", err)
					continue
				}
				slog.Info("locale catalog reloaded", "dir", c.dir, "locales", c.Supported())
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Error("locale watch error", "err", err)
			}
		}
	}()
	return nil
}
