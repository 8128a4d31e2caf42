// internal/app/features/page/watch.go
package page

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dalemusser/contactform/internal/dom"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the page at path whenever it changes and passes each
// successfully parsed document to onLoad. A page that fails to load is
// logged and the previous one stays in place. Watching stops when ctx is
// done.
//
// The directory is watched rather than the file so that editors which
// save by rename are picked up.
func Watch(ctx context.Context, path string, logger *zap.Logger, onLoad func(*dom.Document)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("page: watch %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("page: watch %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("page: watch %s: %w", path, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				doc, err := LoadFile(abs)
				if err != nil {
					logger.Warn("page reload failed", zap.String("path", abs), zap.Error(err))
					continue
				}
				logger.Info("page reloaded", zap.String("path", abs))
				onLoad(doc)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("page watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
