package auth

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/officekit/workspace-mcp/pkg/logging"
)

// WatchToken watches the token file and invokes onChange whenever it is
// written or replaced, so an externally refreshed token takes effect
// without restarting the server. It blocks until ctx is cancelled.
//
// Editors and the authenticate command replace the file atomically, so the
// watch is placed on the parent directory and filtered by name.
func WatchToken(ctx context.Context, path string, logger logging.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating token watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Info("token file changed, reloading", logging.String("path", path), logging.String("op", event.Op.String()))
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("token watcher error", logging.ErrorField(err))
		}
	}
}
