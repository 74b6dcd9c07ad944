package security

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/atelierlumen/leadgate/pkg/logging"
)

// WatchBlocklists reloads the blocklist file into the store whenever it
// changes on disk. It blocks until ctx is cancelled. Reload failures keep
// the previous ruleset active.
func WatchBlocklists(ctx context.Context, path string, store *BlocklistStore, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory (not the file) so we catch editors and config
	// managers that write-to-temp-then-rename.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	baseName := filepath.Base(path)

	// Editors may fire several events in quick succession; coalesce them.
	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != baseName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce = time.After(200 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("blocklist watcher error", "error", err)
		case <-debounce:
			debounce = nil
			rs, err := LoadRuleset(path)
			if err != nil {
				logger.Error("blocklist reload failed, keeping previous ruleset", "path", path, "error", err)
				continue
			}
			store.Replace(rs)
			logger.Info("blocklists reloaded", "path", path)
		}
	}
}
