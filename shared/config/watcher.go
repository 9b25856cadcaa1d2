package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch re-reads the config file whenever it changes and invokes onReload
// with the freshly parsed configuration. Invalid intermediate states (editors
// writing in place, truncated files) are logged and skipped; the previous
// configuration stays in effect. Watch blocks until ctx is canceled.
func Watch(ctx context.Context, path string, logger *zap.Logger, onReload func(*Config)) error {
	log := logger.Named("config-watcher")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}
	log.Info("Watching config file", zap.String("path", path))

	// Editors often emit several events per save; a short debounce collapses
	// them into one reload.
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(200 * time.Millisecond)
			// Some editors replace the file; re-add the watch.
			if event.Op&fsnotify.Rename != 0 {
				_ = watcher.Add(path)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("Config watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			cfg, err := Load(path)
			if err != nil {
				log.Warn("Ignoring invalid config reload", zap.Error(err))
				continue
			}
			log.Info("Config reloaded", zap.String("path", path))
			onReload(cfg)
		}
	}
}
