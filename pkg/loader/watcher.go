package loader

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch registers units that appear in the loader's plugin directories until
// ctx is done. The Go runtime cannot unload or reload a shared object, so a
// rewritten file keeps its first registration until the process restarts.
func (l *Loader) Watch(ctx context.Context, loaded func(path string, err error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range l.dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	l.logger.Info("watching plugin directories", zap.Strings("dirs", l.dirs))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsUnit(event.Name) {
				continue
			}
			err := l.LoadFile(event.Name)
			if loaded != nil {
				loaded(event.Name, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
