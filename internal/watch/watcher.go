// Package watch bridges out-of-band edits of the subject directory into
// the event broker so connected clients see changes made outside the API,
// for example with a text editor on the server host.
package watch

import (
	"context"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/veleda/ansuz/internal/sse"
	"github.com/veleda/ansuz/internal/storage"
)

// Watch starts an fsnotify watcher on the subject directory and publishes
// broker events until ctx is cancelled. The directory is flat, so only the
// root itself is watched.
//
// fsnotify fires Rename on the old path only; a file moved within the
// directory arrives as a separate Create event. Atomic writes done through
// the storage layer surface as a Create on the final name, with the
// temporary file filtered out by its dot prefix.
func Watch(ctx context.Context, root string, broker *sse.Broker, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			name, isSubject := storage.SubjectFile(ev.Name)
			if !isSubject {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				// A Create for a directory is possible but meaningless
				// here, the storage layout has no subdirectories.
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					continue
				}
				logger.Debug("watcher: subject created", slog.String("name", name))
				broker.PublishSubjectEvent("created", name)

			case ev.Op&fsnotify.Write != 0:
				logger.Debug("watcher: subject updated", slog.String("name", name))
				broker.PublishSubjectEvent("updated", name)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Debug("watcher: subject removed", slog.String("name", name))
				broker.PublishSubjectEvent("deleted", name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
