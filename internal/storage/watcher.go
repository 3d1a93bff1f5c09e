package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a change in the uploads directory.
// kind is one of "created" or "deleted".
type EventCallback func(kind string, filename string)

// Watch starts an fsnotify watcher on the uploads directory and reports
// audio-file changes until ctx is cancelled. Temp files from atomic
// writes and non-audio files are ignored; the Create half of a rename
// pair arrives as its own event, so a Rename on the old name is
// reported as a deletion.
func Watch(ctx context.Context, root string, logger *slog.Logger, cb EventCallback) error {
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
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") || MIMEForFilename(name) == "" {
				continue
			}

			switch {
			// Atomic saves surface as Create via the final rename.
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				logger.Debug("watcher: upload seen", slog.String("file", name))
				if cb != nil {
					cb("created", name)
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Debug("watcher: upload gone", slog.String("file", name))
				if cb != nil {
					cb("deleted", name)
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
