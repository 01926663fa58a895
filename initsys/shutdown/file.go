package shutdown

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// File is a Source whose event is the creation of, or a write to, a trigger
// file. The chip names the trigger file and the line is ignored. It exists for
// boards without a shutdown line and for integration tests.
type File struct{}

// Acquire starts watching the directory containing the trigger file at chip.
func (File) Acquire(consumer, chip string, line uint32) (Handle, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create watcher")
	}

	path := filepath.Clean(chip)

	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, errors.Wrap(err, "failed to watch dir")
	}

	return &fileHandle{w: w, path: path}, nil
}

type fileHandle struct {
	w    *fsnotify.Watcher
	path string
}

func (h *fileHandle) Wait(ctx context.Context) error {
	// The directory is already watched, so a file created after this check is
	// still seen below.
	if _, err := os.Stat(h.path); err == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-h.w.Errors:
			if !ok {
				return os.ErrClosed
			}
			return errors.Wrap(err, "inotify error")

		case evt, ok := <-h.w.Events:
			if !ok {
				return os.ErrClosed
			}
			if filepath.Clean(evt.Name) != h.path {
				continue
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				return nil
			}
		}
	}
}

func (h *fileHandle) Release() error {
	return h.w.Close()
}
