// Package journal provides implementations of the init-system's Journaler
// interface: a persistent JSON journal, a console writer for humans and a way
// to combine them. The persistent journal is protected by a file lock, so that
// only one supervisor can run with the same journal file.
package journal

import (
	"os"
	"path/filepath"

	"github.com/dartos/init-system/initsys"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// multiWriter combines multiple journalers.
type multiWriter struct {
	writers []initsys.Journaler
}

// MultiWriter creates a journaler that writes to multiple other journalers.
// Every journaler is written to even if an earlier one fails; the first error
// is returned.
func MultiWriter(ws ...initsys.Journaler) initsys.Journaler {
	return &multiWriter{ws}
}

func (w *multiWriter) Write(event initsys.Event) error {
	var firstErr error
	for _, writer := range w.writers {
		if err := writer.Write(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// FileLockJournaler is a journaler that uses a file lock (flock) to lock the
// given file and appends to it. The FileLockJournaler instance must be closed
// by the caller or by the operating system when the application exits.
//
// # Reading the Journal
//
// The caller does not need to acquire a file lock in order to read the written
// journal, as each Write operation performed on the file is a single append of
// a whole line. Use Reader, which reads lines from the end of the file.
type FileLockJournaler struct {
	Writer
	f *os.File
	l *flock.Flock
}

// ErrLockedElsewhere is returned if NewFileLockJournaler can't acquire the file
// lock, which means another supervisor is using the same journal.
var ErrLockedElsewhere = errors.New("journal already locked elsewhere")

// NewFileLockJournaler creates a new file journaler if it can acquire a flock
// on the path. It returns an error if it fails to acquire the lock.
func NewFileLockJournaler(path string) (*FileLockJournaler, error) {
	// Ensure the directory exists.
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create journal directory")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_SYNC, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}

	l := flock.New(path)

	locked, err := l.TryLock()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to acquire lock")
	}

	if !locked {
		f.Close()
		return nil, ErrLockedElsewhere
	}

	return &FileLockJournaler{
		Writer: NewWriter(f),
		f:      f,
		l:      l,
	}, nil
}

// PreviousState reads the state the journal was left in by the last run. It
// must be called before anything is written.
func (f *FileLockJournaler) PreviousState() (*initsys.PreviousState, error) {
	return ReadPreviousState(f.f)
}

// Close closes the file and releases the flock.
func (f *FileLockJournaler) Close() error {
	f.f.Close()
	return f.l.Unlock()
}
