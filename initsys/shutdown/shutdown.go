// Package shutdown provides the sources that tell the supervisor the device is
// about to lose power.
//
// A Source hands out a single Handle per supervisor run. The handle is waited
// on once and must be released on every exit path. Besides the GPIO line used
// on real hardware, a trigger file and a set of process signals can stand in
// as the shutdown event, and Fake serves tests.
package shutdown

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Source acquires the line that reports a shutdown event.
type Source interface {
	// Acquire requests exclusive access to line on the chip. It fails if
	// either is unavailable or already owned by another consumer.
	Acquire(consumer, chip string, line uint32) (Handle, error)
}

// Handle is an acquired shutdown line.
type Handle interface {
	// Wait blocks until the shutdown event happens, the line can no longer be
	// read or ctx is canceled.
	Wait(ctx context.Context) error
	// Release releases the line. It is safe to call during shutdown cleanup.
	Release() error
}

// Kind names a Source implementation.
type Kind string

const (
	KindGPIO   Kind = "gpio"
	KindFile   Kind = "file"
	KindSignal Kind = "signal"
)

// Options configures the Source returned by New.
type Options struct {
	Kind    Kind
	GPIO    GPIO
	Signals Signal
}

// New creates the Source of the given kind.
func New(opts Options) (Source, error) {
	switch Kind(strings.ToLower(string(opts.Kind))) {
	case KindGPIO, "":
		return opts.GPIO, nil
	case KindFile:
		return File{}, nil
	case KindSignal:
		return opts.Signals, nil
	default:
		return nil, errors.Wrapf(unix.EINVAL, "unknown shutdown source %q", opts.Kind)
	}
}
