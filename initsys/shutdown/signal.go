package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// DefaultSignals are the signals Signal waits for if none are given.
var DefaultSignals = []os.Signal{syscall.SIGPWR, syscall.SIGTERM, syscall.SIGINT}

// Signal is a Source whose event is the delivery of one of Signals to the
// supervisor process. The chip and line are ignored.
type Signal struct {
	Signals []os.Signal
}

// Acquire starts relaying the signals.
func (s Signal) Acquire(consumer, chip string, line uint32) (Handle, error) {
	sigs := s.Signals
	if len(sigs) == 0 {
		sigs = DefaultSignals
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	return &signalHandle{ch}, nil
}

type signalHandle struct {
	ch chan os.Signal
}

func (h *signalHandle) Wait(ctx context.Context) error {
	select {
	case <-h.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *signalHandle) Release() error {
	signal.Stop(h.ch)
	return nil
}
