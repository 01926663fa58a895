package shutdown

import (
	"context"
	"sync"
)

// Fake is a programmable Source used for testing. A zero-value instance is not
// valid; use NewFake.
type Fake struct {
	// AcquireErr is returned by Acquire if set.
	AcquireErr error
	// WaitErr is returned by Wait if set.
	WaitErr error

	mutex    sync.Mutex
	trigger  chan struct{}
	waiting  chan struct{}
	acquired int
	released int
	waited   int

	consumer string
	chip     string
	line     uint32
}

// NewFake creates a new fake source.
func NewFake() *Fake {
	return &Fake{
		trigger: make(chan struct{}, 1),
		waiting: make(chan struct{}),
	}
}

// Trigger fires the shutdown event. It may be called before Wait.
func (f *Fake) Trigger() {
	select {
	case f.trigger <- struct{}{}:
	default:
	}
}

// Waiting returns a channel that is closed once Wait has been entered.
func (f *Fake) Waiting() <-chan struct{} {
	return f.waiting
}

// Acquire implements Source.
func (f *Fake) Acquire(consumer, chip string, line uint32) (Handle, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.AcquireErr != nil {
		return nil, f.AcquireErr
	}

	f.acquired++
	f.consumer = consumer
	f.chip = chip
	f.line = line

	return fakeHandle{f}, nil
}

// Requested returns the arguments of the last successful Acquire.
func (f *Fake) Requested() (consumer, chip string, line uint32) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.consumer, f.chip, f.line
}

// Counts returns how many times the source was acquired, waited on and
// released.
func (f *Fake) Counts() (acquired, waited, released int) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.acquired, f.waited, f.released
}

type fakeHandle struct{ f *Fake }

func (h fakeHandle) Wait(ctx context.Context) error {
	h.f.mutex.Lock()
	h.f.waited++
	if h.f.waited == 1 {
		close(h.f.waiting)
	}
	err := h.f.WaitErr
	h.f.mutex.Unlock()

	if err != nil {
		return err
	}

	select {
	case <-h.f.trigger:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h fakeHandle) Release() error {
	h.f.mutex.Lock()
	defer h.f.mutex.Unlock()

	h.f.released++
	return nil
}
