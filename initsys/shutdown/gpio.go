package shutdown

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// Edge is the transition of the shutdown line that counts as the event.
type Edge string

const (
	EdgeFalling Edge = "falling"
	EdgeRising  Edge = "rising"
	EdgeBoth    Edge = "both"
)

// ParseEdge parses an edge name. The empty string is EdgeFalling.
func ParseEdge(s string) (Edge, error) {
	switch edge := Edge(strings.ToLower(s)); edge {
	case "":
		return EdgeFalling, nil
	case EdgeFalling, EdgeRising, EdgeBoth:
		return edge, nil
	default:
		return "", errors.Wrapf(unix.EINVAL, "unknown edge %q", s)
	}
}

func (e Edge) option() gpiocdev.LineReqOption {
	switch e {
	case EdgeRising:
		return gpiocdev.WithRisingEdge
	case EdgeBoth:
		return gpiocdev.WithBothEdges
	default:
		return gpiocdev.WithFallingEdge
	}
}

// GPIO is a Source backed by a line of a Linux GPIO character device.
type GPIO struct {
	Edge     Edge
	Debounce time.Duration
}

// ChipName expands a bare chip number such as "0" to its device name
// "gpiochip0". Anything else is returned as is.
func ChipName(chip string) string {
	if _, err := strconv.ParseUint(chip, 10, 32); err == nil {
		return "gpiochip" + chip
	}
	return chip
}

// Acquire requests line on chip as an input with edge detection.
func (g GPIO) Acquire(consumer, chip string, line uint32) (Handle, error) {
	h := &gpioHandle{
		events: make(chan gpiocdev.LineEvent, 1),
	}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer(consumer),
		gpiocdev.AsInput,
		g.Edge.option(),
		gpiocdev.WithEventHandler(h.handle),
	}
	if g.Debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(g.Debounce))
	}

	l, err := gpiocdev.RequestLine(ChipName(chip), int(line), opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to request line %d of %s", line, chip)
	}

	h.line = l
	return h, nil
}

type gpioHandle struct {
	line   *gpiocdev.Line
	events chan gpiocdev.LineEvent
}

// handle is called from the gpiocdev watcher goroutine. Only the first event
// matters.
func (h *gpioHandle) handle(evt gpiocdev.LineEvent) {
	select {
	case h.events <- evt:
	default:
	}
}

func (h *gpioHandle) Wait(ctx context.Context) error {
	select {
	case <-h.events:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *gpioHandle) Release() error {
	return h.line.Close()
}
