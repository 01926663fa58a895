package journal

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/dartos/init-system/initsys"
	"github.com/pkg/errors"
)

// Event describes the JSON structure of an event to be written.
type Event struct {
	Time time.Time     `json:"time"`
	Type string        `json:"type"`
	Data initsys.Event `json:"data"`
}

// Writer is a simple journaler that writes line-delimited JSON events into the
// writer.
type Writer struct {
	mutex *sync.Mutex
	w     io.Writer
}

var _ initsys.Journaler = Writer{}

// NewWriter creates a new journal writer.
func NewWriter(w io.Writer) Writer {
	return Writer{new(sync.Mutex), w}
}

// Write writes the given event into the writer. Writes are concurrently safe
// and each event is written with a single Write call.
func (l Writer) Write(ev initsys.Event) error {
	evJSON := Event{
		Time: time.Now(),
		Type: ev.Type(),
		Data: ev,
	}

	buf := bytes.Buffer{}
	buf.Grow(512)

	// Encode appends the trailing new line.
	if err := json.NewEncoder(&buf).Encode(evJSON); err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if _, err := l.w.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write event")
	}

	return nil
}
