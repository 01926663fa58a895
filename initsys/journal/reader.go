package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dartos/init-system/initsys"
	"github.com/diamondburned/backwardio"
	"github.com/pkg/errors"
)

// Reader parses journals written by Writer from the bottom up, so the newest
// event is read first.
type Reader struct {
	b *backwardio.Scanner
}

var _ initsys.JournalReader = (*Reader)(nil)

// NewReader creates a new journal reader.
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{backwardio.NewScanner(r)}
}

// Read reads a single entry, starting from the bottom of the file. An EOF error
// is returned if the file has been fully consumed.
func (r *Reader) Read() (initsys.Event, time.Time, error) {
	var line []byte
	var err error

	for {
		line, err = r.b.ReadUntil('\n')
		if err != nil {
			return nil, time.Time{}, err
		}
		if len(line) > 0 {
			break
		}
	}

	var rawEvent struct {
		Time time.Time       `json:"time"`
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(line, &rawEvent); err != nil {
		return nil, time.Time{}, errors.Wrapf(initsys.ErrTornEntry, "failed to decode JSON: %v", err)
	}

	event := initsys.NewEvent(rawEvent.Type)
	if event == nil {
		return nil, time.Time{}, fmt.Errorf("unknown event %q", rawEvent.Type)
	}

	if err := json.Unmarshal(rawEvent.Data, event); err != nil {
		return nil, time.Time{}, errors.Wrap(err, "failed to decode event data")
	}

	return event, rawEvent.Time, nil
}

// ReadPreviousState reads the given reader backwards to return the
// PreviousState.
func ReadPreviousState(r io.ReadSeeker) (*initsys.PreviousState, error) {
	return initsys.ReadPreviousState(NewReader(r))
}
