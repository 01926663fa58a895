package initsys

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

// ErrTornEntry is returned by a JournalReader when an entry cannot be decoded,
// which is what a write cut short by a power loss leaves behind.
var ErrTornEntry = errors.New("torn journal entry")

// PreviousState describes how the last recorded run of the supervisor ended.
// If Torn is true, the newest entry could not be decoded and LastEvent is nil.
type PreviousState struct {
	LastEvent Event
	LastTime  time.Time
	Torn      bool
}

// Clean returns true if the previous run got as far as releasing its shutdown
// source.
func (s PreviousState) Clean() bool {
	if s.Torn {
		return false
	}
	_, ok := s.LastEvent.(*EventSourceReleased)
	return ok
}

// ReadPreviousState reads the last event from the given journal. A nil state
// is returned if the journal is empty, and a torn state if its last entry is.
func ReadPreviousState(r JournalReader) (*PreviousState, error) {
	ev, t, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if errors.Is(err, ErrTornEntry) {
			return &PreviousState{Torn: true}, nil
		}
		return nil, errors.Wrap(err, "failed to read last journal event")
	}

	return &PreviousState{LastEvent: ev, LastTime: t}, nil
}

// ReportPreviousState writes an EventPreviousRunUnclean into j if the state
// says the previous run did not finish its shutdown sequence.
func ReportPreviousState(j Journaler, s *PreviousState) {
	if s == nil || s.Clean() {
		return
	}

	if s.Torn {
		j.Write(&EventPreviousRunUnclean{Torn: true})
		return
	}

	j.Write(&EventPreviousRunUnclean{
		LastEvent: s.LastEvent.Type(),
		LastTime:  s.LastTime,
	})
}
