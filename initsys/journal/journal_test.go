package journal

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dartos/init-system/initsys"
)

func TestFileLockJournaler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal", "init-system.json")

	j, err := NewFileLockJournaler(path)
	if err != nil {
		t.Fatal("failed to create journaler:", err)
	}

	state, err := j.PreviousState()
	if err != nil || state != nil {
		t.Fatalf("got previous state %v, %v on a new journal", state, err)
	}

	if _, err := NewFileLockJournaler(path); !errors.Is(err, ErrLockedElsewhere) {
		t.Errorf("got error %v, expected ErrLockedElsewhere", err)
	}

	j.Write(&initsys.EventSourceAcquired{Consumer: "init-system", Chip: "gpiochip0", Line: 12})
	j.Write(&initsys.EventProcessSpawned{File: "/bin/app", PID: 42})

	if err := j.Close(); err != nil {
		t.Fatal("failed to close journaler:", err)
	}

	j, err = NewFileLockJournaler(path)
	if err != nil {
		t.Fatal("failed to reopen journaler:", err)
	}
	defer j.Close()

	// The power went out without a release, so the next run sees an unclean
	// state.
	state, err = j.PreviousState()
	if err != nil {
		t.Fatal("failed to read previous state:", err)
	}
	if state == nil || state.Clean() {
		t.Fatalf("got state %#v, expected unclean", state)
	}
	if ev, ok := state.LastEvent.(*initsys.EventProcessSpawned); !ok || ev.PID != 42 {
		t.Errorf("got last event %#v, expected the spawn of /bin/app", state.LastEvent)
	}

	j.Write(&initsys.EventSourceReleased{})

	state, err = j.PreviousState()
	if err != nil {
		t.Fatal("failed to read previous state:", err)
	}
	if !state.Clean() {
		t.Errorf("got state %#v, expected clean", state)
	}
}

func TestReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	events := []initsys.Event{
		&initsys.EventProcessLaunching{File: "/bin/a"},
		&initsys.EventTerminated{Elapsed: 3 * time.Millisecond},
		&initsys.EventSourceReleased{},
	}

	for _, ev := range events {
		if err := w.Write(ev); err != nil {
			t.Fatal("failed to write:", err)
		}
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))

	for i := len(events) - 1; i >= 0; i-- {
		ev, _, err := r.Read()
		if err != nil {
			t.Fatal("failed to read:", err)
		}
		if !reflect.DeepEqual(ev, events[i]) {
			t.Errorf("event %d: got %#v, expected %#v", i, ev, events[i])
		}
	}

	if _, _, err := r.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("got error %v after the first event, expected EOF", err)
	}
}

func TestReaderUnknownEvent(t *testing.T) {
	r := NewReader(strings.NewReader(`{"time":"2026-01-01T00:00:00Z","type":"bogus","data":{}}` + "\n"))

	if _, _, err := r.Read(); err == nil {
		t.Error("unknown event decoded without error")
	}
}

func TestReaderTornEntry(t *testing.T) {
	journal := "" +
		`{"time":"2026-01-01T00:00:00Z","type":"shutdown source released","data":{}}` + "\n" +
		`{"time":"2026-01-01T00:00:01Z","type":"process spawned","da`

	r := NewReader(strings.NewReader(journal))

	if _, _, err := r.Read(); !errors.Is(err, initsys.ErrTornEntry) {
		t.Fatalf("got error %v, expected a torn entry", err)
	}

	state, err := ReadPreviousState(strings.NewReader(journal))
	if err != nil {
		t.Fatal("failed to read previous state:", err)
	}
	if state == nil || !state.Torn || state.Clean() {
		t.Errorf("got state %#v, expected torn", state)
	}
}

type failJournaler struct{ err error }

func (j failJournaler) Write(initsys.Event) error { return j.err }

func TestMultiWriter(t *testing.T) {
	var buf bytes.Buffer
	first := errors.New("first")

	w := MultiWriter(failJournaler{first}, NewWriter(&buf), failJournaler{errors.New("second")})

	if err := w.Write(&initsys.EventTerminating{}); err != first {
		t.Errorf("got error %v, expected the first one", err)
	}
	if !strings.Contains(buf.String(), `"type":"terminating"`) {
		t.Errorf("event not written past a failing journaler: %q", buf.String())
	}
}
