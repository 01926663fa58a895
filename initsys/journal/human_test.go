package journal

import (
	"bytes"
	"testing"
	"time"

	"github.com/dartos/init-system/initsys"
)

func TestHumanWriter(t *testing.T) {
	var out, errs bytes.Buffer
	w := NewHumanWriter(&out, &errs)

	events := []initsys.Event{
		&initsys.EventProcessLaunching{File: "/bin/a"},
		&initsys.EventProcessSpawned{File: "/bin/a", PID: 2},
		&initsys.EventProcessExitedEarly{File: "/bin/b", PID: 3},
		&initsys.EventTerminating{},
		&initsys.EventProcessSignalError{File: "/bin/c", PID: 4, Error: "no such process"},
		&initsys.EventTerminated{Elapsed: 1500 * time.Microsecond},
		&initsys.EventPreviousRunUnclean{Torn: true},
	}

	for _, ev := range events {
		if err := w.Write(ev); err != nil {
			t.Fatal("failed to write:", err)
		}
	}

	expectOut := "" +
		"init-system: Executing application '/bin/a'.\n" +
		"init-system: Terminating...\n" +
		"init-system: All processes terminated in 1.500000 ms.\n"

	expectErrs := "" +
		"init-system: Warning: Process '/bin/b' terminated early.\n" +
		"init-system: Failed to terminate process '/bin/c': no such process.\n" +
		"init-system: Warning: Previous run did not complete its shutdown (last journal entry is torn).\n"

	if out.String() != expectOut {
		t.Errorf("stdout mismatch, got:\n%s\nexpected:\n%s", out.String(), expectOut)
	}
	if errs.String() != expectErrs {
		t.Errorf("stderr mismatch, got:\n%s\nexpected:\n%s", errs.String(), expectErrs)
	}
}
