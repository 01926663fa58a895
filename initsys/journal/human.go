package journal

import (
	"io"
	"log"
	"time"

	"github.com/dartos/init-system/initsys"
)

// Prefix tags every line the init-system writes to the console, so that its
// output can be told apart from the applications sharing the same console.
const Prefix = "init-system: "

// HumanWriter is a journaler that renders events as human-readable lines.
// Lifecycle milestones are written to the output logger, warnings and failures
// to the error logger. Events not meant for humans are skipped.
type HumanWriter struct {
	out  *log.Logger
	errs *log.Logger
}

var _ initsys.Journaler = (*HumanWriter)(nil)

// NewHumanWriter creates a new HumanWriter, usually over os.Stdout and
// os.Stderr.
func NewHumanWriter(out, errs io.Writer) *HumanWriter {
	return &HumanWriter{
		out:  log.New(out, Prefix, 0),
		errs: log.New(errs, Prefix, 0),
	}
}

// Write writes ev. It never fails.
func (w *HumanWriter) Write(ev initsys.Event) error {
	switch ev := ev.(type) {
	case *initsys.EventWarning:
		w.errs.Printf("Warning: %s: %s.", ev.Component, ev.Error)
	case *initsys.EventPreviousRunUnclean:
		if ev.Torn {
			w.errs.Printf("Warning: Previous run did not complete its shutdown (last journal entry is torn).")
			break
		}
		w.errs.Printf("Warning: Previous run did not complete its shutdown (last event %q at %s).",
			ev.LastEvent, ev.LastTime.Format(time.RFC3339))
	case *initsys.EventSourceAcquired:
		w.out.Printf("Acquired shutdown line %d of '%s'.", ev.Line, ev.Chip)
	case *initsys.EventSourceError:
		switch ev.Op {
		case "acquire":
			w.errs.Printf("Failed to initialize shutdown interrupt: %s.", ev.Error)
		default:
			w.errs.Printf("Failed to poll shutdown interrupt: %s.", ev.Error)
		}
	case *initsys.EventProcessLaunching:
		w.out.Printf("Executing application '%s'.", ev.File)
	case *initsys.EventProcessSpawnError:
		w.errs.Printf("Failed to execute process '%s': %s.", ev.File, ev.Reason)
	case *initsys.EventProcessExitedEarly:
		w.errs.Printf("Warning: Process '%s' terminated early.", ev.File)
	case *initsys.EventTerminating:
		w.out.Printf("Terminating...")
	case *initsys.EventProcessSignalError:
		w.errs.Printf("Failed to terminate process '%s': %s.", ev.File, ev.Error)
	case *initsys.EventProcessKilled:
		w.errs.Printf("Warning: Process '%s' did not stop in time, killing.", ev.File)
	case *initsys.EventTerminated:
		w.out.Printf("All processes terminated in %f ms.", float64(ev.Elapsed)/float64(time.Millisecond))
	}

	return nil
}
