package initsys

import (
	"syscall"
	"time"

	"github.com/dartos/init-system/initsys/exec"
	"github.com/pkg/errors"
)

// ReapPollInterval is how often children are polled while a stop timeout is
// pending.
var ReapPollInterval = 10 * time.Millisecond

// TerminateAll sends SIGTERM to every running application, then reaps children
// until there are none left, and returns how long that took.
//
// A failure to deliver a signal is journaled and skipped. Reaping covers every
// child of the process, not only the applications in set, and has no deadline
// unless stopTimeout is positive: in that case, applications still running
// once it elapses are sent SIGKILL before the final, blocking reap.
func TerminateAll(sys exec.System, j Journaler, set AppSet, stopTimeout time.Duration) time.Duration {
	start := time.Now()

	for i := range set {
		app := &set[i]
		if app.State != AppRunning || app.PID == exec.NoPID {
			continue
		}

		if err := sys.Signal(app.PID, syscall.SIGTERM); err != nil {
			j.Write(&EventProcessSignalError{
				File:  app.Path,
				PID:   app.PID,
				Error: err.Error(),
			})
		}
	}

	if stopTimeout > 0 {
		deadline := start.Add(stopTimeout)

		for !reap(sys, j, set, false) {
			if time.Now().After(deadline) {
				killAll(sys, j, set)
				break
			}
			time.Sleep(ReapPollInterval)
		}
	}

	reap(sys, j, set, true)

	// Nothing is left to wait for, so whatever is still marked running is not
	// our child anymore.
	for i := range set {
		if set[i].State == AppRunning {
			set.markExited(i)
		}
	}

	return time.Since(start)
}

// reap reaps children until none are left, in which case it returns true. If
// block is false, it also returns, with false, once no more children can be
// reaped without waiting.
func reap(sys exec.System, j Journaler, set AppSet, block bool) bool {
	for {
		status, reaped, err := sys.WaitAny(block)
		if err != nil {
			if errors.Is(err, exec.ErrNoChildren) {
				return true
			}

			// Anything else means wait itself is broken, so spinning on it
			// would hang the shutdown for good.
			j.Write(&EventWarning{
				Component: "reaper",
				Error:     err.Error(),
			})
			return true
		}

		if !reaped {
			return false
		}

		ev := &EventProcessExited{
			PID:      status.PID,
			ExitCode: status.Code,
		}

		if i := set.indexOf(status.PID); i >= 0 {
			ev.File = set[i].Path
			set.markExited(i)
		}

		j.Write(ev)
	}
}

func killAll(sys exec.System, j Journaler, set AppSet) {
	for i := range set {
		app := &set[i]
		if app.State != AppRunning || app.PID == exec.NoPID {
			continue
		}

		j.Write(&EventProcessKilled{
			File: app.Path,
			PID:  app.PID,
		})

		if err := sys.Signal(app.PID, syscall.SIGKILL); err != nil {
			j.Write(&EventProcessSignalError{
				File:  app.Path,
				PID:   app.PID,
				Error: err.Error(),
			})
		}
	}
}
