package initsys

import (
	"syscall"
	"testing"
	"time"

	"github.com/dartos/init-system/initsys/exec"
)

func TestTerminateAll(t *testing.T) {
	t.Run("graceful", func(t *testing.T) {
		sys := exec.NewFakeSystem()
		sys.ExitOnStart["b"] = 1
		j := mockJournal{}

		set := NewAppSet([]string{"a", "b", "c"})
		LaunchAll(sys, Discard, set)
		CheckAll(sys, Discard, set)
		orphan := sys.Orphan()

		elapsed := TerminateAll(sys, &j, set, 0)
		if elapsed < 0 {
			t.Errorf("negative elapsed time %v", elapsed)
		}

		j.Verify(t, true, []Event{
			&EventProcessExited{PID: 101, File: "a", ExitCode: -1},
			&EventProcessExited{PID: 103, File: "c", ExitCode: -1},
			&EventProcessExited{PID: orphan},
		})

		// b was found exited by the liveness check, so it is never signaled.
		expect := []exec.SignalCall{
			{PID: 101, Signal: syscall.SIGTERM},
			{PID: 103, Signal: syscall.SIGTERM},
		}
		if signals := sys.Signals(); !signalsEqual(signals, expect) {
			t.Errorf("got signals %v, expected %v", signals, expect)
		}

		if sys.Alive() != 0 {
			t.Errorf("%d children left unreaped", sys.Alive())
		}
		if n := set.Count(AppExited); n != 3 {
			t.Errorf("got %d exited apps, expected 3", n)
		}
	})

	t.Run("every signal fails", func(t *testing.T) {
		sys := exec.NewFakeSystem()
		j := mockJournal{}

		set := NewAppSet([]string{"a", "b"})
		LaunchAll(sys, Discard, set)

		// Both die after the liveness check but before the termination
		// request.
		for _, app := range set {
			sys.SignalErr[app.Path] = syscall.ESRCH
			sys.Exit(app.PID, 0)
		}

		TerminateAll(sys, &j, set, 0)

		j.Verify(t, true, []Event{
			&EventProcessSignalError{File: "a", PID: 101, Error: syscall.ESRCH.Error()},
			&EventProcessSignalError{File: "b", PID: 102, Error: syscall.ESRCH.Error()},
			&EventProcessExited{PID: 101, File: "a", ExitCode: 0},
			&EventProcessExited{PID: 102, File: "b", ExitCode: 0},
		})

		if sys.Alive() != 0 {
			t.Errorf("%d children left unreaped", sys.Alive())
		}
	})

	t.Run("stop timeout", func(t *testing.T) {
		ReapPollInterval = time.Millisecond
		t.Cleanup(func() { ReapPollInterval = 10 * time.Millisecond })

		sys := exec.NewFakeSystem()
		sys.IgnoreTerm["stubborn"] = true
		j := mockJournal{}

		set := NewAppSet([]string{"polite", "stubborn"})
		LaunchAll(sys, Discard, set)

		TerminateAll(sys, &j, set, 5*time.Millisecond)

		j.Verify(t, true, []Event{
			&EventProcessExited{PID: 101, File: "polite", ExitCode: -1},
			&EventProcessKilled{File: "stubborn", PID: 102},
			&EventProcessExited{PID: 102, File: "stubborn", ExitCode: -1},
		})

		signals := sys.Signals()
		if last := signals[len(signals)-1]; last != (exec.SignalCall{PID: 102, Signal: syscall.SIGKILL}) {
			t.Errorf("last signal is %v, expected SIGKILL to stubborn", last)
		}
	})

	t.Run("broken wait", func(t *testing.T) {
		sys := exec.NewFakeSystem()
		sys.IgnoreTerm["stubborn"] = true
		j := mockJournal{}

		set := NewAppSet([]string{"stubborn"})
		LaunchAll(sys, Discard, set)

		// Without a stop timeout, the fake refuses to block forever.
		TerminateAll(sys, &j, set, 0)

		j.Verify(t, true, []Event{
			&EventWarning{Component: "reaper", Error: exec.ErrWouldBlock.Error()},
		})
	})
}

func signalsEqual(a, b []exec.SignalCall) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
