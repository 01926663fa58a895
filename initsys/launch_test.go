package initsys

import (
	"syscall"
	"testing"

	"github.com/dartos/init-system/initsys/exec"
)

func TestLaunchBlocking(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		sys := exec.NewFakeSystem()
		sys.ExitOnStart["pre"] = 4
		j := mockJournal{}

		if err := LaunchBlocking(sys, &j, "pre"); err != nil {
			t.Fatal("unexpected error:", err)
		}

		j.Verify(t, true, []Event{
			&EventPreExecExited{File: "pre", PID: 101, ExitCode: 4},
		})
	})

	t.Run("failure", func(t *testing.T) {
		sys := exec.NewFakeSystem()
		sys.StartErr["pre"] = syscall.EAGAIN
		j := mockJournal{}

		err := LaunchBlocking(sys, &j, "pre")
		if ExitCode(err) != int(syscall.EAGAIN) {
			t.Errorf("got error %v, expected EAGAIN", err)
		}

		j.Verify(t, true, []Event{
			&EventProcessSpawnError{File: "pre", Reason: syscall.EAGAIN.Error()},
		})
	})
}

func TestLaunchAll(t *testing.T) {
	sys := exec.NewFakeSystem()
	sys.StartErr["b"] = syscall.EAGAIN
	j := mockJournal{}

	set := NewAppSet([]string{"a", "b", "c"})
	LaunchAll(sys, &j, set)

	j.Verify(t, true, []Event{
		&EventProcessLaunching{File: "a"},
		&EventProcessSpawned{File: "a", PID: 101},
		&EventProcessLaunching{File: "b"},
		&EventProcessSpawnError{File: "b", Reason: syscall.EAGAIN.Error()},
		&EventProcessLaunching{File: "c"},
		&EventProcessSpawned{File: "c", PID: 102},
	})

	expect := []App{
		{Path: "a", PID: 101, State: AppRunning},
		{Path: "b", PID: exec.NoPID, State: AppRunning, LaunchErr: syscall.EAGAIN},
		{Path: "c", PID: 102, State: AppRunning},
	}

	for i, app := range set {
		if app != expect[i] {
			t.Errorf("app %d: got %#v, expected %#v", i, app, expect[i])
		}
	}

	if n := set.Count(AppPending); n != 0 {
		t.Errorf("%d apps still pending after launch", n)
	}
}
