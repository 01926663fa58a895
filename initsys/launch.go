package initsys

import (
	"github.com/dartos/init-system/initsys/exec"
	"github.com/pkg/errors"
)

// LaunchBlocking runs the program at path to completion. A failure is written
// into the journal and returned, but the caller is expected to carry on; the
// program's exit status is only journaled.
func LaunchBlocking(sys exec.System, j Journaler, path string) error {
	status, err := sys.Run(path)
	if err != nil {
		j.Write(&EventProcessSpawnError{
			File:   path,
			Reason: err.Error(),
		})
		return errors.Wrapf(err, "failed to run %q", path)
	}

	j.Write(&EventPreExecExited{
		File:     path,
		PID:      status.PID,
		ExitCode: status.Code,
	})

	return nil
}

// LaunchAsync starts the program at path and returns its PID without waiting
// for it. The launch is announced in the journal beforehand.
func LaunchAsync(sys exec.System, j Journaler, path string) (int, error) {
	j.Write(&EventProcessLaunching{File: path})

	pid, err := sys.Start(path)
	if err != nil {
		j.Write(&EventProcessSpawnError{
			File:   path,
			Reason: err.Error(),
		})
		return exec.NoPID, err
	}

	j.Write(&EventProcessSpawned{
		File: path,
		PID:  pid,
	})

	return pid, nil
}

// LaunchAll launches every pending application in set, in order. A launch
// failure never stops the remaining launches; the application is left running
// without a PID so that the liveness check reports it.
func LaunchAll(sys exec.System, j Journaler, set AppSet) {
	for i := range set {
		app := &set[i]
		if app.State != AppPending {
			continue
		}

		pid, err := LaunchAsync(sys, j, app.Path)
		app.PID = pid
		app.LaunchErr = err
		app.State = AppRunning
	}
}
