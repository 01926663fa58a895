package initsys

import "github.com/dartos/init-system/initsys/exec"

// CheckAll polls every running application once without blocking. Each one
// found dead is journaled with a warning, has its PID cleared and is marked
// exited. It returns the number of applications found dead.
func CheckAll(sys exec.System, j Journaler, set AppSet) int {
	var exited int

	for i := range set {
		app := &set[i]
		if app.State != AppRunning {
			continue
		}

		ev := &EventProcessExitedEarly{
			File:     app.Path,
			PID:      app.PID,
			ExitCode: -1,
		}

		if app.LaunchErr != nil {
			ev.Error = app.LaunchErr.Error()
		} else {
			status, dead, err := sys.Poll(app.PID)
			switch {
			case err != nil:
				// Not our child anymore, so it cannot be running either.
				ev.Error = err.Error()
			case !dead:
				continue
			default:
				ev.ExitCode = status.Code
			}
		}

		j.Write(ev)
		set.markExited(i)
		exited++
	}

	return exited
}
