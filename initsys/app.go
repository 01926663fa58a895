package initsys

import "github.com/dartos/init-system/initsys/exec"

// AppState is the lifecycle state of a supervised application.
type AppState uint8

const (
	AppPending AppState = iota
	AppRunning
	AppExited
)

func (s AppState) String() string {
	switch s {
	case AppPending:
		return "pending"
	case AppRunning:
		return "running"
	case AppExited:
		return "exited"
	default:
		return "unknown"
	}
}

// App is the supervisor's bookkeeping record for one supervised application.
type App struct {
	Path  string
	PID   int // exec.NoPID once known exited
	State AppState
	// LaunchErr is set if no child could be created for the application at
	// all. The application is then reported as exited by the liveness check.
	LaunchErr error
}

// AppSet is the table of supervised applications, indexed by launch order. It
// never grows or shrinks after NewAppSet.
type AppSet []App

// NewAppSet creates a table of pending applications.
func NewAppSet(paths []string) AppSet {
	set := make(AppSet, len(paths))
	for i, path := range paths {
		set[i] = App{Path: path, PID: exec.NoPID, State: AppPending}
	}
	return set
}

// Count returns the number of applications in the given state.
func (set AppSet) Count(state AppState) int {
	var n int
	for _, app := range set {
		if app.State == state {
			n++
		}
	}
	return n
}

// markExited clears the PID of the application at i and marks it exited.
func (set AppSet) markExited(i int) {
	set[i].PID = exec.NoPID
	set[i].State = AppExited
}

// indexOf returns the index of the running application with the given PID or
// -1.
func (set AppSet) indexOf(pid int) int {
	if pid == exec.NoPID {
		return -1
	}
	for i, app := range set {
		if app.State == AppRunning && app.PID == pid {
			return i
		}
	}
	return -1
}
