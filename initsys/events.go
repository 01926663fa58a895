package initsys

import "time"

// eventType describes an event type.
type eventType = string

const (
	eventWarning            eventType = "warning"
	eventPreviousRunUnclean eventType = "previous run unclean"
	eventSourceAcquired     eventType = "shutdown source acquired"
	eventSourceError        eventType = "shutdown source error"
	eventPreExecExited      eventType = "pre-exec exited"
	eventProcessLaunching   eventType = "process launching"
	eventProcessSpawnError  eventType = "process spawn error"
	eventProcessSpawned     eventType = "process spawned"
	eventProcessExitedEarly eventType = "process exited early"
	eventTerminating        eventType = "terminating"
	eventProcessSignalError eventType = "process signal error"
	eventProcessKilled      eventType = "process killed"
	eventProcessExited      eventType = "process exited"
	eventTerminated         eventType = "terminated"
	eventSourceReleased     eventType = "shutdown source released"
)

// Event is an interface describing known events.
type Event interface {
	Type() string
	event()
}

// NewEvent creates a new event from the given event type. It is used primarily
// for decoding events from its type. Nil is returned if the event type is
// unknown.
func NewEvent(eventType string) Event {
	switch eventType {
	case eventWarning:
		return &EventWarning{}
	case eventPreviousRunUnclean:
		return &EventPreviousRunUnclean{}
	case eventSourceAcquired:
		return &EventSourceAcquired{}
	case eventSourceError:
		return &EventSourceError{}
	case eventPreExecExited:
		return &EventPreExecExited{}
	case eventProcessLaunching:
		return &EventProcessLaunching{}
	case eventProcessSpawnError:
		return &EventProcessSpawnError{}
	case eventProcessSpawned:
		return &EventProcessSpawned{}
	case eventProcessExitedEarly:
		return &EventProcessExitedEarly{}
	case eventTerminating:
		return &EventTerminating{}
	case eventProcessSignalError:
		return &EventProcessSignalError{}
	case eventProcessKilled:
		return &EventProcessKilled{}
	case eventProcessExited:
		return &EventProcessExited{}
	case eventTerminated:
		return &EventTerminated{}
	case eventSourceReleased:
		return &EventSourceReleased{}
	default:
		return nil
	}
}

// EventWarning is emitted when a non-fatal error occurs.
type EventWarning struct {
	Component string `json:"component"`
	Error     string `json:"error"`
}

func (ev *EventWarning) Type() string { return eventWarning }
func (ev *EventWarning) event()       {}

// EventPreviousRunUnclean is emitted on startup if the journal shows that the
// previous run never released its shutdown source, usually because the device
// lost power before the shutdown sequence completed. Torn is set if the newest
// journal entry was only partially written.
type EventPreviousRunUnclean struct {
	LastEvent string    `json:"last_event,omitempty"`
	LastTime  time.Time `json:"last_time"`
	Torn      bool      `json:"torn,omitempty"`
}

func (ev *EventPreviousRunUnclean) Type() string { return eventPreviousRunUnclean }
func (ev *EventPreviousRunUnclean) event()       {}

// EventSourceAcquired is emitted once the shutdown signal source is acquired.
type EventSourceAcquired struct {
	Consumer string `json:"consumer"`
	Chip     string `json:"chip"`
	Line     uint32 `json:"line"`
}

func (ev *EventSourceAcquired) Type() string { return eventSourceAcquired }
func (ev *EventSourceAcquired) event()       {}

// EventSourceError is emitted when acquiring or waiting on the shutdown signal
// source fails. Both are fatal.
type EventSourceError struct {
	Op    string `json:"op"`
	Error string `json:"error"`
}

func (ev *EventSourceError) Type() string { return eventSourceError }
func (ev *EventSourceError) event()       {}

// EventPreExecExited is emitted when the pre-execution application finishes.
type EventPreExecExited struct {
	File     string `json:"file"`
	PID      int    `json:"pid"`
	ExitCode int    `json:"exit_code"` // -1 if killed by a signal
}

func (ev *EventPreExecExited) Type() string { return eventPreExecExited }
func (ev *EventPreExecExited) event()       {}

// EventProcessLaunching is emitted right before an application is started.
type EventProcessLaunching struct {
	File string `json:"file"`
}

func (ev *EventProcessLaunching) Type() string { return eventProcessLaunching }
func (ev *EventProcessLaunching) event()       {}

// EventProcessSpawnError is emitted when a process fails to start for any
// reason.
type EventProcessSpawnError struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

func (ev *EventProcessSpawnError) Type() string { return eventProcessSpawnError }
func (ev *EventProcessSpawnError) event()       {}

// EventProcessSpawned is emitted when a process has been started.
type EventProcessSpawned struct {
	File string `json:"file"`
	PID  int    `json:"pid"`
}

func (ev *EventProcessSpawned) Type() string { return eventProcessSpawned }
func (ev *EventProcessSpawned) event()       {}

// EventProcessExitedEarly is emitted by the liveness check for an application
// that is already gone.
type EventProcessExitedEarly struct {
	File     string `json:"file"`
	PID      int    `json:"pid"`
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`
}

func (ev *EventProcessExitedEarly) Type() string { return eventProcessExitedEarly }
func (ev *EventProcessExitedEarly) event()       {}

// EventTerminating is emitted once the shutdown event has been received.
type EventTerminating struct{}

func (ev *EventTerminating) Type() string { return eventTerminating }
func (ev *EventTerminating) event()       {}

// EventProcessSignalError is emitted when the termination request cannot be
// delivered to an application.
type EventProcessSignalError struct {
	File  string `json:"file"`
	PID   int    `json:"pid"`
	Error string `json:"error"`
}

func (ev *EventProcessSignalError) Type() string { return eventProcessSignalError }
func (ev *EventProcessSignalError) event()       {}

// EventProcessKilled is emitted when an application that outlived the stop
// timeout is sent SIGKILL.
type EventProcessKilled struct {
	File string `json:"file"`
	PID  int    `json:"pid"`
}

func (ev *EventProcessKilled) Type() string { return eventProcessKilled }
func (ev *EventProcessKilled) event()       {}

// EventProcessExited is emitted for every child reaped while terminating. File
// is empty for descendants that are not supervised applications.
type EventProcessExited struct {
	PID      int    `json:"pid"`
	File     string `json:"file,omitempty"`
	ExitCode int    `json:"exit_code"` // -1 if killed by a signal
}

func (ev *EventProcessExited) Type() string { return eventProcessExited }
func (ev *EventProcessExited) event()       {}

// EventTerminated is emitted once every child has been reaped.
type EventTerminated struct {
	Elapsed time.Duration `json:"elapsed"`
}

func (ev *EventTerminated) Type() string { return eventTerminated }
func (ev *EventTerminated) event()       {}

// EventSourceReleased is emitted after the shutdown signal source is released.
// It is the last event of every run that acquired the source.
type EventSourceReleased struct{}

func (ev *EventSourceReleased) Type() string { return eventSourceReleased }
func (ev *EventSourceReleased) event()       {}
