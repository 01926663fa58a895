package initsys

import (
	"context"
	"syscall"
	"time"

	"github.com/dartos/init-system/initsys/exec"
	"github.com/dartos/init-system/initsys/shutdown"
	"github.com/pkg/errors"
)

// DefaultConsumer is the consumer label the shutdown line is requested with.
const DefaultConsumer = "init-system"

// DefaultGraceDelay is the time given to freshly launched applications to fail
// before the liveness check.
const DefaultGraceDelay = 10 * time.Millisecond

// State is a state of the supervisor's state machine.
type State uint8

const (
	StateInitializing State = iota
	StatePreExec
	StateLaunching
	StateLivenessCheck
	StateAwaitingShutdown
	StateTerminating
	StateReleased
	StateDone
)

var stateNames = [...]string{
	StateInitializing:     "initializing",
	StatePreExec:          "pre-exec",
	StateLaunching:        "launching",
	StateLivenessCheck:    "liveness check",
	StateAwaitingShutdown: "awaiting shutdown",
	StateTerminating:      "terminating",
	StateReleased:         "released",
	StateDone:             "done",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Config describes a supervisor run.
type Config struct {
	// Consumer labels the shutdown line request. DefaultConsumer is used if
	// empty.
	Consumer string
	Chip     string
	Line     uint32
	// PreExec is run to completion before any application is launched.
	PreExec string
	// Apps are launched in order and never restarted.
	Apps []string
	// GraceDelay precedes the liveness check.
	GraceDelay time.Duration
	// StopTimeout bounds how long applications may take to exit after
	// SIGTERM before they are killed. Zero waits forever.
	StopTimeout time.Duration
}

func (cfg Config) validate() error {
	if cfg.PreExec == "" {
		return errors.Wrap(syscall.EINVAL, "missing pre-exec application")
	}
	if cfg.GraceDelay < 0 {
		return errors.Wrap(syscall.EINVAL, "negative grace delay")
	}
	if cfg.StopTimeout < 0 {
		return errors.Wrap(syscall.EINVAL, "negative stop timeout")
	}
	for _, app := range cfg.Apps {
		if app == "" {
			return errors.Wrap(syscall.EINVAL, "empty application path")
		}
	}
	return nil
}

// Supervisor launches the applications of a Config and stops them once the
// shutdown source fires. A Supervisor runs once.
type Supervisor struct {
	cfg  Config
	src  shutdown.Source
	sys  exec.System
	j    Journaler
	apps AppSet

	state      State
	terminated bool
}

// NewSupervisor creates a supervisor. Nothing is acquired or started until Run.
func NewSupervisor(cfg Config, src shutdown.Source, sys exec.System, j Journaler) *Supervisor {
	if cfg.Consumer == "" {
		cfg.Consumer = DefaultConsumer
	}

	return &Supervisor{
		cfg:  cfg,
		src:  src,
		sys:  sys,
		j:    j,
		apps: NewAppSet(cfg.Apps),
	}
}

// Apps returns the application table. It must not be read while Run is in
// progress.
func (s *Supervisor) Apps() AppSet { return s.apps }

// State returns the state the supervisor is in. It must not be read while Run
// is in progress.
func (s *Supervisor) State() State { return s.state }

// Run drives the supervisor through its whole lifecycle and returns once the
// shutdown sequence has completed. The returned error wraps the OS error of
// the step that failed; see ExitCode.
//
// Once the shutdown source is acquired, it is released exactly once before Run
// returns, whatever happens. If waiting on the source fails, the applications
// are still terminated before the error is returned.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.state != StateInitializing {
		return errors.New("supervisor already ran")
	}
	defer s.enter(StateDone)

	if err := s.cfg.validate(); err != nil {
		return err
	}

	h, err := s.src.Acquire(s.cfg.Consumer, s.cfg.Chip, s.cfg.Line)
	if err != nil {
		s.j.Write(&EventSourceError{Op: "acquire", Error: err.Error()})
		return errors.Wrap(err, "failed to acquire shutdown source")
	}

	s.j.Write(&EventSourceAcquired{
		Consumer: s.cfg.Consumer,
		Chip:     s.cfg.Chip,
		Line:     s.cfg.Line,
	})

	defer s.release(h)

	s.enter(StatePreExec)
	// Best-effort; the failure is already journaled.
	LaunchBlocking(s.sys, s.j, s.cfg.PreExec)

	s.enter(StateLaunching)
	LaunchAll(s.sys, s.j, s.apps)

	s.enter(StateLivenessCheck)
	time.Sleep(s.cfg.GraceDelay)
	CheckAll(s.sys, s.j, s.apps)

	s.enter(StateAwaitingShutdown)
	waitErr := h.Wait(ctx)
	if waitErr != nil {
		s.j.Write(&EventSourceError{Op: "wait", Error: waitErr.Error()})
		waitErr = errors.Wrap(waitErr, "failed to poll shutdown source")
	} else {
		s.j.Write(&EventTerminating{})
	}

	s.enter(StateTerminating)
	s.terminate()

	return waitErr
}

// terminate runs the termination sequence at most once.
func (s *Supervisor) terminate() {
	if s.terminated {
		return
	}
	s.terminated = true

	elapsed := TerminateAll(s.sys, s.j, s.apps, s.cfg.StopTimeout)
	s.j.Write(&EventTerminated{Elapsed: elapsed})
}

func (s *Supervisor) release(h shutdown.Handle) {
	s.enter(StateReleased)

	if err := h.Release(); err != nil {
		s.j.Write(&EventWarning{
			Component: "shutdown source",
			Error:     err.Error(),
		})
	}

	s.j.Write(&EventSourceReleased{})
}

func (s *Supervisor) enter(state State) {
	s.state = state
}

// ExitCode returns the process exit status for the error returned by Run: 0
// for nil, the errno if err wraps one, and 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}

	return 1
}
