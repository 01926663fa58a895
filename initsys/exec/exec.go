// Package exec provides an abstraction around the process-control system calls
// used by the supervisor for easier testing.
//
// Children are started by re-executing the running binary under a reserved
// argv[0]. The re-executed copy does nothing but replace its own image with the
// requested program, so a failure to exec kills only that child and is later
// observed by the supervisor as an early exit. For this to work, Init must be
// the very first thing main (and TestMain of any test starting real processes)
// calls.
package exec

import (
	"fmt"
	"os"
	stdexec "os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// NoPID is the process ID of an application that is known to have exited or
// that never started.
const NoPID = 0

// childArg0 is the argv[0] a re-executed child is started with.
const childArg0 = "init-system:exec"

// ErrNoChildren is returned by WaitAny once every child has been reaped.
var ErrNoChildren error = unix.ECHILD

// System describes the process-control operations the supervisor relies on.
type System interface {
	// Start starts path in a new child process without waiting for it.
	Start(path string) (int, error)
	// Run starts path in a new child process and waits for it to exit.
	Run(path string) (ExitStatus, error)
	// Poll reaps pid if it has exited, without blocking.
	Poll(pid int) (ExitStatus, bool, error)
	// Signal sends sig to pid.
	Signal(pid int, sig syscall.Signal) error
	// WaitAny reaps any one child. If block is false and no child has exited
	// yet, it returns immediately with false.
	WaitAny(block bool) (ExitStatus, bool, error)
}

// ExitStatus is a process' exit status.
type ExitStatus struct {
	PID    int
	Code   int // -1 if killed by a signal
	Signal syscall.Signal
}

func newExitStatus(pid int, ws unix.WaitStatus) ExitStatus {
	status := ExitStatus{PID: pid, Code: -1}

	switch {
	case ws.Exited():
		status.Code = ws.ExitStatus()
	case ws.Signaled():
		status.Signal = syscall.Signal(ws.Signal())
	}

	return status
}

// Init runs the exec half of a re-executed child and never returns in that
// case. It returns false in every other process. prefix is prepended to the
// diagnostic written when the exec fails.
func Init(prefix string) bool {
	if len(os.Args) != 2 || os.Args[0] != childArg0 {
		return false
	}

	os.Exit(execOrDie(prefix, os.Args[1]))
	return true
}

// execOrDie replaces the current image with path. It only returns if that
// fails, with the errno the child should exit with.
func execOrDie(prefix, path string) int {
	bin := path
	if !strings.Contains(path, "/") {
		if p, err := stdexec.LookPath(path); err == nil {
			bin = p
		}
	}

	err := unix.Exec(bin, []string{path}, os.Environ())

	fmt.Fprintf(os.Stderr, "%sFailed to execute process '%s': %v.\n", prefix, path, err)

	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}
	return 1
}

type unixSystem struct {
	self string

	once         sync.Once
	subreaperErr error
}

var _ System = (*unixSystem)(nil)

// New creates a System backed by the operating system.
func New() System {
	return &unixSystem{self: "/proc/self/exe"}
}

func (s *unixSystem) Start(path string) (int, error) {
	// Linux-only: become a subreaper so that descendants orphaned by our
	// children get reparented to us and are covered by WaitAny even when we
	// are not PID 1.
	s.once.Do(func() {
		s.subreaperErr = unix.Prctl(unix.PR_SET_CHILD_SUBREAPER, 1, 0, 0, 0)
	})
	if s.subreaperErr != nil {
		return NoPID, errors.Wrap(s.subreaperErr, "failed to set subreaper")
	}

	p, err := os.StartProcess(s.self, []string{childArg0, path}, s.procAttr())
	if err != nil {
		return NoPID, err
	}

	pid := p.Pid

	// The child is reaped with wait4 from here on, so drop the handle the os
	// package keeps for it.
	p.Release()

	return pid, nil
}

// procAttr returns the attributes every child is started with.
func (s *unixSystem) procAttr() *os.ProcAttr {
	return &os.ProcAttr{
		Env:   os.Environ(),
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
		// Linux-only: children get SIGTERM when we die. The signal is tied to
		// the OS thread that forked rather than to the process, and the Go
		// runtime only retires a thread when a goroutine exits while locked to
		// it with runtime.LockOSThread, which nothing here does.
		Sys: &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM},
	}
}

func (s *unixSystem) Run(path string) (ExitStatus, error) {
	pid, err := s.Start(path)
	if err != nil {
		return ExitStatus{}, err
	}

	status, _, err := wait4(pid, 0)
	return status, err
}

func (s *unixSystem) Poll(pid int) (ExitStatus, bool, error) {
	return wait4(pid, unix.WNOHANG)
}

func (s *unixSystem) Signal(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}

func (s *unixSystem) WaitAny(block bool) (ExitStatus, bool, error) {
	options := 0
	if !block {
		options = unix.WNOHANG
	}

	return wait4(-1, options)
}

func wait4(pid, options int) (ExitStatus, bool, error) {
	var ws unix.WaitStatus

	for {
		wpid, err := unix.Wait4(pid, &ws, options, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ExitStatus{PID: pid, Code: -1}, false, err
		}
		if wpid == 0 {
			// WNOHANG and nothing has exited yet.
			return ExitStatus{}, false, nil
		}

		return newExitStatus(wpid, ws), true, nil
	}
}
