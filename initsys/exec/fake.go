package exec

import (
	"sort"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrWouldBlock is returned by the fake WaitAny when a blocking wait could
// never return because every remaining process ignores its signals.
var ErrWouldBlock = errors.New("fake: wait would block forever")

type fakeProc struct {
	pid    int
	path   string
	exited bool
	status ExitStatus
}

// SignalCall records a single Signal call made on a FakeSystem.
type SignalCall struct {
	PID    int
	Signal syscall.Signal
}

// FakeSystem is an in-memory System used for testing. Its processes run
// forever until they are signaled or told to exit with Exit. A zero-value
// instance is not valid; use NewFakeSystem.
type FakeSystem struct {
	// StartErr maps a path to the error Start and Run return for it.
	StartErr map[string]error
	// ExitOnStart maps a path to an exit code the process exits with as soon
	// as it starts, like a program that fails its exec.
	ExitOnStart map[string]int
	// IgnoreTerm lists paths whose processes survive SIGTERM.
	IgnoreTerm map[string]bool
	// SignalErr maps a path to the error Signal returns for its process.
	SignalErr map[string]error

	mutex   sync.Mutex
	nextPID int
	procs   map[int]*fakeProc
	started []string
	ran     []string
	signals []SignalCall
}

var _ System = (*FakeSystem)(nil)

// NewFakeSystem creates a new fake process table. PIDs start at 100.
func NewFakeSystem() *FakeSystem {
	return &FakeSystem{
		StartErr:    map[string]error{},
		ExitOnStart: map[string]int{},
		IgnoreTerm:  map[string]bool{},
		SignalErr:   map[string]error{},
		nextPID:     100,
		procs:       map[int]*fakeProc{},
	}
}

// Start implements System.
func (fake *FakeSystem) Start(path string) (int, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	return fake.start(path)
}

func (fake *FakeSystem) start(path string) (int, error) {
	if err := fake.StartErr[path]; err != nil {
		return NoPID, err
	}

	fake.nextPID++
	proc := &fakeProc{pid: fake.nextPID, path: path}
	fake.procs[proc.pid] = proc
	fake.started = append(fake.started, path)

	if code, ok := fake.ExitOnStart[path]; ok {
		proc.exit(ExitStatus{PID: proc.pid, Code: code})
	}

	return proc.pid, nil
}

// Run implements System. The process exits as soon as it starts, with the
// ExitOnStart code for path or 0.
func (fake *FakeSystem) Run(path string) (ExitStatus, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	if err := fake.StartErr[path]; err != nil {
		return ExitStatus{}, err
	}

	fake.nextPID++
	fake.ran = append(fake.ran, path)

	return ExitStatus{PID: fake.nextPID, Code: fake.ExitOnStart[path]}, nil
}

// Poll implements System.
func (fake *FakeSystem) Poll(pid int) (ExitStatus, bool, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	proc, ok := fake.procs[pid]
	if !ok {
		return ExitStatus{PID: pid, Code: -1}, false, unix.ECHILD
	}
	if !proc.exited {
		return ExitStatus{}, false, nil
	}

	delete(fake.procs, pid)
	return proc.status, true, nil
}

// Signal implements System. SIGTERM and SIGINT stop a process unless its path
// is in IgnoreTerm; SIGKILL always stops it.
func (fake *FakeSystem) Signal(pid int, sig syscall.Signal) error {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	fake.signals = append(fake.signals, SignalCall{pid, sig})

	proc, ok := fake.procs[pid]
	if !ok {
		return unix.ESRCH
	}
	if err := fake.SignalErr[proc.path]; err != nil {
		return err
	}
	if proc.exited {
		// Zombies accept signals silently.
		return nil
	}

	switch sig {
	case syscall.SIGTERM, syscall.SIGINT:
		if fake.IgnoreTerm[proc.path] {
			return nil
		}
	case syscall.SIGKILL:
	default:
		return errors.New("unknown signal")
	}

	proc.exit(ExitStatus{PID: pid, Code: -1, Signal: sig})
	return nil
}

// WaitAny implements System. Exited processes are reaped in PID order.
func (fake *FakeSystem) WaitAny(block bool) (ExitStatus, bool, error) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	if len(fake.procs) == 0 {
		return ExitStatus{PID: -1, Code: -1}, false, ErrNoChildren
	}

	for _, pid := range fake.pids() {
		proc := fake.procs[pid]
		if proc.exited {
			delete(fake.procs, pid)
			return proc.status, true, nil
		}
	}

	if block {
		return ExitStatus{}, false, ErrWouldBlock
	}

	return ExitStatus{}, false, nil
}

// Exit makes the process with the given PID exit with code, as if it had
// terminated on its own.
func (fake *FakeSystem) Exit(pid, code int) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	if proc, ok := fake.procs[pid]; ok && !proc.exited {
		proc.exit(ExitStatus{PID: pid, Code: code})
	}
}

// Orphan adds an already exited process that is not one of the started
// applications, like a grandchild reparented to the supervisor.
func (fake *FakeSystem) Orphan() int {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	fake.nextPID++
	proc := &fakeProc{pid: fake.nextPID}
	proc.exit(ExitStatus{PID: proc.pid})
	fake.procs[proc.pid] = proc

	return proc.pid
}

// Alive returns the number of processes that have not been reaped yet.
func (fake *FakeSystem) Alive() int {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	return len(fake.procs)
}

// Started returns the paths passed to Start, in order.
func (fake *FakeSystem) Started() []string {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	return append([]string(nil), fake.started...)
}

// Ran returns the paths passed to Run, in order.
func (fake *FakeSystem) Ran() []string {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	return append([]string(nil), fake.ran...)
}

// Signals returns every Signal call made so far.
func (fake *FakeSystem) Signals() []SignalCall {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	return append([]SignalCall(nil), fake.signals...)
}

func (fake *FakeSystem) pids() []int {
	pids := make([]int, 0, len(fake.procs))
	for pid := range fake.procs {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

func (proc *fakeProc) exit(status ExitStatus) {
	proc.exited = true
	proc.status = status
}
