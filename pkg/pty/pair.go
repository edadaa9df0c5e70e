//go:build linux || darwin

package pty

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"

	"github.com/ferama/ptyrun/pkg/ptysys"
	"golang.org/x/sys/unix"
)

// childDevicePath is swapped out by tests to simulate lookup failures.
var childDevicePath = ptysys.ChildDevicePath

// PtyPair is an allocated pseudo terminal that has no process attached yet.
// It owns both descriptors until it is consumed by Spawn or released by Close.
type PtyPair struct {
	mu        sync.Mutex
	master    int
	child     int
	childPath string
}

// Allocate opens a new pseudo terminal master, grants and unlocks its child
// device and opens the child side. On failure every descriptor opened so far is
// closed and no pair is returned.
func Allocate() (*PtyPair, error) {
	master, err := ptysys.OpenMaster()
	if err != nil {
		return nil, &AllocateError{Step: AllocateOpen, Err: err}
	}
	if err := ptysys.Grant(master); err != nil {
		unix.Close(master)
		return nil, &AllocateError{Step: AllocateGrant, Err: err}
	}
	if err := ptysys.Unlock(master); err != nil {
		unix.Close(master)
		return nil, &AllocateError{Step: AllocateUnlock, Err: err}
	}
	path, err := childDevicePath(master)
	if err != nil {
		unix.Close(master)
		return nil, &AllocateError{Step: AllocateChildName, Err: err}
	}
	child, err := ptysys.OpenChild(path)
	if err != nil {
		unix.Close(master)
		return nil, &AllocateError{Step: AllocateOpenChild, Err: err}
	}

	p := &PtyPair{
		master:    master,
		child:     child,
		childPath: path,
	}
	runtime.SetFinalizer(p, (*PtyPair).Close)
	return p, nil
}

// ChildPath returns the filesystem path of the child device.
func (p *PtyPair) ChildPath() string {
	return p.childPath
}

// Resize sets the initial window size before a process is spawned, so the
// child sees the right dimensions from its first instruction.
func (p *PtyPair) Resize(width, height uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.master < 0 {
		return &ResizeError{Err: ErrPairConsumed}
	}
	if err := ptysys.ResizeFd(p.master, width, height); err != nil {
		return &ResizeError{Err: err}
	}
	return nil
}

// Close releases both descriptors of a pair that was never spawned.
func (p *PtyPair) Close() error {
	master, child, ok := p.take()
	if !ok {
		return nil
	}
	return errors.Join(unix.Close(master), unix.Close(child))
}

// take hands the descriptors over to the caller exactly once.
func (p *PtyPair) take() (master, child int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.master < 0 {
		return -1, -1, false
	}
	master, child = p.master, p.child
	p.master, p.child = -1, -1
	runtime.SetFinalizer(p, nil)
	return master, child, true
}

type spawnOptions struct {
	helper string
}

// SpawnOption customizes Spawn.
type SpawnOption func(*spawnOptions)

// WithExecHelper runs the session setup in a helper process instead of the Go
// fork hook. path must be a binary that calls ExecHelperMain before doing
// anything else, usually the running executable itself. The helper reports the
// exact step that failed.
func WithExecHelper(path string) SpawnOption {
	return func(o *spawnOptions) {
		o.helper = path
	}
}

// Spawn consumes the pair and starts cmd as the leader of a new session with
// the child device as its standard streams and controlling terminal. It returns
// the parent side of the terminal and the started process; cmd.Wait remains
// the way to reap it.
func (p *PtyPair) Spawn(cmd *exec.Cmd, opts ...SpawnOption) (*PseudoTerminal, *os.Process, error) {
	var o spawnOptions
	for _, opt := range opts {
		opt(&o)
	}

	master, child, ok := p.take()
	if !ok {
		return nil, nil, ErrPairConsumed
	}
	// the child process owns its own copies once started
	defer unix.Close(child)

	stdio, err := duplicateStdio(child, p.childPath)
	if err != nil {
		unix.Close(master)
		return nil, nil, &SpawnError{Step: SpawnDuplicateStdio, Err: err}
	}
	defer closeAll(stdio)

	term, err := newPseudoTerminal(master, p.childPath)
	if err != nil {
		return nil, nil, &SpawnError{Step: SpawnRegister, Err: err}
	}

	cmd.Stdin, cmd.Stdout, cmd.Stderr = stdio[0], stdio[1], stdio[2]
	if o.helper != "" {
		err = startWithHelper(cmd, o.helper)
	} else {
		err = startWithSessionHook(cmd)
	}
	if err != nil {
		term.Close()
		return nil, nil, err
	}
	return term, cmd.Process, nil
}

func duplicateStdio(fd int, name string) ([]*os.File, error) {
	files := make([]*os.File, 0, 3)
	for range 3 {
		dup, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
		if err != nil {
			closeAll(files)
			return nil, os.NewSyscallError("fcntl", err)
		}
		files = append(files, os.NewFile(uintptr(dup), name))
	}
	return files, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

// startWithSessionHook lets the runtime run setsid and TIOCSCTTY between fork
// and exec. Nothing else happens there: no allocation and no locks.
func startWithSessionHook(cmd *exec.Cmd) error {
	var attr syscall.SysProcAttr
	if cmd.SysProcAttr != nil {
		attr = *cmd.SysProcAttr
	}
	attr.Setsid = true
	attr.Setctty = true
	attr.Ctty = 0
	attr.Setpgid = false
	attr.Noctty = false
	attr.Foreground = false
	cmd.SysProcAttr = &attr

	if err := cmd.Start(); err != nil {
		return &SpawnError{Step: classifyStartError(err), Err: err}
	}
	return nil
}

// classifyStartError maps a fork/exec failure to the hook step that most
// likely produced it. The fork hook only reports an errno: EPERM comes from
// setsid, ENOTTY from TIOCSCTTY, and everything else is charged to execve.
// WithExecHelper gives exact attribution.
func classifyStartError(err error) SpawnStep {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return SpawnProcess
	}
	switch errno {
	case syscall.EPERM:
		return SpawnCreateSession
	case syscall.ENOTTY:
		return SpawnSetControllingTerminal
	}
	return SpawnProcess
}
