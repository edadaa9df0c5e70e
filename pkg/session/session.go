//go:build linux || darwin

package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ferama/ptyrun/pkg/conf"
	"github.com/ferama/ptyrun/pkg/logger"
	"github.com/ferama/ptyrun/pkg/pty"
	"github.com/ferama/ptyrun/pkg/rio"
	"github.com/ferama/ptyrun/pkg/utils"
)

var log = logger.NewLogger("[SESS] ", logger.Blue)

// DrainTimeout bounds how long output is still read once the session leader
// has exited. Descendants that detached into their own session may keep the
// terminal open forever.
var DrainTimeout = 500 * time.Millisecond

// ErrNotRunning is returned when signalling a session whose process exited.
var ErrNotRunning = errors.New("session is not running")

// Session is a program running on its own pseudo terminal.
type Session struct {
	Name string

	term     *pty.PseudoTerminal
	cmd      *exec.Cmd
	started  time.Time
	draining atomic.Bool

	done     chan struct{}
	exitCode int
	waitErr  error
}

// Start allocates a pseudo terminal sized as cfg asks and spawns the
// configured program on it. The process is reaped in the background; use
// Wait or Done to observe its exit.
func Start(cfg *conf.SessionConf) (*Session, error) {
	pair, err := pty.Allocate()
	if err != nil {
		return nil, err
	}
	if err := pair.Resize(cfg.Cols, cfg.Rows); err != nil {
		pair.Close()
		return nil, err
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = buildEnv(cfg)

	var opts []pty.SpawnOption
	if cfg.ExecHelper {
		exe, err := os.Executable()
		if err != nil {
			pair.Close()
			return nil, fmt.Errorf("cannot locate exec helper: %w", err)
		}
		opts = append(opts, pty.WithExecHelper(exe))
	}

	term, _, err := pair.Spawn(cmd, opts...)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Name:    cfg.Name,
		term:    term,
		cmd:     cmd,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	go s.reap()

	log.Printf("session %s started: pid %d on %s (%dx%d)",
		s.Name, cmd.Process.Pid, term.Name(), cfg.Cols, cfg.Rows)
	return s, nil
}

func buildEnv(cfg *conf.SessionConf) []string {
	var base []string
	if !cfg.CleanEnv {
		base = os.Environ()
	}
	env := utils.MergeEnv(base, cfg.Env...)
	if _, ok := utils.LookupEnv(env, "TERM"); !ok {
		env = append(env, "TERM="+cfg.Term)
	}
	return env
}

func (s *Session) reap() {
	err := s.cmd.Wait()
	s.exitCode = exitCode(s.cmd.ProcessState)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		s.waitErr = err
	}
	s.drain()
	close(s.done)

	log.Printf("session %s exited with code %d after %s",
		s.Name, s.exitCode, time.Since(s.started).Round(time.Millisecond))
}

// drain lets pending output reads finish within DrainTimeout and then makes
// them report the end of the output.
func (s *Session) drain() {
	s.draining.Store(true)
	s.term.SetReadDeadline(time.Now().Add(DrainTimeout))
}

// exitCode follows the shell convention: 128+n for a process killed by signal n.
func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}

// Terminal returns the parent side of the session terminal.
func (s *Session) Terminal() *pty.PseudoTerminal {
	return s.term
}

// Pid returns the process id of the session leader.
func (s *Session) Pid() int {
	return s.cmd.Process.Pid
}

// Done is closed once the process has been reaped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Running reports whether the process has not exited yet.
func (s *Session) Running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the process exits and returns its exit code.
func (s *Session) Wait() (int, error) {
	<-s.done
	return s.exitCode, s.waitErr
}

// Resize changes the terminal window size.
func (s *Session) Resize(width, height uint32) error {
	return s.term.Resize(width, height)
}

// Signal sends sig to the session leader.
func (s *Session) Signal(sig os.Signal) error {
	if !s.Running() {
		return ErrNotRunning
	}
	return s.cmd.Process.Signal(sig)
}

// Kill terminates the whole session process group.
func (s *Session) Kill() error {
	if !s.Running() {
		return ErrNotRunning
	}
	// the leader is also the process group leader of its new session
	if err := syscall.Kill(-s.Pid(), syscall.SIGKILL); err != nil {
		return s.cmd.Process.Kill()
	}
	return nil
}

// CopyOutput copies everything the program writes to its terminal into w until
// the terminal hangs up, or until DrainTimeout after the leader exited. Chunk
// sizes are sent on wch when it is not nil.
func (s *Session) CopyOutput(w io.Writer, wch chan<- int64) (int64, error) {
	n, err := rio.Copy(w, s.term, wch)
	if errors.Is(err, os.ErrDeadlineExceeded) && s.draining.Load() {
		err = nil
	}
	return n, err
}

// Close kills the process if still running, waits for it and releases the
// terminal.
func (s *Session) Close() error {
	if s.Running() {
		s.Kill()
	}
	<-s.done
	return s.term.Close()
}
