//go:build linux || darwin

package pty

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/ferama/ptyrun/pkg/ptysys"
	"golang.org/x/sys/unix"
)

// execHelperEnv carries the status pipe descriptor number into the helper.
const execHelperEnv = "PTYRUN_EXEC_HELPER_FD"

const helperExitCode = 127

// A status record is one step byte followed by a big endian errno.
const statusLen = 5

// ExecHelperMain turns the current process into the session setup helper
// when it was started by Spawn with WithExecHelper, and returns immediately
// otherwise. Call it first thing in main (and in TestMain for tests that
// spawn through the helper).
//
// The helper creates a new session, takes the terminal on stdin as its
// controlling terminal and execs the target. A failing step is written to the
// status pipe; a successful exec closes the pipe.
func ExecHelperMain() {
	v, ok := os.LookupEnv(execHelperEnv)
	if !ok {
		return
	}
	fd, err := strconv.Atoi(v)
	if err != nil || len(os.Args) < 2 {
		os.Exit(helperExitCode)
	}
	unix.CloseOnExec(fd)
	os.Unsetenv(execHelperEnv)

	if err := ptysys.CreateProcessGroup(); err != nil {
		helperFail(fd, SpawnCreateSession, err)
	}
	if err := ptysys.SetControllingTerminalToStdin(); err != nil {
		helperFail(fd, SpawnSetControllingTerminal, err)
	}

	argv := os.Args[2:]
	if len(argv) == 0 {
		argv = []string{os.Args[1]}
	}
	err = syscall.Exec(os.Args[1], argv, os.Environ())
	helperFail(fd, SpawnProcess, err)
}

func helperFail(fd int, step SpawnStep, err error) {
	msg := encodeStatus(step, err)
	unix.Write(fd, msg[:])
	os.Exit(helperExitCode)
}

// encodeStatus builds the record the helper writes for a failing step. Errors
// that carry no errno are reported as EINVAL.
func encodeStatus(step SpawnStep, err error) [statusLen]byte {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		errno = unix.EINVAL
	}
	var msg [statusLen]byte
	msg[0] = byte(step)
	binary.BigEndian.PutUint32(msg[1:], uint32(errno))
	return msg
}

// decodeStatus turns a status record back into the error of its step. An
// unknown step byte is reported as a spawn failure.
func decodeStatus(msg [statusLen]byte) *SpawnError {
	step := SpawnStep(msg[0])
	if !step.valid() {
		step = SpawnProcess
	}
	return &SpawnError{
		Step: step,
		Err:  syscall.Errno(binary.BigEndian.Uint32(msg[1:])),
	}
}

// startWithHelper rewrites cmd to run through the helper binary and waits for
// the helper to either exec the target or report the failing step.
func startWithHelper(cmd *exec.Cmd, helper string) error {
	if cmd.Err != nil {
		return &SpawnError{Step: SpawnProcess, Err: cmd.Err}
	}

	r, w, err := os.Pipe()
	if err != nil {
		return &SpawnError{Step: SpawnProcess, Err: err}
	}
	defer r.Close()

	args := cmd.Args
	if len(args) == 0 {
		args = []string{cmd.Path}
	}
	statusFd := 3 + len(cmd.ExtraFiles)
	cmd.Env = append(cmd.Environ(), fmt.Sprintf("%s=%d", execHelperEnv, statusFd))
	cmd.ExtraFiles = append(cmd.ExtraFiles, w)
	cmd.Args = append([]string{helper, cmd.Path}, args...)
	cmd.Path = helper
	if cmd.SysProcAttr != nil {
		// the helper creates the session itself
		attr := *cmd.SysProcAttr
		attr.Setsid = false
		attr.Setpgid = false
		attr.Setctty = false
		attr.Foreground = false
		cmd.SysProcAttr = &attr
	}

	err = cmd.Start()
	w.Close()
	if err != nil {
		return &SpawnError{Step: SpawnProcess, Err: err}
	}

	var msg [statusLen]byte
	_, err = io.ReadFull(r, msg[:])
	switch {
	case err == io.EOF:
		return nil
	case err != nil:
		cmd.Process.Kill()
		cmd.Wait()
		return &SpawnError{Step: SpawnProcess, Err: fmt.Errorf("exec helper status: %w", err)}
	}

	cmd.Wait()
	return decodeStatus(msg)
}
