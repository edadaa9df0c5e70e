//go:build linux || darwin

package ptysys

import (
	"math"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

const ptmxPath = "/dev/ptmx"

// OpenMaster opens a new pseudo terminal master. The descriptor is read-write,
// does not become the controlling terminal of the caller, is non-blocking and
// is closed on exec.
func OpenMaster() (int, error) {
	fd, err := unix.Open(ptmxPath, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, &os.PathError{Op: "open", Path: ptmxPath, Err: err}
	}
	return fd, nil
}

// OpenChild opens the child side of a pseudo terminal read-write. O_NOCTTY keeps
// the device from becoming the controlling terminal of the calling process
// when it happens to be a session leader without one.
func OpenChild(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return fd, nil
}

// ClampDimension saturates a terminal dimension to the 16 bit winsize field.
func ClampDimension(v uint32) uint16 {
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}

// ResizeFd sets the window size of the terminal referred to by fd.
// Oversized dimensions are clamped, never rejected.
func ResizeFd(fd int, width, height uint32) error {
	return unix.IoctlSetWinsize(fd, unix.TIOCSWINSZ, &unix.Winsize{
		Col: ClampDimension(width),
		Row: ClampDimension(height),
	})
}

// Resize sets the window size of the terminal behind conn. The ioctl runs
// through SyscallConn so a descriptor registered with the runtime poller stays
// in non-blocking mode.
func Resize(conn syscall.Conn, width, height uint32) error {
	return control(conn, func(fd int) error {
		return ResizeFd(fd, width, height)
	})
}

// Size returns the current window size of the terminal behind conn.
func Size(conn syscall.Conn) (cols, rows uint16, err error) {
	err = control(conn, func(fd int) error {
		ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
		if err != nil {
			return err
		}
		cols, rows = ws.Col, ws.Row
		return nil
	})
	return cols, rows, err
}

// SetControllingTerminalToStdin makes descriptor 0 the controlling terminal of
// the calling process. It must run in a fresh session leader, after
// CreateProcessGroup and before the target program is executed.
func SetControllingTerminalToStdin() error {
	return unix.IoctlSetInt(0, unix.TIOCSCTTY, 0)
}

// CreateProcessGroup starts a new session with the caller as its leader,
// detaching it from any inherited controlling terminal.
func CreateProcessGroup() error {
	_, err := unix.Setsid()
	return err
}

func control(conn syscall.Conn, fn func(fd int) error) error {
	rc, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	if err := rc.Control(func(fd uintptr) {
		opErr = fn(int(fd))
	}); err != nil {
		return err
	}
	return opErr
}
