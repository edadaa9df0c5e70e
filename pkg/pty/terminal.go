//go:build linux || darwin

package pty

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/ferama/ptyrun/pkg/ptysys"
	"golang.org/x/sys/unix"
)

const masterName = "/dev/ptmx"

// aLongTimeAgo is a deadline in the past, used to wake pending operations.
var aLongTimeAgo = time.Unix(1, 0)

// PseudoTerminal is the parent side of a pseudo terminal with a running child.
//
// All methods are safe to call from several goroutines through the same
// pointer. A read and a write never wait on each other. Concurrent readers are
// serialized by the runtime but share one byte stream, so the intended usage is
// a single reader.
type PseudoTerminal struct {
	file      *os.File
	rc        syscall.RawConn
	childPath string

	// deadlines set by the caller, restored after a cancelled context op
	deadlineMu    sync.Mutex
	readDeadline  time.Time
	writeDeadline time.Time

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

var (
	_ io.ReadWriteCloser = (*PseudoTerminal)(nil)
	_ syscall.Conn       = (*PseudoTerminal)(nil)
)

// newPseudoTerminal takes ownership of the non-blocking master descriptor and
// registers it with the runtime poller. fd is closed on failure.
func newPseudoTerminal(fd int, childPath string) (*PseudoTerminal, error) {
	f := os.NewFile(uintptr(fd), masterName)
	if f == nil {
		unix.Close(fd)
		return nil, os.ErrInvalid
	}
	// os.NewFile silently falls back to blocking I/O when the poller refuses
	// the descriptor; deadlines are only supported on registered files.
	if err := f.SetDeadline(time.Time{}); err != nil {
		f.Close()
		return nil, err
	}
	rc, err := f.SyscallConn()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &PseudoTerminal{
		file:      f,
		rc:        rc,
		childPath: childPath,
		closed:    make(chan struct{}),
	}, nil
}

// Name returns the path of the child device.
func (t *PseudoTerminal) Name() string {
	return t.childPath
}

// SyscallConn gives raw access to the master descriptor.
func (t *PseudoTerminal) SyscallConn() (syscall.RawConn, error) {
	return t.rc, nil
}

// Read waits until the master is readable and reads into p. A would-block
// result parks the goroutine again until the next readiness notification.
// io.EOF is returned once every child side descriptor is closed.
func (t *PseudoTerminal) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	var (
		n     int
		opErr error
	)
	err := t.rc.Read(func(fd uintptr) bool {
		for {
			n, opErr = unix.Read(int(fd), p)
			if opErr != unix.EINTR {
				break
			}
		}
		return opErr != unix.EAGAIN
	})
	if err != nil {
		return 0, t.wrapErr("read", err)
	}
	switch {
	case opErr == unix.EIO:
		// Linux reports a hung up terminal as EIO
		return 0, io.EOF
	case opErr != nil:
		return 0, t.wrapErr("read", opErr)
	case n == 0:
		return 0, io.EOF
	}
	return n, nil
}

// Write waits until the master is writable and writes all of p. Bytes from a
// single Write reach the child in order.
func (t *PseudoTerminal) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	var (
		written int
		opErr   error
	)
	err := t.rc.Write(func(fd uintptr) bool {
		for written < len(p) {
			n, err := unix.Write(int(fd), p[written:])
			if n > 0 {
				written += n
			}
			switch {
			case err == unix.EINTR:
				continue
			case err == unix.EAGAIN:
				return false
			case err != nil:
				opErr = err
				return true
			case n == 0:
				opErr = io.ErrUnexpectedEOF
				return true
			}
		}
		return true
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		return written, t.wrapErr("write", err)
	}
	return written, nil
}

// Flush is a no-op: the master has no user space buffer.
func (t *PseudoTerminal) Flush() error {
	return nil
}

// CloseWrite is a no-op: a terminal has no half close.
func (t *PseudoTerminal) CloseWrite() error {
	return nil
}

// ReadContext is Read with cancellation. When ctx is done the pending wait is
// abandoned and ctx.Err() returned; the handle stays usable and the read
// deadline set with SetReadDeadline is put back.
func (t *PseudoTerminal) ReadContext(ctx context.Context, p []byte) (int, error) {
	restore := func() error {
		t.deadlineMu.Lock()
		defer t.deadlineMu.Unlock()
		return t.file.SetReadDeadline(t.readDeadline)
	}
	return withContext(ctx, t.file.SetReadDeadline, restore, func() (int, error) {
		return t.Read(p)
	})
}

// WriteContext is Write with cancellation. Bytes written before cancellation
// are reported in n. The write deadline set with SetWriteDeadline is put back.
func (t *PseudoTerminal) WriteContext(ctx context.Context, p []byte) (int, error) {
	restore := func() error {
		t.deadlineMu.Lock()
		defer t.deadlineMu.Unlock()
		return t.file.SetWriteDeadline(t.writeDeadline)
	}
	return withContext(ctx, t.file.SetWriteDeadline, restore, func() (int, error) {
		return t.Write(p)
	})
}

func withContext(ctx context.Context, setDeadline func(time.Time) error, restore func() error, op func() (int, error)) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		setDeadline(aLongTimeAgo)
		close(fired)
	})

	n, err := op()
	if !stop() {
		<-fired
		restore()
		if errors.Is(err, os.ErrDeadlineExceeded) {
			err = ctx.Err()
		}
	}
	return n, err
}

// SetDeadline sets the read and write deadlines.
func (t *PseudoTerminal) SetDeadline(d time.Time) error {
	t.deadlineMu.Lock()
	defer t.deadlineMu.Unlock()

	t.readDeadline, t.writeDeadline = d, d
	return t.file.SetDeadline(d)
}

// SetReadDeadline sets the deadline for pending and future reads.
func (t *PseudoTerminal) SetReadDeadline(d time.Time) error {
	t.deadlineMu.Lock()
	defer t.deadlineMu.Unlock()

	t.readDeadline = d
	return t.file.SetReadDeadline(d)
}

// SetWriteDeadline sets the deadline for pending and future writes.
func (t *PseudoTerminal) SetWriteDeadline(d time.Time) error {
	t.deadlineMu.Lock()
	defer t.deadlineMu.Unlock()

	t.writeDeadline = d
	return t.file.SetWriteDeadline(d)
}

// Resize changes the window size. Dimensions above 65535 are clamped. It does
// not wait for pending reads or writes.
func (t *PseudoTerminal) Resize(width, height uint32) error {
	if err := ptysys.Resize(t.file, width, height); err != nil {
		return &ResizeError{Err: t.wrapErr("resize", err)}
	}
	return nil
}

// Size returns the current window size.
func (t *PseudoTerminal) Size() (cols, rows uint16, err error) {
	cols, rows, err = ptysys.Size(t.file)
	if err != nil {
		return 0, 0, t.wrapErr("size", err)
	}
	return cols, rows, nil
}

// Close releases the master descriptor. Pending reads and writes return an
// error wrapping os.ErrClosed. Calling Close again is a no-op.
func (t *PseudoTerminal) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.closeErr = t.file.Close()
	})
	return t.closeErr
}

func (t *PseudoTerminal) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

func (t *PseudoTerminal) wrapErr(op string, err error) error {
	if t.isClosed() {
		err = os.ErrClosed
	}
	return &os.PathError{Op: op, Path: masterName, Err: err}
}
