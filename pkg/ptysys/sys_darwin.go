package ptysys

import (
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Darwin has no re-entrant ptsname. TIOCPTYGNAME fills a single static buffer,
// the same way libc does it, and ptsnameMu serializes its users.
var (
	ptsnameMu  sync.Mutex
	ptsnameBuf [128]byte
)

// Grant changes mode and owner of the child device paired with fd.
func Grant(fd int) error {
	return unix.IoctlSetInt(fd, unix.TIOCPTYGRANT, 0)
}

// Unlock removes the lock that prevents the child device from being opened.
func Unlock(fd int) error {
	return unix.IoctlSetInt(fd, unix.TIOCPTYUNLK, 0)
}

// ChildDevicePath returns the path of the child device paired with the master fd.
func ChildDevicePath(fd int) (string, error) {
	ptsnameMu.Lock()
	defer ptsnameMu.Unlock()
	return ptsname(fd)
}

// ptsname is not re-entrant: callers must hold ptsnameMu.
func ptsname(fd int) (string, error) {
	_, _, errno := syscall.Syscall(
		syscall.SYS_IOCTL,
		uintptr(fd),
		uintptr(unix.TIOCPTYGNAME),
		uintptr(unsafe.Pointer(&ptsnameBuf[0])),
	)
	if errno != 0 {
		return "", errno
	}
	return unix.ByteSliceToString(ptsnameBuf[:]), nil
}
