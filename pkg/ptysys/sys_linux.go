package ptysys

import (
	"strconv"

	"golang.org/x/sys/unix"
)

const ptsDir = "/dev/pts/"

// Grant checks that fd is a pseudo terminal master. devpts already grants the
// child device to the opener, so there is nothing to change.
func Grant(fd int) error {
	_, err := unix.IoctlGetUint32(fd, unix.TIOCGPTN)
	return err
}

// Unlock removes the lock that prevents the child device from being opened.
func Unlock(fd int) error {
	return unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0)
}

// ChildDevicePath returns the path of the child device paired with the master
// fd. The pty number is written into caller owned memory, so concurrent calls
// need no coordination.
func ChildDevicePath(fd int) (string, error) {
	n, err := unix.IoctlGetUint32(fd, unix.TIOCGPTN)
	if err != nil {
		return "", err
	}
	return ptsDir + strconv.FormatUint(uint64(n), 10), nil
}
