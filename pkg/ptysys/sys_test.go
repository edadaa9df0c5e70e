//go:build linux || darwin

package ptysys

import (
	"math"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func openPair(t *testing.T) (*os.File, *os.File) {
	t.Helper()

	master, err := OpenMaster()
	require.NoError(t, err)
	require.NoError(t, Grant(master))
	require.NoError(t, Unlock(master))

	path, err := ChildDevicePath(master)
	require.NoError(t, err)
	child, err := OpenChild(path)
	require.NoError(t, err)

	m := os.NewFile(uintptr(master), ptmxPath)
	c := os.NewFile(uintptr(child), path)
	t.Cleanup(func() {
		m.Close()
		c.Close()
	})
	return m, c
}

func TestClampDimension(t *testing.T) {
	cases := map[uint32]uint16{
		0:                  0,
		80:                 80,
		math.MaxUint16:     math.MaxUint16,
		math.MaxUint16 + 1: math.MaxUint16,
		math.MaxUint32:     math.MaxUint16,
	}
	for in, want := range cases {
		assert.Equal(t, want, ClampDimension(in), "clamp %d", in)
	}
}

func TestOpenMasterFlags(t *testing.T) {
	master, err := OpenMaster()
	require.NoError(t, err)
	defer unix.Close(master)

	fl, err := unix.FcntlInt(uintptr(master), unix.F_GETFL, 0)
	require.NoError(t, err)
	assert.NotZero(t, fl&unix.O_NONBLOCK, "master must be non-blocking")

	fdfl, err := unix.FcntlInt(uintptr(master), unix.F_GETFD, 0)
	require.NoError(t, err)
	assert.NotZero(t, fdfl&unix.FD_CLOEXEC, "master must be close-on-exec")
}

func TestChildDevicePath(t *testing.T) {
	_, child := openPair(t)
	assert.True(t, strings.HasPrefix(child.Name(), "/dev/"), child.Name())
}

func TestChildDevicePathNotAPty(t *testing.T) {
	f, err := os.Open(os.DevNull)
	require.NoError(t, err)
	defer f.Close()

	_, err = ChildDevicePath(int(f.Fd()))
	assert.Error(t, err)
}

func TestResizeClamps(t *testing.T) {
	master, _ := openPair(t)

	require.NoError(t, Resize(master, math.MaxUint32, 40))
	cols, rows, err := Size(master)
	require.NoError(t, err)
	assert.Equal(t, uint16(math.MaxUint16), cols)
	assert.Equal(t, uint16(40), rows)

	require.NoError(t, Resize(master, 132, math.MaxUint16+10))
	cols, rows, err = Size(master)
	require.NoError(t, err)
	assert.Equal(t, uint16(132), cols)
	assert.Equal(t, uint16(math.MaxUint16), rows)
}

func TestResizeClosed(t *testing.T) {
	master, _ := openPair(t)
	master.Close()

	assert.Error(t, Resize(master, 80, 24))
	assert.Error(t, Resize(master, math.MaxUint32, math.MaxUint32))
}
