// Package ptysys exposes the operating system primitives needed to allocate
// pseudo terminals and to attach them to a child process as its controlling
// terminal. Linux and Darwin are supported; the two platforms only differ in
// how the master is granted, unlocked and mapped back to its child device.
package ptysys
