package pty

import (
	"errors"
	"fmt"
)

// ErrPairConsumed is returned when a PtyPair is used after Spawn or Close.
var ErrPairConsumed = errors.New("pty pair already consumed")

// AllocateStep identifies the allocation step that failed.
type AllocateStep int

const (
	AllocateOpen AllocateStep = iota
	AllocateGrant
	AllocateUnlock
	AllocateChildName
	AllocateOpenChild
)

func (s AllocateStep) String() string {
	switch s {
	case AllocateOpen:
		return "open"
	case AllocateGrant:
		return "grant"
	case AllocateUnlock:
		return "unlock"
	case AllocateChildName:
		return "child-name"
	case AllocateOpenChild:
		return "open-child"
	}
	return fmt.Sprintf("AllocateStep(%d)", int(s))
}

// AllocateError is returned by Allocate.
type AllocateError struct {
	Step AllocateStep
	Err  error
}

func (e *AllocateError) Error() string {
	switch e.Step {
	case AllocateOpen:
		return fmt.Sprintf("failed to open new pseudo terminal: %s", e.Err)
	case AllocateGrant:
		return fmt.Sprintf("failed to grant permissions on child terminal device: %s", e.Err)
	case AllocateUnlock:
		return fmt.Sprintf("failed to unlock child terminal device: %s", e.Err)
	case AllocateChildName:
		return fmt.Sprintf("failed to get name of child terminal device: %s", e.Err)
	case AllocateOpenChild:
		return fmt.Sprintf("failed to open child terminal device: %s", e.Err)
	}
	return fmt.Sprintf("failed to allocate pseudo terminal (%s): %s", e.Step, e.Err)
}

func (e *AllocateError) Unwrap() error { return e.Err }

// SpawnStep identifies the spawn step that failed. The values travel over the
// exec helper status pipe as a single byte.
type SpawnStep uint8

const (
	SpawnDuplicateStdio SpawnStep = iota + 1
	SpawnCreateSession
	SpawnSetControllingTerminal
	SpawnProcess
	SpawnRegister
)

func (s SpawnStep) String() string {
	switch s {
	case SpawnDuplicateStdio:
		return "duplicate-stdio"
	case SpawnCreateSession:
		return "create-session"
	case SpawnSetControllingTerminal:
		return "set-controlling-terminal"
	case SpawnProcess:
		return "spawn"
	case SpawnRegister:
		return "register"
	}
	return fmt.Sprintf("SpawnStep(%d)", int(s))
}

func (s SpawnStep) valid() bool {
	return s >= SpawnDuplicateStdio && s <= SpawnRegister
}

// SpawnError is returned by PtyPair.Spawn. Without WithExecHelper the Step of
// a failure inside the forked child is inferred from the errno alone and is a
// best guess; with the helper it is the step that actually failed.
type SpawnError struct {
	Step SpawnStep
	Err  error
}

func (e *SpawnError) Error() string {
	switch e.Step {
	case SpawnDuplicateStdio:
		return fmt.Sprintf("failed to duplicate file descriptor for standard I/O stream: %s", e.Err)
	case SpawnCreateSession:
		return fmt.Sprintf("failed to create new process group: %s", e.Err)
	case SpawnSetControllingTerminal:
		return fmt.Sprintf("failed to set controlling terminal for new process group: %s", e.Err)
	case SpawnProcess:
		return fmt.Sprintf("failed to spawn child process: %s", e.Err)
	case SpawnRegister:
		return fmt.Sprintf("failed to register pseudo terminal file descriptor with the runtime poller: %s", e.Err)
	}
	return fmt.Sprintf("failed to spawn (%s): %s", e.Step, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ResizeError is returned by PseudoTerminal.Resize and PtyPair.Resize.
type ResizeError struct {
	Err error
}

func (e *ResizeError) Error() string {
	return fmt.Sprintf("failed to resize terminal device: %s", e.Err)
}

func (e *ResizeError) Unwrap() error { return e.Err }
