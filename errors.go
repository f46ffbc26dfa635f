// Package procsched sentinel errors for the three failure bands described
// in the design: recoverable-at-call-site errors are returned as one of
// the sentinels below (optionally wrapped with context via fmt.Errorf's
// %w), propagation to user space is the Killed flag (see proc.go), and
// fatal contract violations panic rather than return an error.
package procsched

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFreeSlot is returned by allocProc when every process-table slot
	// is in use (the NPROC+1th fork).
	ErrNoFreeSlot = errors.New("procsched: no free process slot")

	// ErrAllocFailed is returned when a memory collaborator call
	// (page directory, kernel stack) fails during allocProc or Fork.
	ErrAllocFailed = errors.New("procsched: allocation failed")

	// ErrNoChildren is returned by Wait/WaitX when the caller has no
	// children to reap and was not killed.
	ErrNoChildren = errors.New("procsched: no children")

	// ErrBadPriority is returned by SetPriority when the requested
	// priority is outside [0,100].
	ErrBadPriority = errors.New("procsched: priority out of range")

	// ErrNotFound is returned by Kill/SetPriority when no process in the
	// table has the requested pid.
	ErrNotFound = errors.New("procsched: process not found")

	// ErrProcessKilled is returned by Wait/WaitX when the calling process
	// has been killed while waiting.
	ErrProcessKilled = errors.New("procsched: process killed")

	// ErrVMCollaborator wraps failures returned by a MemoryCollaborator.
	ErrVMCollaborator = errors.New("procsched: vm collaborator error")
)

// WrapError attaches a message to cause, preserving errors.Is/errors.As
// matching against cause.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
