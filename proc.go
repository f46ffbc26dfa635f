package procsched

import (
	"reflect"
	"runtime"
	"sync/atomic"
)

// Channel is an opaque, value-typed sleep/wakeup rendezvous key (spec §9,
// "Opaque channel keys"). Equality is by value, never by the referent it
// was derived from — exactly like comparing two raw addresses in the
// original, without ever dereferencing them.
type Channel struct {
	id uintptr
}

var anonChannelCounter uintptr

// ChanOf derives a Channel identifying v. If v is a pointer, map, chan,
// func or slice, its identity (address) is used, so two calls with the
// same underlying object produce the same Channel. Anything else gets a
// fresh, never-repeating id.
func ChanOf(v any) Channel {
	if v == nil {
		return Channel{}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if !rv.IsNil() {
			return Channel{id: rv.Pointer()}
		}
	case reflect.Slice:
		if rv.Len() > 0 || rv.Cap() > 0 {
			return Channel{id: rv.Pointer()}
		}
	}
	return NewChannel()
}

// NewChannel returns a fresh Channel with no relation to any Go value,
// useful when a caller wants a rendezvous key without an underlying
// object (e.g. "wake whichever process is waiting for pid 7").
func NewChannel() Channel {
	id := atomic.AddUintptr(&anonChannelCounter, 1)
	return Channel{id: ^uintptr(0) - id} // disjoint range from real pointers in practice
}

// IsZero reports whether c is the zero Channel — never a valid sleep key.
func (c Channel) IsZero() bool { return c.id == 0 }

// dispatchToken is the "thin typed handle passed through the switch" that
// design note §9 calls for. The dispatcher sends one down a process's
// resume channel to hand it control of its CPU; the process signals on
// its done channel to hand control back. See switch.go.
type dispatchToken struct {
	cpu *CPU
}

// switchContext is the Go-goroutine stand-in for the original's struct
// context: the handoff point a process's own goroutine blocks on between
// quanta. allocProc allocates a fresh one for every new process, and it
// is dropped when the slot is reaped.
type switchContext struct {
	resume chan *dispatchToken
	done   chan struct{}
}

func newSwitchContext() *switchContext {
	return &switchContext{
		resume: make(chan *dispatchToken),
		done:   make(chan struct{}),
	}
}

// Workload is the function a process's goroutine runs. It receives a Task
// handle bound to this process and is expected to call Task methods
// (Yield, Sleep, Exit, ...) at points where the original would trap back
// into the kernel. A Workload that returns without calling Task.Exit is
// exited on its behalf, as if it had called Task.Exit.
type Workload func(t *Task)

// Proc is one process-table slot (spec §3.1). State, blocking, accounting
// and policy fields are read or written only while the owning Kernel's
// table mutex is held, except the best-effort debug fields ProcDump reads
// without it. The process's own goroutine also reads Sz and PageDir
// (Fork, GrowProc) and clears OFile and Cwd (exit) without the mutex.
type Proc struct {
	// identity
	Pid    int
	Name   string
	Parent *Proc // non-owning back-reference, never a second owner

	// state
	state ProcState

	// memory (opaque to this package; owned by a MemoryCollaborator)
	Sz      uint64
	PageDir PageDirHandle
	KStack  KStackHandle
	TF      *TrapFrame

	sw *switchContext

	// blocking
	Chan   Channel
	Killed bool

	// files
	OFile []FileHandle
	Cwd   InodeHandle

	// accounting
	CTime, ETime, RTime, WTime, IOTime uint64
	NSched                             uint64

	// policy
	Priority   int
	CurQueue   int
	TimeSlices int
	Punish     bool
	QueueTicks []uint64 // WTime at the moment of the last push onto queue i; aging measures wait against it

	workload Workload

	// sleepFrames is captured by Sleep for ProcDump's "up to 10 caller
	// PCs" debug aid — the nearest idiomatic stand-in for walking saved
	// frame pointers, since Go processes have no such frames.
	sleepFrames []uintptr
}

// TrapFrame is an opaque placeholder for the trap frame the original
// lays out at the top of a process's kernel stack. The trap layer (§1,
// explicitly out of scope) is the only collaborator that would ever
// populate it; this package only allocates the pointer.
type TrapFrame struct {
	_ [0]byte
}

// State returns the process's current lifecycle state. Callers outside
// this package should treat it as a read of a moment-in-time snapshot —
// it is only authoritative while the Kernel's table mutex is held.
func (p *Proc) State() ProcState { return p.state }

// captureSleepFrames records up to 10 caller PCs, mirroring procdump's
// "getcallerpcs(...); for(i=0;i<10 ...)" debug walk.
func (p *Proc) captureSleepFrames() {
	pc := make([]uintptr, 10)
	n := runtime.Callers(3, pc)
	p.sleepFrames = pc[:n]
}
