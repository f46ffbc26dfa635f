package procsched

// ProcState is one of the six legal states of a process slot.
//
// State machine (spec §3.1):
//
//	UNUSED    -> (allocProc)        EMBRYO
//	EMBRYO    -> (fork/userinit)    RUNNABLE
//	EMBRYO    -> (abandonProc)      UNUSED
//	RUNNABLE  -> (dispatch)         RUNNING
//	RUNNING   -> (yield/preempt)    RUNNABLE
//	RUNNING   -> (sleep)            SLEEPING
//	SLEEPING  -> (wakeup)           RUNNABLE
//	RUNNING   -> (exit)             ZOMBIE
//	ZOMBIE    -> (reaped by wait)   UNUSED
//
// No other transition is legal; observing one is a bug in this package,
// not in a collaborator.
type ProcState int32

const (
	// StateUnused marks a free process-table slot.
	StateUnused ProcState = iota
	// StateEmbryo marks a slot allocated by allocProc but not yet
	// RUNNABLE.
	StateEmbryo
	// StateSleeping marks a process blocked on a Channel. Chan is
	// guaranteed non-zero exactly while a process is in this state.
	StateSleeping
	// StateRunnable marks a process eligible for dispatch.
	StateRunnable
	// StateRunning marks the process currently executing on its CPU.
	StateRunning
	// StateZombie marks an exited process awaiting reap by its parent's
	// Wait/WaitX.
	StateZombie
)

// String returns the short debug name used by PS and ProcDump, matching
// the original's procdump state table.
func (s ProcState) String() string {
	switch s {
	case StateUnused:
		return "unused"
	case StateEmbryo:
		return "embryo"
	case StateSleeping:
		return "sleep"
	case StateRunnable:
		return "runnable"
	case StateRunning:
		return "running"
	case StateZombie:
		return "zombie"
	default:
		return "unknown"
	}
}

// legalTransitions enumerates the state machine above. It backs
// isLegalTransition; lifecycle operations do not consult it when they
// make a transition.
var legalTransitions = map[ProcState]map[ProcState]bool{
	StateUnused:   {StateEmbryo: true},
	StateEmbryo:   {StateRunnable: true, StateUnused: true},
	StateRunnable: {StateRunning: true},
	StateRunning:  {StateRunnable: true, StateSleeping: true, StateZombie: true},
	StateSleeping: {StateRunnable: true},
	StateZombie:   {StateUnused: true},
}

// isLegalTransition reports whether moving a process from `from` to `to`
// is one of the transitions spec.md §3.1 names.
func isLegalTransition(from, to ProcState) bool {
	if from == to {
		return true
	}
	return legalTransitions[from][to]
}
