package procsched

import "fmt"

// Task is the handle a Workload uses to talk back to the kernel — the
// generalization of the original's implicit myproc()/mycpu() pair into
// an explicit parameter, per SPEC_FULL.md §0. A Task is valid only for
// the duration of one Workload invocation and must not be retained or
// used from any goroutine other than the one it was handed to.
type Task struct {
	k   *Kernel
	p   *Proc
	cpu *CPU
}

// Proc returns the process this Task is driving.
func (t *Task) Proc() *Proc { return t.p }

// CPU returns the CPU this Task's process is currently dispatched on.
// It changes across a Yield/Sleep if the kernel has more than one CPU.
func (t *Task) CPU() *CPU { return t.cpu }

// Killed reports the process's killed flag (spec §7, band 2: the trap
// layer, external to this package, is responsible for actually acting
// on it at the next user-space boundary; a Workload standing in for
// that layer should check this and call Exit when it observes true).
func (t *Task) Killed() bool {
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	return t.p.Killed
}

// sched is the direct port of spec.md §4.6's sched(): hand control back
// to the CPU that dispatched p and block until redispatched. The caller
// must hold k.mu; sched releases it for the duration of the handoff (the
// dispatcher needs it to do its own post-quantum bookkeeping, spec.md
// §4.5 step 4-5, while this goroutine is blocked) and reacquires it
// before returning, so code after a sched() call always resumes holding
// the table mutex again, exactly as the original guarantees.
func (k *Kernel) sched(p *Proc) *dispatchToken {
	k.mu.Unlock()
	p.sw.done <- struct{}{}
	tok := <-p.sw.resume
	k.mu.Lock()
	return tok
}

// schedTerminal is sched's exit()-only sibling: it hands control back to
// the dispatcher but never waits for a resume, since a ZOMBIE is never
// redispatched. The original's sched() call inside exit() "never
// returns" because the process's kernel stack is simply never swtched
// into again; a Go goroutine has no stack to idle forever in, so this is
// the point where the goroutine itself winds down (see Task.Exit). It
// releases k.mu, same as sched, but does not reacquire it — the caller
// (exit) must not touch k.mu again afterward.
func (k *Kernel) schedTerminal(p *Proc) {
	k.mu.Unlock()
	p.sw.done <- struct{}{}
}

// assertSchedPreconditions panics if p is RUNNING, if no CPU is bound to
// the task, or if that CPU's PushCLI nesting depth is not exactly one.
// It does not check that k.mu is held, that interrupts are disabled, or
// which goroutine is calling. Only Yield calls it; Sleep and Wait enter
// sched without it.
func (t *Task) assertSchedPreconditions() {
	if t.p.state == StateRunning {
		panic("procsched: sched running")
	}
	if t.cpu == nil {
		panic("procsched: sched: no cpu bound to task")
	}
	if n := t.cpu.nestingDepth(); n != 1 {
		panic(fmt.Sprintf("procsched: sched locks: ncli == %d", n))
	}
}

// Yield is spec.md §4.6's yield(): mark the process RUNNABLE and hand
// control back to the scheduler, resuming here once redispatched.
func (t *Task) Yield() {
	k := t.k
	k.mu.Lock()
	t.assertSchedPreconditions()
	t.p.state = StateRunnable
	logDebug(k.cfg.logger, "scheduler", "yield", map[string]any{"pid": t.p.Pid})
	tok := k.sched(t.p)
	t.cpu = tok.cpu
	k.mu.Unlock()
}

// runProc is the top-level function of a process's goroutine: the
// Go-native stand-in for allocproc laying down a forkret return address
// on a fresh kernel stack. It blocks for its first dispatch (the
// dispatcher has already released k.mu before sending it, the same way
// it does for every dispatch — see scheduler.go — so there is no
// separate forkret-only unlock to perform here), hands control to the
// trap layer's TrapReturn, then runs the Workload until it returns or
// calls Task.Exit.
func (k *Kernel) runProc(p *Proc) {
	tok := <-p.sw.resume
	t := &Task{k: k, p: p, cpu: tok.cpu}

	k.cfg.trap.TrapReturn(p)

	func() {
		defer func() {
			if r := recover(); r != nil {
				logError(k.cfg.logger, "lifecycle", "workload panic, forcing exit", nil)
			}
		}()
		if p.workload != nil {
			p.workload(t)
		}
	}()
	// A Workload that returns (or panics) without calling Task.Exit is
	// exited on its behalf, exactly as a user program falling off
	// main() still goes through exit(). If the Workload already called
	// Task.Exit, that call ended the goroutine via runtime.Goexit and
	// this line is never reached.
	k.exit(p)
}
