// Package procsched implements the core of a teaching kernel's process
// subsystem: a fixed-slot process table, the six-state process lifecycle
// (UNUSED, EMBRYO, SLEEPING, RUNNABLE, RUNNING, ZOMBIE), a pluggable
// scheduler dispatch loop (round-robin, FCFS, priority-based, or a
// multi-level feedback queue with aging), and the sleep/wakeup rendezvous
// that ties blocking syscalls to it.
//
// # Architecture
//
// A [Kernel] owns the process table, one [CPU] record per configured
// core, and the MLFQ ring queues. Lifecycle operations exposed as methods
// on [*Task] ([Task.Fork], [Task.Exit], [Task.Wait], [Task.WaitX],
// [Task.SetPriority], [Task.GrowProc]) or on [*Kernel] ([Kernel.Kill],
// [Kernel.SetPriority], [Kernel.PS]) mutate process state under a single
// mutex, exactly as xv6's ptable.lock does. [Kernel.Run] starts one
// dispatch-loop goroutine per CPU; each loop selects a RUNNABLE process
// under the configured [Policy] and hands it control via a resume channel.
//
// Go has no raw stack-switching primitive and no hardware interrupts, so
// two mechanisms are adapted rather than transliterated literally:
//
//   - swtch/context: a process's own goroutine blocks on a channel to
//     "return to the scheduler"; the dispatcher sends a token down that
//     channel to "switch to" the process. sched (switch.go) releases and
//     reacquires the table mutex symmetrically around the handoff, making
//     the lock-ownership contract explicit instead of leaving it as a
//     comment.
//   - mycpu()/myproc(): Go has no thread-locals, so the current [CPU] and
//     [Proc] are explicit parameters threaded through calls (a [Task]
//     carries both) rather than derived from a register.
//
// # Thread safety
//
//   - Every [Proc] state, blocking, accounting and policy field is read
//     or written only while holding the [Kernel]'s table mutex, with the
//     single documented exception of [Kernel.ProcDump] (best-effort,
//     lock-free, for debugging). A process's own goroutine also reads
//     its Sz and PageDir, and clears its OFile and Cwd on exit, without
//     the mutex.
//   - A [CPU]'s internal nesting-depth/interrupt-enabled fields are
//     touched by that CPU's dispatch loop and by the goroutine currently
//     dispatched onto it, under the CPU's own mutex.
//
// # Usage
//
//	k, err := procsched.New(procsched.WithPolicy(procsched.PolicyMLFQ))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	go k.Run(ctx)
//
//	k.UserInit(initImage, func(t *procsched.Task) {
//	    for {
//	        t.Yield()
//	    }
//	})
//
// VM, the trap frame, the file system, and the console are external
// collaborators; this package depends only on the small interfaces in
// collaborators.go that it needs from them.
package procsched
