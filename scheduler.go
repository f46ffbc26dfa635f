package procsched

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// idleBackoff bounds how long a dispatch loop sleeps when it finds no
// RUNNABLE process, so an empty Kernel doesn't spin a CPU core.
const idleBackoff = time.Millisecond

// pushMLFQ pushes p onto queue qi, recording p's current accumulated
// wait ticks as the baseline ageProcessesLocked measures elapsed wait
// against. Overflow (spec §9 open question) is preserved as a silent
// drop from the caller's point of view — push still returns — but is
// now observable: counted and logged at Debug.
func (k *Kernel) pushMLFQ(qi int, p *Proc) {
	p.CurQueue = qi
	p.QueueTicks[qi] = p.WTime
	if !k.queues[qi].Push(p) {
		k.queueOverflowDrops++
		logDebug(k.cfg.logger, "mlfq", "queue overflow, process dropped from all queues", map[string]any{
			"pid": p.Pid, "queue": qi, "drops_total": k.queueOverflowDrops,
		})
	}
}

// selectVictim is spec.md §4.5 step 3: choose one RUNNABLE process per
// the active policy. The caller must hold k.mu.
func (k *Kernel) selectVictim() *Proc {
	switch k.cfg.policy {
	case PolicyRR:
		for _, p := range k.procs {
			if p.state == StateRunnable {
				return p
			}
		}
		return nil

	case PolicyFCFS:
		var best *Proc
		for _, p := range k.procs {
			if p.state == StateRunnable && (best == nil || p.CTime < best.CTime) {
				best = p
			}
		}
		return best

	case PolicyPBS:
		var best *Proc
		for _, p := range k.procs {
			if p.state == StateRunnable && (best == nil || p.Priority < best.Priority) {
				best = p
			}
		}
		return best

	case PolicyMLFQ:
		for qi := 1; qi < k.cfg.mlfqSize; qi++ {
			k.ageProcessesLocked(qi)
		}
		for qi := 0; qi < k.cfg.mlfqSize; qi++ {
			for {
				p, ok := k.queues[qi].Pop()
				if !ok {
					break
				}
				if p.state != StateRunnable {
					// Abandon and retry (spec §4.5 step 3): an entry
					// that is no longer RUNNABLE is dropped and the
					// next one is popped.
					continue
				}
				return p
			}
		}
		return nil

	default:
		return nil
	}
}

// dispatchLoop is spec.md §4.5's scheduler(): one per CPU, running until
// ctx is cancelled. Each iteration acquires the table mutex, selects one
// victim, dispatches it, waits for it to hand control back, then does
// the MLFQ re-enqueue bookkeeping before releasing the mutex again.
//
// The mutex is released for the duration the victim actually runs
// (between sending the resume token and receiving done) rather than
// held across it: Go goroutines calling back into Task methods need to
// acquire it themselves, and there is no hardware stack-switch moment
// to hand ownership across silently. sched (switch.go) releases and
// reacquires it symmetrically on the process side, so the net effect —
// every state read/write happens under the mutex, and the mutex is
// "busy" for the conceptual duration of the quantum — matches spec.md
// §3.4 and §4.5 even though the literal hold-across-the-switch
// mechanic does not carry over.
func (k *Kernel) dispatchLoop(ctx context.Context, cpu *CPU) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		k.mu.Lock()
		p := k.selectVictim()
		if p == nil {
			k.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(idleBackoff):
			}
			continue
		}

		p.NSched++
		p.TimeSlices++
		cpu.Proc = p
		k.cfg.mem.SwitchUVM(p)
		p.state = StateRunning
		cpu.PushCLI(false) // sched()'s precondition requires exactly one nesting
		logDebug(k.cfg.logger, "scheduler", "dispatch", map[string]any{"pid": p.Pid, "cpu": cpu.APICID})
		k.mu.Unlock()

		p.sw.resume <- &dispatchToken{cpu: cpu}
		<-p.sw.done

		cpu.PopCLI()
		k.mu.Lock()
		k.cfg.mem.SwitchKVM()
		cpu.Proc = nil

		if p.state == StateRunnable && k.cfg.policy == PolicyMLFQ {
			if p.Punish {
				p.Punish = false
				p.TimeSlices = 0
				next := p.CurQueue + 1
				if next > k.cfg.mlfqSize-1 {
					next = k.cfg.mlfqSize - 1
				}
				k.pushMLFQ(next, p)
			} else {
				p.TimeSlices = 0
				k.pushMLFQ(p.CurQueue, p)
			}
		}
		k.mu.Unlock()
	}
}

// Run starts one dispatch loop goroutine per configured CPU and blocks
// until all of them have returned. dispatchLoop returns nil once ctx is
// cancelled and never returns a non-nil error; a fatal invariant
// violation panics (spec §7.3) and is not converted into an error, so it
// crashes the process, matching the original's panic() terminating the
// kernel.
func (k *Kernel) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, cpu := range k.cpus {
		cpu := cpu
		g.Go(func() error {
			return k.dispatchLoop(ctx, cpu)
		})
	}
	return g.Wait()
}
