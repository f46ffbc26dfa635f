package procsched

import "sync"

// Kernel is the process subsystem described by spec.md §2-§4: a fixed
// process table, a set of per-CPU dispatch loops, and (under MLFQ) the
// feedback queues they share — all guarded by one mutex, per §3.4 and
// §5's "global table + coarse mutex" design note.
type Kernel struct {
	cfg *config

	mu                 sync.Mutex
	procs              []*Proc
	nextPid            int
	initProc           *Proc
	queues             []*ringQueue[*Proc] // len == cfg.mlfqSize, only populated under PolicyMLFQ
	ticks              uint64
	queueOverflowDrops uint64

	cpus []*CPU
}

// New builds a Kernel with NPROC pre-allocated (but UNUSED) process
// slots, NCPU per-CPU records, and — under PolicyMLFQ — MLFQSIZE ring
// queues allocated inline before anything can read them, which is how
// this port resolves spec §9's "queue initialization dereferences
// uninitialized pointers" bug: there is no code path here that can
// observe a queue before it exists.
func New(opts ...Option) (*Kernel, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}

	k := &Kernel{cfg: cfg}

	k.procs = make([]*Proc, cfg.nproc)
	for i := range k.procs {
		k.procs[i] = &Proc{state: StateUnused}
	}

	if cfg.policy == PolicyMLFQ {
		k.queues = make([]*ringQueue[*Proc], cfg.mlfqSize)
		for i := range k.queues {
			k.queues[i] = newRingQueue[*Proc](cfg.nproc)
		}
	}

	k.cpus = make([]*CPU, cfg.ncpu)
	for i := range k.cpus {
		k.cpus[i] = &CPU{APICID: i}
	}

	logDebug(cfg.logger, "lifecycle", "kernel constructed", map[string]any{
		"nproc": cfg.nproc, "ncpu": cfg.ncpu, "policy": cfg.policy.String(),
	})
	return k, nil
}

// CPUs returns the Kernel's per-CPU records, e.g. for MyCPU lookups.
func (k *Kernel) CPUs() []*CPU { return k.cpus }

// Policy returns the scheduling discipline this Kernel was constructed
// with. It never changes (Non-goal: no live policy switching).
func (k *Kernel) Policy() Policy { return k.cfg.policy }

// NPROC returns the configured maximum number of concurrent processes.
func (k *Kernel) NPROC() int { return k.cfg.nproc }

// QueueOverflowDrops reports how many MLFQ pushes have been silently
// dropped due to a full queue (spec §9 open question), made observable
// rather than truly silent.
func (k *Kernel) QueueOverflowDrops() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.queueOverflowDrops
}

// Ticks returns the number of UpdateTiming calls processed so far.
func (k *Kernel) Ticks() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ticks
}
