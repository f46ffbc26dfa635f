package procsched

import (
	"fmt"
	"runtime"
)

// allocProc is spec.md §4.4's allocproc: find an UNUSED slot, mark it
// EMBRYO and assign it a fresh pid under the table mutex, then allocate
// its kernel stack outside the lock (the collaborator call may block or
// fail) before reacquiring the mutex to fill in accounting defaults.
func (k *Kernel) allocProc() (*Proc, error) {
	k.mu.Lock()
	var p *Proc
	for _, cand := range k.procs {
		if cand.state == StateUnused {
			p = cand
			break
		}
	}
	if p == nil {
		k.mu.Unlock()
		return nil, ErrNoFreeSlot
	}
	p.state = StateEmbryo
	k.nextPid++
	p.Pid = k.nextPid
	k.mu.Unlock()

	kstack, err := k.cfg.mem.AllocKStack(k.cfg.kstackSize)
	if err != nil {
		k.mu.Lock()
		p.state = StateUnused
		p.Pid = 0
		k.mu.Unlock()
		return nil, WrapError("procsched: allocate kernel stack", ErrAllocFailed)
	}

	k.mu.Lock()
	if p.state != StateEmbryo {
		k.mu.Unlock()
		panic("procsched: allocproc: slot left EMBRYO state unexpectedly")
	}
	p.sw = newSwitchContext()
	p.KStack = kstack
	p.TF = &TrapFrame{}
	p.CTime = k.ticks
	p.ETime, p.RTime, p.WTime, p.IOTime, p.NSched = 0, 0, 0, 0, 0
	if p.Pid == 1 || p.Pid == 2 {
		p.Priority = 1
	} else {
		p.Priority = 60
	}
	p.CurQueue = 0
	p.TimeSlices = 0
	p.Punish = false
	p.QueueTicks = make([]uint64, k.cfg.mlfqSize)
	p.OFile = make([]FileHandle, k.cfg.nofile)
	p.Killed = false
	k.mu.Unlock()
	logDebug(k.cfg.logger, "lifecycle", "allocproc", map[string]any{"pid": p.Pid})
	return p, nil
}

// abandonProc unwinds a slot that failed to finish setup after
// allocProc succeeded — spec.md §4.4's "free the kernel stack and set
// state back to UNUSED".
func (k *Kernel) abandonProc(p *Proc) {
	k.mu.Lock()
	kstack := p.KStack
	p.state = StateUnused
	p.Pid = 0
	p.KStack = nil
	k.mu.Unlock()
	if kstack != nil {
		k.cfg.mem.FreeKStack(kstack)
	}
}

// startProcGoroutine launches the goroutine that will drive p through
// its entire lifetime, per SPEC_FULL.md §0's swtch/context translation.
func (k *Kernel) startProcGoroutine(p *Proc, workload Workload) {
	p.workload = workload
	go k.runProc(p)
}

// UserInit is spec.md §4.4's userinit: allocate the first process,
// build its page directory from image, install it RUNNABLE (queued on
// MLFQ level 0 when that policy is active), and start its goroutine
// running workload. Unlike every other process, init has no parent to
// wait() on it — its workload is expected to run for the Kernel's
// entire lifetime rather than call Task.Exit (exit treats k.initProc
// exiting as a fatal invariant violation, spec.md §4.4).
//
// The original prints its scheduler-policy banner only under MLFQ (spec
// §9 open question); this port unifies that into a single unconditional
// log line regardless of policy.
func (k *Kernel) UserInit(image []byte, workload Workload) (*Proc, error) {
	p, err := k.allocProc()
	if err != nil {
		return nil, err
	}
	pd, err := k.cfg.mem.SetupKVM()
	if err != nil {
		k.abandonProc(p)
		return nil, WrapError("procsched: userinit setup kvm", err)
	}
	if err := k.cfg.mem.InitUVM(pd, image); err != nil {
		k.cfg.mem.FreeVM(pd)
		k.abandonProc(p)
		return nil, WrapError("procsched: userinit init uvm", err)
	}
	cwd, err := k.cfg.fs.Namei("/")
	if err != nil {
		k.cfg.mem.FreeVM(pd)
		k.abandonProc(p)
		return nil, WrapError("procsched: userinit namei /", err)
	}

	k.mu.Lock()
	p.PageDir = pd
	p.Sz = uint64(len(image))
	p.Name = "init"
	p.Cwd = cwd
	p.state = StateRunnable
	if k.cfg.policy == PolicyMLFQ {
		k.pushMLFQ(0, p)
	}
	k.initProc = p
	k.mu.Unlock()

	logInfo(k.cfg.logger, "lifecycle", fmt.Sprintf("scheduler policy: %s", k.cfg.policy), nil)
	k.startProcGoroutine(p, workload)
	return p, nil
}

// Fork is spec.md §4.4's fork(): duplicate the calling process into a
// new RUNNABLE slot and start its goroutine running workload. It
// returns the child's pid to the parent; the child observes its own
// pid via Task.Proc().Pid rather than a zeroed return-value register,
// since there is no shared register file to zero in this simulation —
// Workload always already knows which process it is.
func (t *Task) Fork(name string, workload Workload) (int, error) {
	k := t.k
	child, err := k.allocProc()
	if err != nil {
		return -1, err
	}
	pd, err := k.cfg.mem.CopyUVM(t.p.PageDir, t.p.Sz)
	if err != nil {
		k.abandonProc(child)
		return -1, WrapError("procsched: fork copy uvm", ErrAllocFailed)
	}

	k.mu.Lock()
	child.PageDir = pd
	child.Sz = t.p.Sz
	child.Parent = t.p
	for i, f := range t.p.OFile {
		if f != nil {
			child.OFile[i] = k.cfg.fs.FileDup(f)
		}
	}
	child.Cwd = k.cfg.fs.IDup(t.p.Cwd)
	child.Name = name
	child.state = StateRunnable
	if k.cfg.policy == PolicyMLFQ {
		k.pushMLFQ(0, child)
	}
	childPid := child.Pid
	k.mu.Unlock()

	logInfo(k.cfg.logger, "lifecycle", "fork", map[string]any{"parent": t.p.Pid, "child": childPid})
	k.startProcGoroutine(child, workload)
	return childPid, nil
}

// Exit is spec.md §4.4's exit(): close open files, release cwd, wake
// anyone sleeping on the parent, reparent children to init (waking init
// if one is already a zombie), mark ZOMBIE, record etime, and hand
// control back to the scheduler one final time. It never returns to its
// caller: the underlying goroutine terminates via runtime.Goexit.
func (t *Task) Exit() {
	t.k.exit(t.p)
	runtime.Goexit()
}

func (k *Kernel) exit(p *Proc) {
	if p == k.initProc {
		panic("procsched: init exiting")
	}

	for i, f := range p.OFile {
		if f != nil {
			k.cfg.fs.FileClose(f)
			p.OFile[i] = nil
		}
	}
	if p.Cwd != nil {
		k.cfg.fs.BeginOp()
		k.cfg.fs.IPut(p.Cwd)
		k.cfg.fs.EndOp()
		p.Cwd = nil
	}

	k.mu.Lock()
	k.wakeupLocked(ChanOf(p.Parent))
	for _, c := range k.procs {
		if c != nil && c.Parent == p {
			c.Parent = k.initProc
			if c.state == StateZombie {
				k.wakeupLocked(ChanOf(k.initProc))
			}
		}
	}
	p.state = StateZombie
	p.ETime = k.ticks
	logInfo(k.cfg.logger, "lifecycle", "exit", map[string]any{"pid": p.Pid})
	k.schedTerminal(p) // releases k.mu; no further access to k.mu below
}

// waitImpl backs both Wait and WaitX (spec §4.4's "wait() / waitx").
func (t *Task) waitImpl(wtime, rtime *uint64) (int, error) {
	k := t.k
	k.mu.Lock()
	for {
		haveChildren := false
		for _, c := range k.procs {
			if c == nil || c.state == StateUnused || c.Parent != t.p {
				continue
			}
			haveChildren = true
			if c.state != StateZombie {
				continue
			}
			pid := c.Pid
			if wtime != nil {
				*wtime = c.WTime / uint64(k.cfg.ncpu)
			}
			if rtime != nil {
				*rtime = c.RTime
			}
			k.cfg.mem.FreeVM(c.PageDir)
			k.cfg.mem.FreeKStack(c.KStack)
			*c = Proc{state: StateUnused}
			k.mu.Unlock()
			return pid, nil
		}
		if t.p.Killed {
			k.mu.Unlock()
			return -1, ErrProcessKilled
		}
		if !haveChildren {
			k.mu.Unlock()
			return -1, ErrNoChildren
		}

		t.p.Chan = ChanOf(t.p)
		t.p.state = StateSleeping
		t.p.captureSleepFrames()
		tok := k.sched(t.p)
		t.cpu = tok.cpu
		t.p.Chan = Channel{}
	}
}

// Wait is spec.md §4.4's wait(): reap one ZOMBIE child, or block until
// one appears. Returns -1 with ErrNoChildren if the caller has none, or
// -1 with ErrProcessKilled if it has been killed.
func (t *Task) Wait() (int, error) { return t.waitImpl(nil, nil) }

// WaitX is wait() plus the accounting spec.md §4.4 describes: before
// reaping, it writes the child's wait ticks (normalized by NCPU) and
// run ticks into the caller-supplied pointers.
//
// The original leaves the reaped slot in ZOMBIE (a commented-out
// assignment, spec §9 open question); this port fixes that bug and sets
// UNUSED, same as Wait.
func (t *Task) WaitX(wtime, rtime *uint64) (int, error) { return t.waitImpl(wtime, rtime) }

// Kill is spec.md §4.4's kill(pid): set the target's killed flag, and
// if it is SLEEPING, promote it to RUNNABLE so it gets dispatched and
// can observe the flag (acting on it is the external trap layer's job).
func (k *Kernel) Kill(pid int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, p := range k.procs {
		if p != nil && p.state != StateUnused && p.Pid == pid {
			p.Killed = true
			if p.state == StateSleeping {
				p.state = StateRunnable
				p.Chan = Channel{}
				if k.cfg.policy == PolicyMLFQ {
					k.pushMLFQ(p.CurQueue, p)
				}
			}
			logDebug(k.cfg.logger, "lifecycle", "kill", map[string]any{"pid": pid})
			return nil
		}
	}
	return ErrNotFound
}

// SetPriority is spec.md §4.4's set_priority(new, pid): validate range,
// update under the mutex, and return the previous value. It does not
// itself yield when the caller retargets its own priority — callers
// driving a process should use Task.SetPriority, which does.
func (k *Kernel) SetPriority(pid, newPriority int) (int, error) {
	if newPriority < 0 || newPriority > 100 {
		return -1, ErrBadPriority
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, p := range k.procs {
		if p != nil && p.state != StateUnused && p.Pid == pid {
			old := p.Priority
			p.Priority = newPriority
			return old, nil
		}
	}
	return -1, ErrNotFound
}

// SetPriority retargets this Task's own process and, per spec.md §4.4
// ("if the caller changed its own priority, yield()"), immediately
// yields so a PBS dispatcher can re-evaluate.
func (t *Task) SetPriority(newPriority int) (int, error) {
	old, err := t.k.SetPriority(t.p.Pid, newPriority)
	if err != nil {
		return old, err
	}
	t.Yield()
	return old, nil
}

// GrowProc is spec.md §4.4's growproc(n): grow or shrink the calling
// process's user memory via the memory collaborator and reinstall the
// updated page table on the current CPU.
func (t *Task) GrowProc(n int64) error {
	k := t.k
	oldSz := t.p.Sz
	var newSz uint64
	var err error
	if n >= 0 {
		newSz, err = k.cfg.mem.AllocUVM(t.p.PageDir, oldSz, oldSz+uint64(n))
	} else {
		shrink := uint64(-n)
		if shrink > oldSz {
			shrink = oldSz
		}
		newSz, err = k.cfg.mem.DeallocUVM(t.p.PageDir, oldSz, oldSz-shrink)
	}
	if err != nil {
		return WrapError("procsched: growproc", ErrVMCollaborator)
	}
	k.mu.Lock()
	t.p.Sz = newSz
	k.mu.Unlock()
	k.cfg.mem.SwitchUVM(t.p)
	return nil
}
