package procsched

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// UpdateTiming is spec.md §4.8's update_timing, meant to be called once
// per simulated timer tick: bump rtime for every RUNNING slot, wtime for
// every RUNNABLE slot, iotime for every SLEEPING slot.
func (k *Kernel) UpdateTiming() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ticks++
	for _, p := range k.procs {
		switch p.state {
		case StateRunning:
			p.RTime++
		case StateRunnable:
			p.WTime++
		case StateSleeping:
			p.IOTime++
		}
	}
}

// Punisher is spec.md §4.8's punisher(): set this Task's process's
// punish flag, the cooperative demotion signal the MLFQ dispatcher
// consumes on the next re-enqueue (scheduler.go).
func (t *Task) Punisher() {
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	t.p.Punish = true
}

// IncTimeslice is spec.md §4.8's inc_timeslice: bump this Task's
// process's time-slice counter and report whether it has now exceeded
// the active MLFQ level's quantum, the signal a Workload uses to decide
// whether to call Punisher before its next Yield.
func (t *Task) IncTimeslice() (exceeded bool) {
	k := t.k
	k.mu.Lock()
	defer k.mu.Unlock()
	t.p.TimeSlices++
	limit := k.cfg.mlfqQuantum[t.p.CurQueue]
	return limit > 0 && t.p.TimeSlices >= limit
}

// AgeProcesses is spec.md §4.8's age_processes(queue_id), the hook the
// original reserves but never implements (spec §9 open question). This
// port's policy: any process in queue queueID whose accumulated wtime
// has grown by more than the WithAgingThreshold ticks since it was pushed
// onto that queue is promoted to queue max(0, queueID-1). It reports
// "queue empty" exactly as the original does when front == rear == -1.
func (k *Kernel) AgeProcesses(queueID int) (promoted int, empty bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ageProcessesLocked(queueID)
}

func (k *Kernel) ageProcessesLocked(queueID int) (promoted int, empty bool) {
	q := k.queues[queueID]
	if q.Empty() {
		return 0, true
	}
	threshold := k.cfg.agingThresholdTicks
	entries := q.Display()
	ranked := make([]waitRank[*Proc, uint64], len(entries))
	for i, p := range entries {
		ranked[i] = waitRank[*Proc, uint64]{value: p, rank: p.WTime - p.QueueTicks[queueID]}
	}
	over, under := partitionByRank(ranked, threshold)
	if len(over) == 0 {
		return 0, false
	}

	q.reset()
	for _, p := range under {
		q.Push(p)
	}

	target := queueID - 1
	if target < 0 {
		target = 0
	}
	for _, p := range over {
		k.pushMLFQ(target, p)
		promoted++
	}
	logDebug(k.cfg.logger, "mlfq", "aged processes promoted", map[string]any{
		"from_queue": queueID, "to_queue": target, "count": promoted,
	})
	return promoted, false
}

// PSRow is one row of spec.md §4.8's ps() table dump.
type PSRow struct {
	Pid    int
	Name   string
	Prior  int
	State  string
	RTime  uint64
	WTime  uint64 // normalized by NCPU, per spec.md §4.8
	NSched uint64
}

// PS is ps(): a snapshot of every non-UNUSED process, returned as data
// rather than printed directly — presentation is FormatPS's job, or a
// caller's own.
func (k *Kernel) PS() []PSRow {
	k.mu.Lock()
	defer k.mu.Unlock()
	rows := make([]PSRow, 0, len(k.procs))
	for _, p := range k.procs {
		if p.state == StateUnused {
			continue
		}
		rows = append(rows, PSRow{
			Pid:    p.Pid,
			Name:   p.Name,
			Prior:  p.Priority,
			State:  p.state.String(),
			RTime:  p.RTime,
			WTime:  p.WTime / uint64(k.cfg.ncpu),
			NSched: p.NSched,
		})
	}
	return rows
}

// FormatPS renders rows as a space-padded, column-aligned table with the
// columns the original's ps() produces via cprintf, without this package
// doing any I/O itself.
func FormatPS(rows []PSRow) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PID\tName\tPrior\tState\trtime\twtime\tn_sched")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%d\t%d\t%d\n", r.Pid, r.Name, r.Prior, r.State, r.RTime, r.WTime, r.NSched)
	}
	w.Flush()
	return b.String()
}

// ProcDumpEntry is one row of spec.md §4.8's procdump() debug dump.
type ProcDumpEntry struct {
	Pid    int
	Name   string
	State  string
	Frames []uintptr // populated only for StateSleeping, via runtime.Callers captured at Sleep
}

// ProcDump is procdump(): a lock-free, best-effort snapshot (spec.md
// §3.4's one documented exception to "every read/write under the
// mutex"). For a SLEEPING process it includes up to 10 captured program
// counters, the idiomatic stand-in for walking a saved frame-pointer
// chain.
func (k *Kernel) ProcDump() []ProcDumpEntry {
	out := make([]ProcDumpEntry, 0, len(k.procs))
	for _, p := range k.procs {
		st := p.state
		if st == StateUnused {
			continue
		}
		e := ProcDumpEntry{Pid: p.Pid, Name: p.Name, State: st.String()}
		if st == StateSleeping {
			e.Frames = append([]uintptr(nil), p.sleepFrames...)
		}
		out = append(out, e)
	}
	return out
}
