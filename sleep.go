package procsched

import "sync"

// TableLock exposes the table mutex as a sync.Locker so a caller can
// pass it to Task.Sleep as the lock it already holds — spec.md §4.7's
// "if lk is not the table mutex" test needs an identity comparison, and
// this is the one stable value that comparison can be made against.
func (k *Kernel) TableLock() sync.Locker { return &k.mu }

// Sleep is spec.md §4.7's sleep(chan, lk): atomically release lk and
// block until Wakeup(chan) is called. The caller must hold lk.
//
// If lk is not the table mutex, the table mutex is acquired first and
// only then is lk released — this ordering (acquire before release,
// never the reverse) is what guarantees a concurrent Wakeup cannot run
// between "I decided to sleep" and "I am marked SLEEPING". On wake, the
// table mutex is released and lk reacquired, so the caller resumes
// holding exactly the lock it started with.
func (t *Task) Sleep(c Channel, lk sync.Locker) {
	k := t.k
	p := t.p
	tableLock := k.TableLock()

	if lk != tableLock {
		k.mu.Lock()
		lk.Unlock()
	}

	p.Chan = c
	p.state = StateSleeping
	p.captureSleepFrames()
	logDebug(k.cfg.logger, "sleep", "sleep", map[string]any{"pid": p.Pid})

	tok := k.sched(p)
	t.cpu = tok.cpu
	p.Chan = Channel{}

	if lk != tableLock {
		k.mu.Unlock()
		lk.Lock()
	}
}

// Wakeup is spec.md §4.7's wakeup(chan): wake every process SLEEPING on
// chan. Safe to call from outside any process's Task, e.g. from an
// interrupt-handler stand-in.
func (k *Kernel) Wakeup(c Channel) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.wakeupLocked(c)
}

// wakeupLocked is wakeup1: the same scan, assuming the table mutex is
// already held. exit() uses this directly while it holds the lock for
// its own bookkeeping.
func (k *Kernel) wakeupLocked(c Channel) {
	if c.IsZero() {
		return
	}
	for _, p := range k.procs {
		if p != nil && p.state == StateSleeping && p.Chan == c {
			p.state = StateRunnable
			p.Chan = Channel{}
			if k.cfg.policy == PolicyMLFQ {
				k.pushMLFQ(p.CurQueue, p)
			}
			logDebug(k.cfg.logger, "sleep", "wakeup", map[string]any{"pid": p.Pid})
		}
	}
}
