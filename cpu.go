package procsched

import (
	"fmt"
	"sync"
)

// CPU is one per-CPU record (spec §3.2/§4.3). There is no separate
// scheduler stack to name as a field: the goroutine running
// dispatchLoop (scheduler.go) plays that role directly. Proc is the
// process currently dispatched onto this CPU, written only by that same
// goroutine and read-only from anywhere else, by construction of the
// token handoff in switch.go.
type CPU struct {
	APICID int
	Proc   *Proc

	mu     sync.Mutex
	nCli   int
	intEna bool
}

// MyCPU replaces the original's mycpu(), which reads the running CPU's
// APIC id out of a hardware register. Go has no such register and no
// thread-locals, so callers must say which CPU they mean; this just
// turns a linear APIC-id lookup into a function, matching mycpu()'s
// "unknown apicid panics" contract (spec §7.3) via a returned error
// instead, since this is callable from ordinary Go code, not only from
// inside a CPU's own dispatch loop.
func MyCPU(cpus []*CPU, apicID int) (*CPU, error) {
	for _, c := range cpus {
		if c.APICID == apicID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("procsched: unknown apic id %d", apicID)
}

// PushCLI and PopCLI replicate the nested interrupt-disable discipline
// of spec.md §4.3: the first PushCLI records the prior "interrupts
// enabled" flag and clears it; PopCLI only restores it once nesting
// returns to zero. There being no real EFLAGS.IF in this simulation,
// IntEna is just a per-CPU boolean the dispatch loop itself maintains.
func (c *CPU) PushCLI(intEnaBefore bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nCli == 0 {
		c.intEna = intEnaBefore
	}
	c.nCli++
}

// PopCLI decrements the nesting depth and reports the interrupt-enabled
// flag that should now be restored. It panics on an unbalanced call,
// mirroring the original's "popcli - ncli < 0" fatal check (spec §7.3);
// there is no interrupt flag here to make the "interrupts enabled" check
// against.
func (c *CPU) PopCLI() (restoreIntEna bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nCli <= 0 {
		panic("procsched: popcli: ncli < 0")
	}
	c.nCli--
	return c.nCli == 0 && c.intEna
}

// nestingDepth reports the current PushCLI nesting depth, used only by
// sched()'s precondition check (spec §4.6: "exactly one cli nesting").
func (c *CPU) nestingDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nCli
}
