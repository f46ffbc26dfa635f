package procsched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRunningCountNeverExceedsNCPU samples the process table from outside
// while four CPU-bound children compete for two dispatch loops, and
// checks the number of StateRunning slots is always <= NCPU — spec.md
// §8's universal invariant that at most one process runs per CPU.
func TestRunningCountNeverExceedsNCPU(t *testing.T) {
	const ncpu = 2
	k := startKernel(t, WithPolicy(PolicyRR), WithNCPU(ncpu))

	stop := make(chan struct{})
	_, err := k.UserInit(nil, func(pt *Task) {
		for i := 0; i < 4; i++ {
			pt.Fork("hog", func(ct *Task) {
				for {
					select {
					case <-stop:
						ct.Exit()
						return
					default:
						ct.Yield()
					}
				}
			})
		}
		for {
			pt.Yield()
		}
	})
	require.NoError(t, err)

	deadline := time.Now().Add(200 * time.Millisecond)
	maxRunning := 0
	for time.Now().Before(deadline) {
		k.mu.Lock()
		running := 0
		for _, p := range k.procs {
			if p.state == StateRunning {
				running++
			}
		}
		k.mu.Unlock()
		if running > maxRunning {
			maxRunning = running
		}
		require.LessOrEqualf(t, running, ncpu, "observed %d RUNNING slots with only %d CPUs", running, ncpu)
		time.Sleep(time.Millisecond)
	}
	close(stop)
}

// TestSleepingProcessAlwaysHasNonZeroChan exercises spec.md §8's
// "SLEEPING implies Chan != zero" invariant across a real Sleep/Wakeup
// rendezvous, not just a direct field-manipulation fixture.
func TestSleepingProcessAlwaysHasNonZeroChan(t *testing.T) {
	k := startKernel(t, WithPolicy(PolicyRR), WithNCPU(1))
	K := NewChannel()
	observed := make(chan Channel, 1)

	_, err := k.UserInit(nil, func(pt *Task) {
		pt.Fork("sleeper", func(ct *Task) {
			var tl sleepLocker
			tl.Lock()
			ct.Sleep(K, &tl)
			ct.Exit()
		})
		pt.Fork("observer", func(ot *Task) {
			for {
				ot.k.mu.Lock()
				var chanOfSleeper Channel
				found := false
				for _, p := range ot.k.procs {
					if p.Name == "sleeper" && p.state == StateSleeping {
						chanOfSleeper = p.Chan
						found = true
					}
				}
				ot.k.mu.Unlock()
				if found {
					observed <- chanOfSleeper
					break
				}
				ot.Yield()
			}
			ot.k.Wakeup(K)
			ot.Exit()
		})
		pt.Wait()
		pt.Wait()
		for {
			pt.Yield()
		}
	})
	require.NoError(t, err)

	select {
	case c := <-observed:
		require.False(t, c.IsZero(), "a SLEEPING process must report a non-zero Chan")
		require.Equal(t, K, c)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting to observe the sleeping process")
	}
}

// TestAllocProcPidsAreDistinctAndMonotonic exercises spec.md §8's pid
// invariant directly against allocProc, including across a slot reuse.
func TestAllocProcPidsAreDistinctAndMonotonic(t *testing.T) {
	k, err := New(WithNPROC(4))
	require.NoError(t, err)

	seen := map[int]bool{}
	var last int
	for i := 0; i < 3; i++ {
		p, err := k.allocProc()
		require.NoError(t, err)
		require.False(t, seen[p.Pid], "pid %d reused while still live", p.Pid)
		require.Greater(t, p.Pid, last)
		seen[p.Pid] = true
		last = p.Pid
	}

	// Free one slot and confirm its replacement still gets a fresh,
	// strictly larger pid rather than recycling the freed one.
	var freed *Proc
	k.mu.Lock()
	for _, p := range k.procs {
		if p.state == StateEmbryo {
			freed = p
			break
		}
	}
	freedPid := freed.Pid
	freed.state = StateUnused
	k.mu.Unlock()

	p, err := k.allocProc()
	require.NoError(t, err)
	require.Greater(t, p.Pid, last)
	require.NotEqual(t, freedPid, p.Pid)
}
