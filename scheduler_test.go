package procsched

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestPBSPriorityPreemption forks two CPU-bound processes under PBS and
// sets their priorities from the kernel-level API (which, unlike
// Task.SetPriority, does not auto-yield) before either has run, so there
// is no bootstrapping race over which priority applies to the first
// dispatch. The lower-numbered priority must win every contested
// dispatch until it exits — including starving the higher-numbered one
// entirely, which is the expected behavior of a pure priority scheduler
// with no aging.
func TestPBSPriorityPreemption(t *testing.T) {
	k := startKernel(t, WithPolicy(PolicyPBS), WithNCPU(1))

	var mu sync.Mutex
	var order []string
	const rounds = 3

	done := make(chan struct{})

	_, err := k.UserInit(nil, func(pt *Task) {
		aPid, _ := pt.Fork("A", func(at *Task) {
			for i := 0; i < rounds; i++ {
				mu.Lock()
				order = append(order, "A")
				mu.Unlock()
				at.Yield()
			}
			at.Exit()
		})
		bPid, _ := pt.Fork("B", func(bt *Task) {
			for i := 0; i < rounds; i++ {
				mu.Lock()
				order = append(order, "B")
				mu.Unlock()
				bt.Yield()
			}
			bt.Exit()
		})
		_, _ = k.SetPriority(aPid, 60)
		_, _ = k.SetPriority(bPid, 10)

		pt.Wait()
		pt.Wait()
		close(done)
		for {
			pt.Yield()
		}
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 2*rounds)
	for i := 0; i < rounds; i++ {
		require.Equal(t, "B", order[i], "B (priority 10) must run before A (priority 60) in every round")
	}
	for i := rounds; i < 2*rounds; i++ {
		require.Equal(t, "A", order[i])
	}
}

// TestFCFSOrdering forks three children at strictly increasing ctimes
// and checks that each runs to completion in that order, with no
// later-forked child ever preempting an earlier one.
func TestFCFSOrdering(t *testing.T) {
	k := startKernel(t, WithPolicy(PolicyFCFS), WithNCPU(1))

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})

	_, err := k.UserInit(nil, func(pt *Task) {
		names := []string{"child1", "child2", "child3"}
		for _, name := range names {
			name := name
			pt.Fork(name, func(ct *Task) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				ct.Exit()
			})
			k.UpdateTiming() // advances ticks so the next fork gets a later ctime
		}
		for range names {
			pt.Wait()
		}
		close(done)
		for {
			pt.Yield()
		}
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"child1", "child2", "child3"}, order)
}

// TestMLFQPunishDemotesOneLevelPerRound forks a CPU-bound process under
// MLFQ that punishes itself every round; it must be demoted exactly one
// queue level per round, capped at mlfqSize-1.
func TestMLFQPunishDemotesOneLevelPerRound(t *testing.T) {
	const mlfqSize = 3
	k := startKernel(t, WithPolicy(PolicyMLFQ), WithNCPU(1), WithMLFQSize(mlfqSize))

	var queueHistory []int
	done := make(chan struct{})

	_, err := k.UserInit(nil, func(pt *Task) {
		pt.Fork("hog", func(ct *Task) {
			for i := 0; i < mlfqSize+2; i++ {
				ct.k.mu.Lock()
				queueHistory = append(queueHistory, ct.p.CurQueue)
				ct.k.mu.Unlock()
				ct.Punisher()
				ct.Yield()
			}
			ct.Exit()
		})
		pt.Wait()
		close(done)
		for {
			pt.Yield()
		}
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}

	require.Equal(t, []int{0, 1, 2, 2, 2}, queueHistory)
}
