package procsched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveConfigDefaults(t *testing.T) {
	c, err := resolveConfig(nil)
	require.NoError(t, err)
	require.Equal(t, PolicyRR, c.policy)
	require.Equal(t, 64, c.nproc)
	require.Equal(t, 1, c.ncpu)
	require.Equal(t, 16, c.nofile)
	require.Equal(t, 5, c.mlfqSize)
	require.Equal(t, 4096, c.kstackSize)
	require.Equal(t, uint64(30), c.agingThresholdTicks)
	require.Equal(t, 8, c.mlfqQuantum[0])
	require.IsType(t, NullMemoryCollaborator{}, c.mem)
	require.IsType(t, NullFSCollaborator{}, c.fs)
	require.IsType(t, NullTrapCollaborator{}, c.trap)
	require.NotNil(t, c.logger)
}

func TestResolveConfigAppliesOptionsInOrder(t *testing.T) {
	c, err := resolveConfig([]Option{
		WithPolicy(PolicyMLFQ),
		WithNPROC(8),
		WithNCPU(2),
		WithMLFQSize(3),
		WithMLFQQuantum(1, 16),
		WithAgingThreshold(5),
	})
	require.NoError(t, err)
	require.Equal(t, PolicyMLFQ, c.policy)
	require.Equal(t, 8, c.nproc)
	require.Equal(t, 2, c.ncpu)
	require.Equal(t, 3, c.mlfqSize)
	require.Equal(t, 16, c.mlfqQuantum[1])
	require.Equal(t, uint64(5), c.agingThresholdTicks)
}

func TestResolveConfigRejectsInvalidValues(t *testing.T) {
	_, err := resolveConfig([]Option{WithNPROC(0)})
	require.Error(t, err)

	_, err = resolveConfig([]Option{WithNCPU(-1)})
	require.Error(t, err)

	_, err = resolveConfig([]Option{WithMLFQSize(maxMLFQLevels + 1)})
	require.Error(t, err)

	_, err = resolveConfig([]Option{WithMLFQQuantum(-1, 1)})
	require.Error(t, err)
}

func TestPolicyString(t *testing.T) {
	require.Equal(t, "round-robin", PolicyRR.String())
	require.Equal(t, "FCFS", PolicyFCFS.String())
	require.Equal(t, "priority-based", PolicyPBS.String())
	require.Equal(t, "MLFQ", PolicyMLFQ.String())
	require.Equal(t, "unknown", Policy(99).String())
}
