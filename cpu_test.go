package procsched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMyCPU(t *testing.T) {
	cpus := []*CPU{{APICID: 0}, {APICID: 1}, {APICID: 2}}

	c, err := MyCPU(cpus, 1)
	require.NoError(t, err)
	require.Same(t, cpus[1], c)

	_, err = MyCPU(cpus, 7)
	require.Error(t, err)
}

func TestCPUPushPopCLINesting(t *testing.T) {
	c := &CPU{}
	require.Equal(t, 0, c.nestingDepth())

	c.PushCLI(true)
	require.Equal(t, 1, c.nestingDepth())
	c.PushCLI(false) // nested call must not overwrite the saved flag
	require.Equal(t, 2, c.nestingDepth())

	restore := c.PopCLI()
	require.False(t, restore, "not back to depth 0 yet")
	require.Equal(t, 1, c.nestingDepth())

	restore = c.PopCLI()
	require.True(t, restore, "restores the flag saved by the first PushCLI")
	require.Equal(t, 0, c.nestingDepth())
}

func TestCPUPopCLIUnbalancedPanics(t *testing.T) {
	c := &CPU{}
	require.Panics(t, func() { c.PopCLI() })
}
