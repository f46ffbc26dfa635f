package procsched

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapErrorPreservesCause(t *testing.T) {
	wrapped := WrapError("procsched: allocate kernel stack", ErrAllocFailed)
	require.True(t, errors.Is(wrapped, ErrAllocFailed))
	require.Contains(t, wrapped.Error(), "allocate kernel stack")
}
