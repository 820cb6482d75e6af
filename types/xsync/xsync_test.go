package xsync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoComputesOnce(t *testing.T) {
	var cell Memo[int]
	calls := 0
	compute := func() int {
		calls++
		return 42
	}
	for range 5 {
		require.Equal(t, 42, cell.Get(compute))
	}
	require.Equal(t, 1, calls)
}

func TestMemoPerInstance(t *testing.T) {
	var a, b Memo[int]
	calls := 0
	compute := func() int {
		calls++
		return calls
	}
	require.Equal(t, 1, a.Get(compute))
	require.Equal(t, 2, b.Get(compute))
	require.Equal(t, 1, a.Get(compute))
	require.Equal(t, 2, calls)
}
