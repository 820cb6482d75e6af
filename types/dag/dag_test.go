package dag

import (
	"testing"

	"github.com/AndyB66/neupy/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func adjacencyFrom(entries ...[2][]string) *Adjacency[string] {
	// Each entry is {[]string{node}, targets}.
	a := New[string]()
	for _, entry := range entries {
		a.Add(entry[0][0], entry[1]...)
	}
	a.Complete()
	return a
}

func TestIsCyclic(t *testing.T) {
	chain := adjacencyFrom(
		[2][]string{{"A"}, {"B"}},
		[2][]string{{"B"}, {"C"}},
		[2][]string{{"C"}, nil},
	)
	require.False(t, IsCyclic(chain))

	loop := adjacencyFrom(
		[2][]string{{"A"}, {"B"}},
		[2][]string{{"B"}, {"A"}},
	)
	require.True(t, IsCyclic(loop))

	selfLoop := adjacencyFrom([2][]string{{"A"}, {"A"}})
	require.True(t, IsCyclic(selfLoop))

	isolated := adjacencyFrom(
		[2][]string{{"A"}, nil},
		[2][]string{{"B"}, nil},
	)
	require.False(t, IsCyclic(isolated))

	require.False(t, IsCyclic(New[string]()))
}

func TestTopologicalSort(t *testing.T) {
	// Dependencies adjacency: emitted once all edges were emitted. The chain
	// A->B->C in forward form has backward form {A: [], B: [A], C: [B]}.
	backward := adjacencyFrom(
		[2][]string{{"A"}, nil},
		[2][]string{{"B"}, {"A"}},
		[2][]string{{"C"}, {"B"}},
	)
	sorted, err := TopologicalSort(backward)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, sorted)

	// Diamond: A feeds B and C, both feed D.
	diamond := adjacencyFrom(
		[2][]string{{"A"}, nil},
		[2][]string{{"B"}, {"A"}},
		[2][]string{{"C"}, {"A"}},
		[2][]string{{"D"}, {"B", "C"}},
	)
	sorted, err = TopologicalSort(diamond)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C", "D"}, sorted)

	loop := adjacencyFrom(
		[2][]string{{"A"}, {"B"}},
		[2][]string{{"B"}, {"A"}},
	)
	_, err = TopologicalSort(loop)
	require.Error(t, err)
	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))

	sorted, err = TopologicalSort(New[string]())
	require.NoError(t, err)
	require.Empty(t, sorted)
}

func TestReverse(t *testing.T) {
	forward := adjacencyFrom(
		[2][]string{{"A"}, {"B", "C"}},
		[2][]string{{"B"}, {"C"}},
	)
	backward := forward.Reverse()
	require.Equal(t, []string{"A", "B", "C"}, backward.Nodes())
	require.Empty(t, backward.Edges("A"))
	require.Equal(t, []string{"A"}, backward.Edges("B"))
	require.Equal(t, []string{"A", "B"}, backward.Edges("C"))
}

func TestFilter(t *testing.T) {
	forward := adjacencyFrom(
		[2][]string{{"A"}, {"B", "C"}},
		[2][]string{{"B"}, {"D"}},
		[2][]string{{"C"}, {"D"}},
	)
	kept := Filter(forward, types.SetWith("A", "B", "D"))
	require.Equal(t, []string{"A", "B", "D"}, kept.Nodes())
	require.Equal(t, []string{"B"}, kept.Edges("A"))
	require.Equal(t, []string{"D"}, kept.Edges("B"))
	require.Empty(t, kept.Edges("D"))
}

func TestAddDeduplicates(t *testing.T) {
	a := New[string]()
	a.Add("A", "B")
	a.Add("A", "B", "C")
	require.Equal(t, []string{"B", "C"}, a.Edges("A"))
	require.Equal(t, []string{"A"}, a.Nodes())
	a.Complete()
	require.Equal(t, []string{"A", "B", "C"}, a.Nodes())
}
