package layers_test

import (
	"testing"

	"github.com/AndyB66/neupy/layers"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/stretchr/testify/require"
)

func TestJoinChainsNetworks(t *testing.T) {
	input := layers.NewInput(6)
	hidden := layers.NewRelu(3)
	output := layers.NewSigmoid(1)

	n, err := layers.Join(input, hidden, output)
	require.NoError(t, err)
	require.Equal(t, 3, n.NumLayers())
	require.Equal(t,
		[]layers.Layer{hidden}, n.ForwardAdjacency().Edges(input))
	require.Equal(t,
		[]layers.Layer{output}, n.ForwardAdjacency().Edges(hidden))
	require.Empty(t, n.ForwardAdjacency().Edges(output))
}

func TestJoinFanOutAndFanIn(t *testing.T) {
	input := layers.NewInput(4)
	left := layers.NewRelu(2)
	right := layers.NewTanh(2)
	branches, err := layers.Parallel(left, right)
	require.NoError(t, err)

	// One output to many inputs, then many outputs to one input.
	merge := layers.NewElementwise()
	n, err := layers.Join(input, branches, merge)
	require.NoError(t, err)

	require.Equal(t, []layers.Layer{input}, n.InputLayers())
	require.Equal(t, []layers.Layer{merge}, n.OutputLayers())
	require.ElementsMatch(t,
		[]layers.Layer{left, right}, n.ForwardAdjacency().Edges(input))

	outputs, err := n.OutputShapes()
	require.NoError(t, err)
	require.Equal(t, []shapes.Shape{shapes.Make(shapes.UnknownDim, 2)}, outputs)
}

func TestJoinManyToMany(t *testing.T) {
	left, err := layers.Parallel(layers.NewIdentity(), layers.NewIdentity())
	require.NoError(t, err)
	right, err := layers.Parallel(layers.NewIdentity(), layers.NewIdentity())
	require.NoError(t, err)

	_, err = layers.Join(left, right)
	var connErr *layers.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Contains(t, err.Error(), "many-to-many")
}

func TestJoinIncompatibleShapes(t *testing.T) {
	_, err := layers.Join(layers.NewInput(10), layers.NewInput(20))
	var connErr *layers.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Contains(t, err.Error(), "(?, 10)")
	require.Contains(t, err.Error(), "(?, 20)")
}

func TestParallelNeverValidatesShapes(t *testing.T) {
	// The same two layers that cannot be chained sit side by side just fine.
	n, err := layers.Parallel(layers.NewInput(10), layers.NewInput(20))
	require.NoError(t, err)
	require.Equal(t, 2, n.NumLayers())
	require.Len(t, n.InputLayers(), 2)
	require.Len(t, n.OutputLayers(), 2)
	require.False(t, n.IsSequential())
}

func TestMergeDetectsCycle(t *testing.T) {
	a, b := layers.NewIdentity(), layers.NewIdentity()

	forward := layers.NewAdjacency()
	forward.Add(a, b)
	first, err := layers.NewNetwork(forward)
	require.NoError(t, err)

	backward := layers.NewAdjacency()
	backward.Add(b, a)
	second, err := layers.NewNetwork(backward)
	require.NoError(t, err)

	_, err = layers.Merge(first, second, false)
	var connErr *layers.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Contains(t, err.Error(), "creates a cycle")
}

func TestMergeIsIdempotentOnSharedLayers(t *testing.T) {
	a, b := layers.NewIdentity(), layers.NewIdentity()
	chain, err := layers.Join(a, b)
	require.NoError(t, err)

	merged, err := layers.Merge(chain, chain, false)
	require.NoError(t, err)
	require.Equal(t, 2, merged.NumLayers())
	require.Equal(t, []layers.Layer{b}, merged.ForwardAdjacency().Edges(a))
}

func TestMergeLeavesOperandsUntouched(t *testing.T) {
	a, b := layers.NewIdentity(), layers.NewIdentity()
	left, err := layers.Parallel(a)
	require.NoError(t, err)
	right, err := layers.Parallel(b)
	require.NoError(t, err)

	_, err = layers.Merge(left, right, true)
	require.NoError(t, err)
	require.Empty(t, left.ForwardAdjacency().Edges(a))
	require.Equal(t, 1, left.NumLayers())
	require.Equal(t, 1, right.NumLayers())
}

func TestElementwiseShapeMerging(t *testing.T) {
	l := layers.NewElementwise()
	merged, err := l.OutputShape(
		shapes.Make(shapes.UnknownDim, 3), shapes.Make(5, shapes.UnknownDim))
	require.NoError(t, err)
	require.Equal(t, shapes.Make(5, 3), merged)

	_, err = l.OutputShape(shapes.Make(5, 3), shapes.Make(5, 4))
	var connErr *layers.ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestConcatenateShapes(t *testing.T) {
	l := layers.NewConcatenate()
	out, err := l.OutputShape(
		shapes.Make(shapes.UnknownDim, 3), shapes.Make(shapes.UnknownDim, 4))
	require.NoError(t, err)
	require.Equal(t, shapes.Make(shapes.UnknownDim, 7), out)

	// An unknown dimension on the concatenation axis poisons the sum.
	out, err = l.OutputShape(
		shapes.Make(2, shapes.UnknownDim), shapes.Make(2, 4))
	require.NoError(t, err)
	require.Equal(t, shapes.Make(2, shapes.UnknownDim), out)

	_, err = l.OutputShape(shapes.Make(2, 3), shapes.Make(5, 4))
	var connErr *layers.ConnectionError
	require.ErrorAs(t, err, &connErr)

	first := layers.NewConcatenate(0)
	out, err = first.OutputShape(shapes.Make(2, 3), shapes.Make(5, 3))
	require.NoError(t, err)
	require.Equal(t, shapes.Make(7, 3), out)

	_, err = first.OutputShape(shapes.Make(2), shapes.Make(2, 3))
	require.ErrorAs(t, err, &connErr)
}
