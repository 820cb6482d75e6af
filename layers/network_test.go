package layers_test

import (
	"testing"

	"github.com/AndyB66/neupy/layers"
	"github.com/AndyB66/neupy/types/dag"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestNewNetworkFromAdjacency(t *testing.T) {
	a, b, c := layers.NewIdentity(), layers.NewIdentity(), layers.NewIdentity()
	adjacency := layers.NewAdjacency()
	adjacency.Add(a, b)
	adjacency.Add(b, c)

	n, err := layers.NewNetwork(adjacency)
	require.NoError(t, err)
	require.Equal(t, 3, n.NumLayers())
	require.Equal(t, []layers.Layer{a}, n.InputLayers())
	require.Equal(t, []layers.Layer{c}, n.OutputLayers())
	require.Equal(t, []layers.Layer{a, b, c}, n.Layers())
	require.True(t, n.IsSequential())

	require.True(t, n.Contains(b))
	require.False(t, n.Contains(layers.NewIdentity()))
}

func TestNewNetworkCycle(t *testing.T) {
	a, b := layers.NewIdentity(), layers.NewIdentity()
	adjacency := layers.NewAdjacency()
	adjacency.Add(a, b)
	adjacency.Add(b, a)

	_, err := layers.NewNetwork(adjacency)
	require.Error(t, err)
	var cycleErr *dag.CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestLayersTopologicalOrder(t *testing.T) {
	// Diamond: a feeds b and c, both feed d.
	a, b, c, d := layers.NewIdentity(), layers.NewIdentity(), layers.NewIdentity(), layers.NewElementwise()
	adjacency := layers.NewAdjacency()
	adjacency.Add(a, b, c)
	adjacency.Add(b, d)
	adjacency.Add(c, d)

	n, err := layers.NewNetwork(adjacency)
	require.NoError(t, err)
	require.False(t, n.IsSequential())

	sorted := n.Layers()
	require.Len(t, sorted, 4)
	position := make(map[layers.Layer]int, len(sorted))
	for ii, layer := range sorted {
		position[layer] = ii
	}
	require.Less(t, position[a], position[b])
	require.Less(t, position[a], position[c])
	require.Less(t, position[b], position[d])
	require.Less(t, position[c], position[d])
}

func TestLayerByName(t *testing.T) {
	input := layers.NewInput(10)
	hidden := layers.NewRelu(5)
	hidden.SetName("hidden")
	n, err := layers.Join(input, hidden)
	require.NoError(t, err)

	found, err := n.LayerByName("hidden")
	require.NoError(t, err)
	require.Same(t, layers.Layer(hidden), found)

	_, err = n.LayerByName("no-such-layer")
	var notFound *layers.NotFoundError
	require.ErrorAs(t, err, &notFound)

	twinA, twinB := layers.NewIdentity(), layers.NewIdentity()
	twinA.SetName("twin")
	twinB.SetName("twin")
	ambiguous, err := layers.Parallel(twinA, twinB)
	require.NoError(t, err)
	_, err = ambiguous.LayerByName("twin")
	require.ErrorAs(t, err, &notFound)
}

func TestStartAndEnd(t *testing.T) {
	input := layers.NewInput(8)
	first := layers.NewRelu(4)
	first.SetName("first")
	second := layers.NewRelu(2)
	second.SetName("second")
	n, err := layers.Join(input, first, second)
	require.NoError(t, err)

	tail, err := n.Start("first")
	require.NoError(t, err)
	require.Equal(t, 2, tail.NumLayers())
	require.Equal(t, []layers.Layer{first}, tail.InputLayers())
	require.Equal(t, []layers.Layer{second}, tail.OutputLayers())

	head, err := n.End(first)
	require.NoError(t, err)
	require.Equal(t, 2, head.NumLayers())
	require.Equal(t, []layers.Layer{input}, head.InputLayers())
	require.Equal(t, []layers.Layer{first}, head.OutputLayers())

	// Slicing shares layer instances, it does not copy them.
	require.True(t, tail.Contains(first))
	require.True(t, head.Contains(first))

	_, err = n.Start("no-such-layer")
	var notFound *layers.NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = n.Start(layers.NewIdentity())
	require.Error(t, err)
	require.Contains(t, err.Error(), "is not used in the network")
}

func TestInputAndOutputShapes(t *testing.T) {
	n, err := layers.Join(
		layers.NewInput(784),
		layers.NewRelu(500),
		layers.NewSoftmax(10),
	)
	require.NoError(t, err)

	require.Equal(t, []shapes.Shape{shapes.Make(shapes.UnknownDim, 784)}, n.InputShapes())
	outputs, err := n.OutputShapes()
	require.NoError(t, err)
	require.Equal(t, []shapes.Shape{shapes.Make(shapes.UnknownDim, 10)}, outputs)
	require.Equal(t, "(?, 784) -> [... 3 layers ...] -> (?, 10)", n.String())
}

func TestInferOutputShapes(t *testing.T) {
	n, err := layers.Join(layers.NewInput(shapes.UnknownDim), layers.NewLinear(3))
	require.NoError(t, err)

	// The declared input leaves the feature axis open; a concrete input shape
	// tightens it without touching the declaration.
	inferred, err := n.InferOutputShapes(shapes.Make(32, 16))
	require.NoError(t, err)
	require.Equal(t, []shapes.Shape{shapes.Make(32, 3)}, inferred)

	require.Equal(t, []shapes.Shape{shapes.Make(shapes.UnknownDim, shapes.UnknownDim)}, n.InputShapes())
}

func TestInferOutputShapesCountMismatch(t *testing.T) {
	n, err := layers.Join(layers.NewInput(4), layers.NewTanh())
	require.NoError(t, err)
	_, err = n.InferOutputShapes(shapes.Make(1, 4), shapes.Make(1, 4))
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 input layer(s), but 2 input(s) were provided")
}

func TestEmptyNetwork(t *testing.T) {
	n, err := layers.NewNetwork(layers.NewAdjacency())
	require.NoError(t, err)
	require.Equal(t, 0, n.NumLayers())
	require.Equal(t, "[empty network]", n.String())
}

func TestErrorKindsSurviveWrapping(t *testing.T) {
	wrapped := errors.WithMessage(layers.Connectionf("boom"), "context")
	var connErr *layers.ConnectionError
	require.ErrorAs(t, wrapped, &connErr)
	require.Equal(t, "boom", connErr.Error())
}
