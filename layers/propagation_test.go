package layers_test

import (
	"testing"

	"github.com/AndyB66/neupy/backends"
	_ "github.com/AndyB66/neupy/backends/simplego"
	"github.com/AndyB66/neupy/initializers"
	"github.com/AndyB66/neupy/layers"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/stretchr/testify/require"
)

// denseLayer creates a linear layer with all weights and biases set to
// constants, so propagation results can be computed by hand.
func denseLayer(units int, weight, bias float64) *layers.Linear {
	l := layers.NewLinear(units)
	l.WeightInit = initializers.Constant(weight)
	l.BiasInit = initializers.Constant(bias)
	return l
}

func TestPredict(t *testing.T) {
	b := backends.New()
	n, err := layers.Join(layers.NewInput(2), denseLayer(3, 2, 1))
	require.NoError(t, err)

	x := b.FromFlat([]float64{1, 2}, shapes.Make(1, 2))
	outputs, err := n.Predict(b, x)
	require.NoError(t, err)
	require.Len(t, outputs, 1)

	// Every output unit sees (1+2)*2 + 1.
	require.Equal(t, shapes.Make(1, 3), outputs[0].Shape())
	require.Equal(t, []float64{7, 7, 7}, outputs[0].Flat())
}

func TestOutputNamed(t *testing.T) {
	b := backends.New()
	input := layers.NewInput(2)
	input.SetName("pixels")
	n, err := layers.Join(input, denseLayer(1, 1, 0))
	require.NoError(t, err)

	x := b.FromFlat([]float64{3, 4}, shapes.Make(1, 2))
	outputs, err := n.OutputNamed(b, false, map[string]backends.Tensor{"pixels": x})
	require.NoError(t, err)
	require.Equal(t, []float64{7}, outputs[0].Flat())

	_, err = n.OutputNamed(b, false, map[string]backends.Tensor{"no-such-layer": x})
	var notFound *layers.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestFeedValidation(t *testing.T) {
	b := backends.New()
	input := layers.NewInput(2)
	hidden := denseLayer(2, 1, 0)
	n, err := layers.Join(input, hidden)
	require.NoError(t, err)

	x := b.FromFlat([]float64{1, 2}, shapes.Make(1, 2))
	_, err = n.Output(b, false, x, x)
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 input layer(s), but 2 input(s) were provided")

	_, err = layers.FeedLayers(n, map[layers.Layer]backends.Tensor{hidden: x})
	require.Error(t, err)
	require.Contains(t, err.Error(), "is not an input layer")

	_, err = layers.FeedLayers(n, map[layers.Layer]backends.Tensor{layers.NewIdentity(): x})
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not appear in the network")
}

func TestMultiInputPropagation(t *testing.T) {
	b := backends.New()
	left := layers.NewInput(2)
	right := layers.NewInput(2)
	branches, err := layers.Parallel(left, right)
	require.NoError(t, err)
	n, err := layers.Join(branches, layers.NewElementwise())
	require.NoError(t, err)

	feed, err := layers.FeedLayers(n, map[layers.Layer]backends.Tensor{
		left:  b.FromFlat([]float64{1, 2}, shapes.Make(1, 2)),
		right: b.FromFlat([]float64{10, 20}, shapes.Make(1, 2)),
	})
	require.NoError(t, err)
	require.NoError(t, n.CreateVariables(b))
	perLayer, err := layers.Propagate(n, feed, "output",
		func(layer layers.Layer, inputs []backends.Tensor) (backends.Tensor, error) {
			return layer.Output(b, false, inputs...)
		})
	require.NoError(t, err)
	sum := perLayer[n.OutputLayers()[0]]
	require.Equal(t, []float64{11, 22}, sum.Flat())
}

func TestPropagationWrapsLayerErrors(t *testing.T) {
	b := backends.New()
	input := layers.NewInput(3)
	input.SetName("vector")
	n, err := layers.Join(input, layers.NewIdentity())
	require.NoError(t, err)

	// A rank-1 tensor cannot satisfy the declared (?, 3) input.
	_, err = n.Predict(b, b.FromFlat([]float64{1, 2, 3}, shapes.Make(3)))
	require.Error(t, err)
	var connErr *layers.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Contains(t, err.Error(), `operation "output" of layer "vector"`)
}

func TestPropagationRecoversBackendPanics(t *testing.T) {
	b := backends.New()
	left := layers.NewInput(shapes.UnknownDim)
	right := layers.NewInput(shapes.UnknownDim)
	branches, err := layers.Parallel(left, right)
	require.NoError(t, err)
	merge := layers.NewElementwise()
	merge.SetName("sum")
	n, err := layers.Join(branches, merge)
	require.NoError(t, err)

	// Shape inference accepts the unknown feature axes; the concrete tensors
	// cannot be broadcast together and the backend throws at runtime.
	feed, err := layers.FeedLayers(n, map[layers.Layer]backends.Tensor{
		left:  b.FromFlat([]float64{1, 2}, shapes.Make(1, 2)),
		right: b.FromFlat([]float64{1, 2, 3}, shapes.Make(1, 3)),
	})
	require.NoError(t, err)
	require.NoError(t, n.CreateVariables(b))
	_, err = layers.Propagate(n, feed, "output",
		func(layer layers.Layer, inputs []backends.Tensor) (backends.Tensor, error) {
			return layer.Output(b, false, inputs...)
		})
	require.Error(t, err)
	require.Contains(t, err.Error(), `operation "output" of layer "sum"`)
}

func TestCreateVariablesIsIdempotent(t *testing.T) {
	b := backends.New()
	shared := denseLayer(4, 1, 0)
	first, err := layers.Join(layers.NewInput(2), shared)
	require.NoError(t, err)
	second, err := layers.Join(layers.NewInput(2), shared, denseLayer(1, 1, 0))
	require.NoError(t, err)

	require.False(t, shared.Frozen())
	require.NoError(t, first.CreateVariables(b))
	require.True(t, shared.Frozen())
	weight := shared.GetVariable("weight")
	require.NotNil(t, weight)

	// The second network shares the layer instance and skips it.
	require.NoError(t, second.CreateVariables(b))
	require.Same(t, weight, shared.GetVariable("weight"))
	require.Len(t, shared.Variables(), 2)
}

func TestParametersAndCounts(t *testing.T) {
	b := backends.New()
	n, err := layers.Join(layers.NewInput(2), denseLayer(3, 1, 0), denseLayer(4, 1, 0))
	require.NoError(t, err)
	require.NoError(t, n.CreateVariables(b))

	// (2*3 + 3) + (3*4 + 4)
	require.Equal(t, 25, n.NumParameters())
	require.Len(t, n.Parameters(), 4)
}

func TestVariableCreationFailsOnUnknownDimension(t *testing.T) {
	b := backends.New()
	n, err := layers.Join(layers.NewInput(shapes.UnknownDim), layers.NewLinear(3))
	require.NoError(t, err)
	err = n.CreateVariables(b)
	require.Error(t, err)
	require.Contains(t, err.Error(), "needs a known last input dimension")
}
