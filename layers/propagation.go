package layers

import (
	"github.com/AndyB66/neupy/backends"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Propagate walks the network in topological order, applying the given
// operation to every layer: input layers receive their fed value, every other
// layer receives the already-computed outputs of its direct predecessors, in
// backward-adjacency order. It returns the per-layer results.
//
// feed must assign a value to every input layer of the network; build it with
// FeedForward, FeedNamed or FeedLayers. op labels the operation in error
// messages ("output shape", "output", ...).
//
// A failure inside a layer -- a returned error or a panic thrown by the
// backend -- aborts the walk and is reported with the layer and operation
// attached, without losing the original error kind.
//
// Propagate is a free function rather than a method because Go methods cannot
// be generic; the same mechanics serve the shape-inference pass
// (T=shapes.Shape) and the value pass (T=backends.Tensor).
func Propagate[T any](n *Network, feed map[Layer]T, op string,
	apply func(layer Layer, inputs []T) (T, error)) (map[Layer]T, error) {

	outputs := make(map[Layer]T, n.NumLayers())
	for _, layer := range n.InputLayers() {
		value, found := feed[layer]
		if !found {
			return nil, errors.Errorf("no value fed for input layer %q", layer.Name())
		}
		result, err := passThroughLayer(layer, op, []T{value}, apply)
		if err != nil {
			return nil, err
		}
		outputs[layer] = result
	}

	backward := n.backward()
	for _, layer := range n.Layers() {
		if _, done := outputs[layer]; done {
			continue
		}
		predecessors := backward.Edges(layer)
		inputs := make([]T, len(predecessors))
		for ii, pred := range predecessors {
			inputs[ii] = outputs[pred]
		}
		result, err := passThroughLayer(layer, op, inputs, apply)
		if err != nil {
			return nil, err
		}
		outputs[layer] = result
	}
	return outputs, nil
}

// passThroughLayer invokes the operation on one layer, converting backend
// panics into errors and attaching layer/operation context to any failure. The
// original error keeps its kind: errors.As still finds it through the wrapping.
func passThroughLayer[T any](layer Layer, op string, inputs []T,
	apply func(layer Layer, inputs []T) (T, error)) (result T, err error) {
	caught := exceptions.TryCatch[error](func() {
		result, err = apply(layer, inputs)
	})
	if caught != nil {
		err = caught
	}
	if err != nil {
		err = errors.WithMessagef(err,
			"exception occurred while propagating data through the operation %q of layer %q", op, layer.Name())
	}
	return result, err
}

// FeedForward assigns positional values to the network's input layers, in
// InputLayers order. Fails when the count does not match.
func FeedForward[T any](n *Network, values []T) (map[Layer]T, error) {
	inputs := n.InputLayers()
	if len(values) != len(inputs) {
		return nil, errors.Errorf("network has %d input layer(s), but %d input(s) were provided",
			len(inputs), len(values))
	}
	feed := make(map[Layer]T, len(values))
	for ii, layer := range inputs {
		feed[layer] = values[ii]
	}
	return feed, nil
}

// FeedLayers validates a by-layer feed: every key must be a member of the
// network and one of its input layers.
func FeedLayers[T any](n *Network, values map[Layer]T) (map[Layer]T, error) {
	feed := make(map[Layer]T, len(values))
	for layer, value := range values {
		if !n.Contains(layer) {
			return nil, errors.Errorf("layer %q does not appear in the network", layer.Name())
		}
		if len(n.backward().Edges(layer)) != 0 {
			return nil, errors.Errorf("layer %q is not an input layer in the network", layer.Name())
		}
		feed[layer] = value
	}
	return feed, nil
}

// FeedNamed resolves a by-name feed (see FeedLayers). Name lookups fail with
// *NotFoundError when missing or ambiguous.
func FeedNamed[T any](n *Network, values map[string]T) (map[Layer]T, error) {
	byLayer := make(map[Layer]T, len(values))
	for name, value := range values {
		layer, err := n.LayerByName(name)
		if err != nil {
			return nil, err
		}
		byLayer[layer] = value
	}
	return FeedLayers(n, byLayer)
}

// OutputShapesPerLayer runs the shape-inference pass once, feeding each input
// layer its own declared input shape, and memoizes the per-layer output
// shapes. This is the resolution used by variable creation and by connection
// validation.
func (n *Network) OutputShapesPerLayer() (map[Layer]shapes.Shape, error) {
	result := n.shapesMemo.Get(func() shapesPerLayer {
		declared := make([]shapes.Shape, len(n.InputLayers()))
		for ii, layer := range n.InputLayers() {
			declared[ii] = layer.InputShape()
		}
		perLayer, err := n.inferShapes(declared)
		return shapesPerLayer{shapes: perLayer, err: err}
	})
	return result.shapes, result.err
}

func (n *Network) inferShapes(inputs []shapes.Shape) (map[Layer]shapes.Shape, error) {
	feed, err := FeedForward(n, inputs)
	if err != nil {
		return nil, err
	}
	return Propagate(n, feed, "output shape",
		func(layer Layer, inputs []shapes.Shape) (shapes.Shape, error) {
			return layer.OutputShape(inputs...)
		})
}

// OutputShapes returns the inferred output shape of each output layer, in
// order, using the input layers' declared shapes.
func (n *Network) OutputShapes() ([]shapes.Shape, error) {
	perLayer, err := n.OutputShapesPerLayer()
	if err != nil {
		return nil, err
	}
	result := make([]shapes.Shape, len(n.OutputLayers()))
	for ii, layer := range n.OutputLayers() {
		result[ii] = perLayer[layer]
	}
	return result, nil
}

// InferOutputShapes runs the pure shape-inference pass with the given input
// shapes (positional, matching InputLayers order) and returns the output
// layers' shapes.
func (n *Network) InferOutputShapes(inputs ...shapes.Shape) ([]shapes.Shape, error) {
	perLayer, err := n.inferShapes(inputs)
	if err != nil {
		return nil, err
	}
	result := make([]shapes.Shape, len(n.OutputLayers()))
	for ii, layer := range n.OutputLayers() {
		result[ii] = perLayer[layer]
	}
	return result, nil
}

// CreateVariables runs the one-time variable-creation pass: for each layer in
// topological order that is not frozen yet, it resolves the layer's input
// shape(s) from its predecessors' inferred output shapes (or from its own
// declared input shape when it has no predecessors), creates the variables and
// marks the layer frozen.
//
// The pass is idempotent per layer instance: layers shared between several
// networks (through slicing or merging) get their variables created exactly
// once, whichever network runs the pass first.
func (n *Network) CreateVariables(b backends.Backend) error {
	perLayer, err := n.OutputShapesPerLayer()
	if err != nil {
		return err
	}
	backward := n.backward()
	for _, layer := range n.Layers() {
		if layer.Frozen() {
			continue
		}
		inputShapes := []shapes.Shape{layer.InputShape()}
		if predecessors := backward.Edges(layer); len(predecessors) > 0 {
			inputShapes = make([]shapes.Shape, len(predecessors))
			for ii, pred := range predecessors {
				inputShapes[ii] = perLayer[pred]
			}
		}
		if len(inputShapes) == 1 {
			if err := layer.SetInputShape(inputShapes[0]); err != nil {
				return err
			}
		}
		if err := layer.CreateVariables(b, inputShapes...); err != nil {
			return errors.WithMessagef(err, "creating variables of layer %q", layer.Name())
		}
		layer.base().frozen = true
		if klog.V(2).Enabled() && len(layer.Variables()) > 0 {
			klog.Infof("created %d variable(s) for layer %q", len(layer.Variables()), layer.Name())
		}
	}
	return nil
}

// Output propagates the given input tensors (positional, matching InputLayers
// order) through the network and returns the output layers' tensors, in order.
// Variables are created on first use.
func (n *Network) Output(b backends.Backend, training bool, inputs ...backends.Tensor) ([]backends.Tensor, error) {
	feed, err := FeedForward(n, inputs)
	if err != nil {
		return nil, err
	}
	return n.output(b, training, feed)
}

// OutputNamed is Output with a by-name feed instead of a positional one.
func (n *Network) OutputNamed(b backends.Backend, training bool, inputs map[string]backends.Tensor) ([]backends.Tensor, error) {
	feed, err := FeedNamed(n, inputs)
	if err != nil {
		return nil, err
	}
	return n.output(b, training, feed)
}

func (n *Network) output(b backends.Backend, training bool, feed map[Layer]backends.Tensor) ([]backends.Tensor, error) {
	if err := n.CreateVariables(b); err != nil {
		return nil, err
	}
	perLayer, err := Propagate(n, feed, "output",
		func(layer Layer, inputs []backends.Tensor) (backends.Tensor, error) {
			return layer.Output(b, training, inputs...)
		})
	if err != nil {
		return nil, err
	}
	result := make([]backends.Tensor, len(n.OutputLayers()))
	for ii, layer := range n.OutputLayers() {
		result[ii] = perLayer[layer]
	}
	return result, nil
}

// Predict is Output in inference mode.
func (n *Network) Predict(b backends.Backend, inputs ...backends.Tensor) ([]backends.Tensor, error) {
	return n.Output(b, false, inputs...)
}
