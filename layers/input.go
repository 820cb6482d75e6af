package layers

import (
	"github.com/AndyB66/neupy/backends"
	"github.com/AndyB66/neupy/types/shapes"
)

// Input declares a network's input: the shape of the features per sample, with
// the batch axis implicit (always unknown).
type Input struct {
	BaseLayer
}

// NewInput creates an input layer expecting samples of the given shape,
// excluding the batch axis: NewInput(784) declares a (?, 784) input,
// NewInput(28, 28, 1) a (?, 28, 28, 1) one. Dimensions may be
// shapes.UnknownDim.
func NewInput(dimensions ...int) *Input {
	l := &Input{}
	l.Init(l, "")
	l.inputShape = shapes.Make(shapes.UnknownDim).Concatenate(shapes.Make(dimensions...))
	return l
}

// OutputShape validates the incoming shape against the declared one and
// returns their merge, tightening unknown dimensions.
func (l *Input) OutputShape(inputs ...shapes.Shape) (shapes.Shape, error) {
	if err := expectInputs(l, 1, len(inputs)); err != nil {
		return shapes.Shape{}, err
	}
	merged, err := l.inputShape.Merge(inputs[0])
	if err != nil {
		return shapes.Shape{}, Connectionf(
			"input layer %q got an unexpected input shape: received %s, expected %s",
			l.name, inputs[0], l.inputShape)
	}
	return merged, nil
}

// Output passes the tensor through unchanged after checking it against the
// declared shape.
func (l *Input) Output(b backends.Backend, training bool, inputs ...backends.Tensor) (backends.Tensor, error) {
	if err := expectInputs(l, 1, len(inputs)); err != nil {
		return nil, err
	}
	if !l.inputShape.Compatible(inputs[0].Shape()) {
		return nil, Connectionf(
			"input layer %q got a tensor of shape %s, expected %s",
			l.name, inputs[0].Shape(), l.inputShape)
	}
	return inputs[0], nil
}
