package layers

import (
	"github.com/AndyB66/neupy/backends"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/pkg/errors"
)

// Elementwise combines several inputs into one by folding a binary operation
// over them, left to right. All input shapes must be compatible with each
// other; the output shape is their merge (unknown dimensions tightened by
// known ones).
type Elementwise struct {
	BaseLayer

	// Combine folds two tensors into one, e.g. backend addition. Defaults to
	// addition.
	Combine func(b backends.Backend, acc, x backends.Tensor) backends.Tensor
}

// NewElementwise creates a layer that sums its inputs elementwise. Set Combine
// to fold with a different operation.
func NewElementwise() *Elementwise {
	l := &Elementwise{
		Combine: func(b backends.Backend, acc, x backends.Tensor) backends.Tensor {
			return b.Add(acc, x)
		},
	}
	l.Init(l, "")
	return l
}

// OutputShape merges all input shapes into one; incompatible inputs are a
// connection error.
func (l *Elementwise) OutputShape(inputs ...shapes.Shape) (shapes.Shape, error) {
	if len(inputs) == 0 {
		return shapes.Shape{}, errors.Errorf("layer %q expects at least one input", l.name)
	}
	out := inputs[0].Clone()
	for _, input := range inputs[1:] {
		merged, err := out.Merge(input)
		if err != nil {
			return shapes.Shape{}, Connectionf(
				"layer %q needs inputs of the same shape, got %s and %s", l.name, out, input)
		}
		out = merged
	}
	return out, nil
}

// Output folds the combine operation over the inputs.
func (l *Elementwise) Output(b backends.Backend, training bool, inputs ...backends.Tensor) (backends.Tensor, error) {
	if len(inputs) == 0 {
		return nil, errors.Errorf("layer %q expects at least one input", l.name)
	}
	out := inputs[0]
	for _, x := range inputs[1:] {
		out = l.Combine(b, out, x)
	}
	return out, nil
}

// Concatenate joins several inputs along one axis. All inputs must have the
// same rank and compatible dimensions everywhere except the concatenation
// axis, which is summed up.
type Concatenate struct {
	BaseLayer

	// Axis along which the inputs are joined; negative values count from the
	// end.
	Axis int
}

// NewConcatenate creates a layer concatenating over the given axis, the last
// one if omitted.
func NewConcatenate(axis ...int) *Concatenate {
	l := &Concatenate{Axis: -1}
	if len(axis) > 0 {
		l.Axis = axis[0]
	}
	l.Init(l, "")
	return l
}

// OutputShape sums the concatenation axis across the inputs. An unknown
// dimension on that axis in any input makes the output axis unknown too.
func (l *Concatenate) OutputShape(inputs ...shapes.Shape) (shapes.Shape, error) {
	if len(inputs) == 0 {
		return shapes.Shape{}, errors.Errorf("layer %q expects at least one input", l.name)
	}
	for _, input := range inputs {
		if input.Unranked {
			return shapes.Unranked(), nil
		}
	}
	rank := inputs[0].Rank()
	axis := l.Axis
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return shapes.Shape{}, errors.Errorf(
			"layer %q cannot concatenate over axis %d of rank-%d inputs", l.name, l.Axis, rank)
	}

	out := inputs[0].Clone()
	for _, input := range inputs[1:] {
		if input.Rank() != rank {
			return shapes.Shape{}, Connectionf(
				"layer %q needs inputs of the same rank, got %s and %s", l.name, inputs[0], input)
		}
		for otherAxis := range rank {
			if otherAxis == axis {
				continue
			}
			this, other := out.Dim(otherAxis), input.Dim(otherAxis)
			if this != other && this != shapes.UnknownDim && other != shapes.UnknownDim {
				return shapes.Shape{}, Connectionf(
					"layer %q needs matching dimensions outside of axis %d, got %s and %s",
					l.name, axis, inputs[0], input)
			}
			if this == shapes.UnknownDim {
				out.Dimensions[otherAxis] = other
			}
		}
		if out.Dim(axis) == shapes.UnknownDim || input.Dim(axis) == shapes.UnknownDim {
			out.Dimensions[axis] = shapes.UnknownDim
		} else {
			out.Dimensions[axis] += input.Dim(axis)
		}
	}
	return out, nil
}

// Output concatenates the input tensors.
func (l *Concatenate) Output(b backends.Backend, training bool, inputs ...backends.Tensor) (backends.Tensor, error) {
	if len(inputs) == 0 {
		return nil, errors.Errorf("layer %q expects at least one input", l.name)
	}
	return b.Concat(inputs, l.Axis), nil
}
