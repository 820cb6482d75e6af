package simplego

import (
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/gomlx/exceptions"
)

// Tensor is the simplego value representation: a fully defined shape plus the
// elements in row-major order.
type Tensor struct {
	shape shapes.Shape
	data  []float64
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// Flat returns the elements in row-major order. The slice aliases the tensor
// storage.
func (t *Tensor) Flat() []float64 { return t.data }

func newTensor(shape shapes.Shape) *Tensor {
	if !shape.IsFullyDefined() {
		exceptions.Panicf("simplego: cannot materialize a tensor with partially unknown shape %s", shape)
	}
	return &Tensor{shape: shape, data: make([]float64, shape.Size())}
}

// rowMajorStrides returns the strides of a row-major layout with the given
// dimensions.
func rowMajorStrides(dims []int) []int {
	strides := make([]int, len(dims))
	stride := 1
	for axis := len(dims) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= dims[axis]
	}
	return strides
}

// broadcastResultDims right-aligns the two shapes and returns the broadcast
// result dimensions. Panics if the shapes cannot be broadcast together.
func broadcastResultDims(a, b shapes.Shape) []int {
	rank := max(a.Rank(), b.Rank())
	dims := make([]int, rank)
	for axis := 1; axis <= rank; axis++ {
		dimA, dimB := 1, 1
		if axis <= a.Rank() {
			dimA = a.Dimensions[a.Rank()-axis]
		}
		if axis <= b.Rank() {
			dimB = b.Dimensions[b.Rank()-axis]
		}
		switch {
		case dimA == dimB:
			dims[rank-axis] = dimA
		case dimA == 1:
			dims[rank-axis] = dimB
		case dimB == 1:
			dims[rank-axis] = dimA
		default:
			exceptions.Panicf("simplego: cannot broadcast shapes %s and %s together", a, b)
		}
	}
	return dims
}

// broadcastStrides returns per-axis strides of t viewed as the broadcast result
// with the given dimensions: missing leading axes and stretched axes get
// stride 0.
func broadcastStrides(t *Tensor, resultDims []int) []int {
	strides := make([]int, len(resultDims))
	ownStrides := rowMajorStrides(t.shape.Dimensions)
	offset := len(resultDims) - t.shape.Rank()
	for axis := offset; axis < len(resultDims); axis++ {
		ownAxis := axis - offset
		if t.shape.Dimensions[ownAxis] == 1 && resultDims[axis] != 1 {
			strides[axis] = 0
		} else {
			strides[axis] = ownStrides[ownAxis]
		}
	}
	return strides
}

// coordinates decomposes a flat row-major index into per-axis coordinates.
func coordinates(flat int, strides []int, coords []int) {
	for axis, stride := range strides {
		if stride == 0 {
			coords[axis] = 0
			continue
		}
		coords[axis] = flat / stride
		flat %= stride
	}
}

func dot(coords, strides []int) int {
	sum := 0
	for axis, coord := range coords {
		sum += coord * strides[axis]
	}
	return sum
}
