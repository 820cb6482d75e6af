package simplego

import (
	"math"
	"slices"

	"github.com/AndyB66/neupy/backends"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/gomlx/exceptions"
	"gonum.org/v1/gonum/mat"
)

func (b *Backend) binaryOp(lhs, rhs backends.Tensor, op func(x, y float64) float64) backends.Tensor {
	a, c := b.tensor(lhs), b.tensor(rhs)
	outDims := broadcastResultDims(a.shape, c.shape)
	out := newTensor(shapes.Make(outDims...))

	outStrides := rowMajorStrides(outDims)
	aStrides := broadcastStrides(a, outDims)
	cStrides := broadcastStrides(c, outDims)
	coords := make([]int, len(outDims))
	for flat := range out.data {
		coordinates(flat, outStrides, coords)
		out.data[flat] = op(a.data[dot(coords, aStrides)], c.data[dot(coords, cStrides)])
	}
	return out
}

func (b *Backend) unaryOp(operand backends.Tensor, op func(x float64) float64) backends.Tensor {
	a := b.tensor(operand)
	out := newTensor(a.shape.Clone())
	for flat, value := range a.data {
		out.data[flat] = op(value)
	}
	return out
}

// Add implements backends.Backend.
func (b *Backend) Add(lhs, rhs backends.Tensor) backends.Tensor {
	return b.binaryOp(lhs, rhs, func(x, y float64) float64 { return x + y })
}

// Sub implements backends.Backend.
func (b *Backend) Sub(lhs, rhs backends.Tensor) backends.Tensor {
	return b.binaryOp(lhs, rhs, func(x, y float64) float64 { return x - y })
}

// Mul implements backends.Backend.
func (b *Backend) Mul(lhs, rhs backends.Tensor) backends.Tensor {
	return b.binaryOp(lhs, rhs, func(x, y float64) float64 { return x * y })
}

// Div implements backends.Backend.
func (b *Backend) Div(lhs, rhs backends.Tensor) backends.Tensor {
	return b.binaryOp(lhs, rhs, func(x, y float64) float64 { return x / y })
}

// Maximum implements backends.Backend.
func (b *Backend) Maximum(lhs, rhs backends.Tensor) backends.Tensor {
	return b.binaryOp(lhs, rhs, math.Max)
}

// Exp implements backends.Backend.
func (b *Backend) Exp(operand backends.Tensor) backends.Tensor {
	return b.unaryOp(operand, math.Exp)
}

// Tanh implements backends.Backend.
func (b *Backend) Tanh(operand backends.Tensor) backends.Tensor {
	return b.unaryOp(operand, math.Tanh)
}

// Sqrt implements backends.Backend.
func (b *Backend) Sqrt(operand backends.Tensor) backends.Tensor {
	return b.unaryOp(operand, math.Sqrt)
}

// Pow implements backends.Backend.
func (b *Backend) Pow(operand backends.Tensor, exponent float64) backends.Tensor {
	return b.unaryOp(operand, func(x float64) float64 { return math.Pow(x, exponent) })
}

// MatMul implements backends.Backend.
func (b *Backend) MatMul(lhs, rhs backends.Tensor) backends.Tensor {
	a, c := b.tensor(lhs), b.tensor(rhs)
	if a.shape.Rank() != 2 || c.shape.Rank() != 2 {
		exceptions.Panicf("simplego: MatMul requires rank-2 operands, got %s and %s", a.shape, c.shape)
	}
	m, k := a.shape.Dim(0), a.shape.Dim(1)
	k2, n := c.shape.Dim(0), c.shape.Dim(1)
	if k != k2 {
		exceptions.Panicf("simplego: MatMul inner dimensions mismatch: %s x %s", a.shape, c.shape)
	}
	var result mat.Dense
	result.Mul(mat.NewDense(m, k, a.data), mat.NewDense(k2, n, c.data))
	out := newTensor(shapes.Make(m, n))
	copy(out.data, result.RawMatrix().Data)
	return out
}

func (b *Backend) reduce(operand backends.Tensor, axes []int, keepDims bool,
	initial float64, combine func(acc, value float64) float64,
	finish func(acc float64, count int) float64) backends.Tensor {
	a := b.tensor(operand)
	rank := a.shape.Rank()
	axes = normalizeAxes(axes, rank)

	outDims := make([]int, 0, rank)
	count := 1
	for axis, dim := range a.shape.Dimensions {
		if slices.Contains(axes, axis) {
			count *= dim
			if keepDims {
				outDims = append(outDims, 1)
			}
		} else {
			outDims = append(outDims, dim)
		}
	}
	out := newTensor(shapes.Make(outDims...))
	for flat := range out.data {
		out.data[flat] = initial
	}

	inStrides := rowMajorStrides(a.shape.Dimensions)
	outStrides := rowMajorStrides(outDims)
	coords := make([]int, rank)
	outCoords := make([]int, 0, len(outDims))
	for flat, value := range a.data {
		coordinates(flat, inStrides, coords)
		outCoords = outCoords[:0]
		for axis, coord := range coords {
			if slices.Contains(axes, axis) {
				if keepDims {
					outCoords = append(outCoords, 0)
				}
			} else {
				outCoords = append(outCoords, coord)
			}
		}
		outFlat := dot(outCoords, outStrides)
		out.data[outFlat] = combine(out.data[outFlat], value)
	}
	if finish != nil {
		for flat := range out.data {
			out.data[flat] = finish(out.data[flat], count)
		}
	}
	return out
}

// ReduceSum implements backends.Backend.
func (b *Backend) ReduceSum(operand backends.Tensor, axes []int, keepDims bool) backends.Tensor {
	return b.reduce(operand, axes, keepDims, 0,
		func(acc, value float64) float64 { return acc + value }, nil)
}

// ReduceMean implements backends.Backend.
func (b *Backend) ReduceMean(operand backends.Tensor, axes []int, keepDims bool) backends.Tensor {
	return b.reduce(operand, axes, keepDims, 0,
		func(acc, value float64) float64 { return acc + value },
		func(acc float64, count int) float64 { return acc / float64(count) })
}

// ReduceMax implements backends.Backend.
func (b *Backend) ReduceMax(operand backends.Tensor, axes []int, keepDims bool) backends.Tensor {
	return b.reduce(operand, axes, keepDims, math.Inf(-1), math.Max, nil)
}

// Slice implements backends.Backend.
func (b *Backend) Slice(operand backends.Tensor, axis, start, stop int) backends.Tensor {
	a := b.tensor(operand)
	axis = normalizeAxis(axis, a.shape.Rank())
	dim := a.shape.Dim(axis)
	if start < 0 || stop > dim || start >= stop {
		exceptions.Panicf("simplego: Slice range [%d, %d) invalid for axis %d of shape %s",
			start, stop, axis, a.shape)
	}
	outDims := slices.Clone(a.shape.Dimensions)
	outDims[axis] = stop - start
	out := newTensor(shapes.Make(outDims...))

	inStrides := rowMajorStrides(a.shape.Dimensions)
	outStrides := rowMajorStrides(outDims)
	coords := make([]int, len(outDims))
	for flat := range out.data {
		coordinates(flat, outStrides, coords)
		coords[axis] += start
		out.data[flat] = a.data[dot(coords, inStrides)]
	}
	return out
}

// Concat implements backends.Backend.
func (b *Backend) Concat(parts []backends.Tensor, axis int) backends.Tensor {
	if len(parts) == 0 {
		exceptions.Panicf("simplego: Concat of zero tensors")
	}
	first := b.tensor(parts[0])
	rank := first.shape.Rank()
	axis = normalizeAxis(axis, rank)

	outDims := slices.Clone(first.shape.Dimensions)
	for _, part := range parts[1:] {
		t := b.tensor(part)
		if t.shape.Rank() != rank {
			exceptions.Panicf("simplego: Concat rank mismatch: %s vs %s", first.shape, t.shape)
		}
		for otherAxis, dim := range t.shape.Dimensions {
			if otherAxis != axis && dim != outDims[otherAxis] {
				exceptions.Panicf("simplego: Concat dimensions mismatch on axis %d: %s vs %s",
					otherAxis, first.shape, t.shape)
			}
		}
		outDims[axis] += t.shape.Dimensions[axis]
	}
	out := newTensor(shapes.Make(outDims...))

	outStrides := rowMajorStrides(outDims)
	offset := 0
	coords := make([]int, rank)
	for _, part := range parts {
		t := b.tensor(part)
		inStrides := rowMajorStrides(t.shape.Dimensions)
		for flat, value := range t.data {
			coordinates(flat, inStrides, coords)
			coords[axis] += offset
			out.data[dot(coords, outStrides)] = value
			coords[axis] -= offset
		}
		offset += t.shape.Dimensions[axis]
	}
	return out
}
