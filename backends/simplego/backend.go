// Package simplego implements the reference backend: plain Go float64 tensors
// with trailing-axes broadcasting, matrix multiplication through gonum and the
// handful of reductions the layers need.
//
// It is registered under the name "go" and is the backend of choice for tests
// and small CPU-only models. Import it for the side effect of registration:
//
//	import _ "github.com/AndyB66/neupy/backends/simplego"
package simplego

import (
	"slices"

	"github.com/AndyB66/neupy/backends"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/gomlx/exceptions"
)

// BackendName is the name simplego registers itself under.
const BackendName = "go"

func init() {
	backends.Register(BackendName, func(config string) backends.Backend {
		_ = config // No configuration supported.
		return New()
	})
}

// Backend implements backends.Backend with plain Go computations.
type Backend struct{}

// New creates a simplego backend. It is stateless, all state lives in the
// tensors it creates.
func New() *Backend { return &Backend{} }

// Name implements backends.Backend.
func (b *Backend) Name() string { return BackendName }

// Description implements backends.Backend.
func (b *Backend) Description() string {
	return "simplego: pure Go reference backend (float64, CPU)"
}

// FromFlat implements backends.Backend.
func (b *Backend) FromFlat(values []float64, shape shapes.Shape) backends.Tensor {
	t := newTensor(shape)
	if len(values) != len(t.data) {
		exceptions.Panicf("simplego: FromFlat got %d values for shape %s (size %d)",
			len(values), shape, shape.Size())
	}
	copy(t.data, values)
	return t
}

// Fill implements backends.Backend.
func (b *Backend) Fill(value float64, shape shapes.Shape) backends.Tensor {
	t := newTensor(shape)
	for ii := range t.data {
		t.data[ii] = value
	}
	return t
}

// Zeros implements backends.Backend.
func (b *Backend) Zeros(shape shapes.Shape) backends.Tensor {
	return newTensor(shape)
}

func (b *Backend) tensor(t backends.Tensor) *Tensor {
	own, ok := t.(*Tensor)
	if !ok {
		exceptions.Panicf("simplego: got a tensor of type %T that was not created by this backend", t)
	}
	return own
}

func normalizeAxis(axis, rank int) int {
	adjusted := axis
	if adjusted < 0 {
		adjusted += rank
	}
	if adjusted < 0 || adjusted >= rank {
		exceptions.Panicf("simplego: axis %d out-of-bounds for rank %d", axis, rank)
	}
	return adjusted
}

// normalizeAxes validates and sorts the reduction axes; empty means all axes.
func normalizeAxes(axes []int, rank int) []int {
	if len(axes) == 0 {
		axes = make([]int, rank)
		for axis := range axes {
			axes[axis] = axis
		}
		return axes
	}
	normalized := make([]int, 0, len(axes))
	for _, axis := range axes {
		axis = normalizeAxis(axis, rank)
		if !slices.Contains(normalized, axis) {
			normalized = append(normalized, axis)
		}
	}
	slices.Sort(normalized)
	return normalized
}
