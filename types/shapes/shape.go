// Package shapes defines Shape and associated tools.
//
// Shape represents the symbolic shape of a layer's input or output: an ordered
// sequence of dimensions, each either a concrete positive size or UnknownDim.
// A Shape may also have its rank unknown altogether (see Unranked), which is the
// state of most layers before they are connected to an input.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a tensor.
//   - Axis: the index of a dimension. Negative axes count from the end, so
//     axis=-1 refers to the last axis.
//   - Dimension: the size of one axis, or UnknownDim when it is not yet
//     resolved (e.g. the batch axis).
//
// ## Compatibility and merging
//
// Two shapes are compatible when, axis by axis, the dimensions are either equal
// or at least one of them is unknown; an unranked shape is compatible with
// everything. Merging two compatible shapes picks the more specific dimension
// per axis, so repeated merges gradually tighten unknowns as the network learns
// more about its inputs. This permissive rule is deliberate and mirrors how
// symbolic tensor frameworks treat partially-defined shapes.
package shapes

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// UnknownDim marks an axis whose dimension is not (yet) known.
const UnknownDim = -1

// Shape represents the symbolic shape of a layer input or output.
//
// Use Make to create a ranked shape and Unranked for a shape whose rank is
// still unknown. The zero value is a valid scalar (rank-0) shape.
type Shape struct {
	// Dimensions of each axis, UnknownDim for unresolved ones.
	Dimensions []int

	// Unranked marks a shape whose rank itself is unknown. Dimensions must be
	// empty in that case.
	Unranked bool
}

// Make returns a ranked Shape with the given dimensions. Each dimension must be
// positive or UnknownDim.
func Make(dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim <= 0 && dim != UnknownDim {
			exceptions.Panicf("shapes.Make(%v): dimensions must be positive or UnknownDim", dimensions)
		}
	}
	return s
}

// Unranked returns a shape whose rank is unknown. It is compatible with any
// other shape.
func Unranked() Shape {
	return Shape{Unranked: true}
}

// Rank of the shape, that is, the number of axes. Returns -1 for unranked
// shapes.
func (s Shape) Rank() int {
	if s.Unranked {
		return -1
	}
	return len(s.Dimensions)
}

// IsFullyDefined returns whether the rank and every dimension are known.
func (s Shape) IsFullyDefined() bool {
	if s.Unranked {
		return false
	}
	return !slices.Contains(s.Dimensions, UnknownDim)
}

// Dim returns the dimension of the given axis. axis can take negative numbers,
// in which case it counts from the end -- so axis=-1 refers to the last axis.
// Like with slice indexing, it panics for an out-of-bound axis or if the shape
// is unranked.
func (s Shape) Dim(axis int) int {
	if s.Unranked {
		exceptions.Panicf("Shape.Dim(%d) on an unranked shape", axis)
	}
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// HasShape is satisfied by anything with an associated Shape -- tensors, layers
// and Shape itself.
type HasShape interface {
	Shape() Shape
}

// Size returns the number of elements a tensor of this shape holds: the product
// of all dimensions. Returns -1 if any dimension (or the rank) is unknown.
func (s Shape) Size() int {
	if !s.IsFullyDefined() {
		return -1
	}
	size := 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return size
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{Dimensions: slices.Clone(s.Dimensions), Unranked: s.Unranked}
}

// Equal compares two shapes for strict equality: same rank and the exact same
// dimensions, unknowns included.
func (s Shape) Equal(other Shape) bool {
	if s.Unranked || other.Unranked {
		return s.Unranked == other.Unranked
	}
	return slices.Equal(s.Dimensions, other.Dimensions)
}

// Compatible returns whether the two shapes could refer to the same concrete
// tensor shape: unranked shapes are compatible with anything, and ranked shapes
// must have the same rank with every pair of dimensions either equal or with at
// least one of them unknown.
func (s Shape) Compatible(other Shape) bool {
	if s.Unranked || other.Unranked {
		return true
	}
	if s.Rank() != other.Rank() {
		return false
	}
	for axis, dim := range s.Dimensions {
		otherDim := other.Dimensions[axis]
		if dim != otherDim && dim != UnknownDim && otherDim != UnknownDim {
			return false
		}
	}
	return true
}

// Merge combines two compatible shapes into the most specific shape both agree
// on: per axis it keeps the known dimension if the other is unknown. Merging
// with an unranked shape returns the other shape unchanged. Returns an error if
// the shapes are incompatible.
func (s Shape) Merge(other Shape) (Shape, error) {
	if !s.Compatible(other) {
		return Shape{}, errors.Errorf("shapes %s and %s are incompatible", s, other)
	}
	if s.Unranked {
		return other.Clone(), nil
	}
	if other.Unranked {
		return s.Clone(), nil
	}
	merged := Shape{Dimensions: make([]int, s.Rank())}
	for axis, dim := range s.Dimensions {
		if dim == UnknownDim {
			dim = other.Dimensions[axis]
		}
		merged.Dimensions[axis] = dim
	}
	return merged, nil
}

// Concatenate returns a shape with the axes of s followed by the axes of other.
// If either shape is unranked the result is unranked.
func (s Shape) Concatenate(other Shape) Shape {
	if s.Unranked || other.Unranked {
		return Unranked()
	}
	joined := Shape{Dimensions: make([]int, 0, s.Rank()+other.Rank())}
	joined.Dimensions = append(joined.Dimensions, s.Dimensions...)
	joined.Dimensions = append(joined.Dimensions, other.Dimensions...)
	return joined
}

// String implements stringer, pretty-prints the shape: "(?, 4)" for a ranked
// shape with an unknown batch axis, "<unknown>" for an unranked one.
func (s Shape) String() string {
	if s.Unranked {
		return "<unknown>"
	}
	parts := make([]string, len(s.Dimensions))
	for axis, dim := range s.Dimensions {
		if dim == UnknownDim {
			parts[axis] = "?"
		} else {
			parts[axis] = strconv.Itoa(dim)
		}
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}
