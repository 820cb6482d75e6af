// Package initializers includes several weight initializers, to be used when a
// layer creates its variables. They implement the VariableInitializer type.
package initializers

import (
	"math"
	"math/rand/v2"

	"github.com/AndyB66/neupy/backends"
	"github.com/AndyB66/neupy/types/shapes"
)

// VariableInitializer builds a concrete tensor used as the initial value of a
// variable of the given shape.
type VariableInitializer func(b backends.Backend, shape shapes.Shape) backends.Tensor

// Zero initializes variables with zero.
func Zero(b backends.Backend, shape shapes.Shape) backends.Tensor {
	return b.Zeros(shape)
}

// One initializes variables with one.
func One(b backends.Backend, shape shapes.Shape) backends.Tensor {
	return b.Fill(1, shape)
}

// Constant returns an initializer that fills variables with the given value.
func Constant(value float64) VariableInitializer {
	return func(b backends.Backend, shape shapes.Shape) backends.Tensor {
		return b.Fill(value, shape)
	}
}

// NoSeed can be used with the random initializers for a non-deterministic seed.
const NoSeed = int64(0)

func newRng(seed int64) *rand.Rand {
	if seed == NoSeed {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), 0))
}

// RandomNormal returns an initializer that generates normally distributed
// values with the given standard deviation. Use seed for determinism, or
// NoSeed.
func RandomNormal(stddev float64, seed int64) VariableInitializer {
	rng := newRng(seed)
	return func(b backends.Backend, shape shapes.Shape) backends.Tensor {
		values := make([]float64, shape.Size())
		for ii := range values {
			values[ii] = rng.NormFloat64() * stddev
		}
		return b.FromFlat(values, shape)
	}
}

// RandomUniform returns an initializer that generates values uniformly
// distributed in [low, high).
func RandomUniform(low, high float64, seed int64) VariableInitializer {
	rng := newRng(seed)
	return func(b backends.Backend, shape shapes.Shape) backends.Tensor {
		values := make([]float64, shape.Size())
		for ii := range values {
			values[ii] = low + rng.Float64()*(high-low)
		}
		return b.FromFlat(values, shape)
	}
}

// fans estimates the fan-in and fan-out of a weight of the given shape: the
// first axis is taken as input units, the last as output units.
func fans(shape shapes.Shape) (fanIn, fanOut float64) {
	if shape.Rank() == 0 {
		return 1, 1
	}
	return float64(shape.Dim(0)), float64(shape.Dim(-1))
}

// XavierNormal returns the Glorot & Bengio normal initializer: stddev is
// sqrt(2 / (fanIn + fanOut)).
func XavierNormal(seed int64) VariableInitializer {
	rng := newRng(seed)
	return func(b backends.Backend, shape shapes.Shape) backends.Tensor {
		fanIn, fanOut := fans(shape)
		stddev := math.Sqrt(2.0 / (fanIn + fanOut))
		values := make([]float64, shape.Size())
		for ii := range values {
			values[ii] = rng.NormFloat64() * stddev
		}
		return b.FromFlat(values, shape)
	}
}

// HeNormal returns the He et al. normal initializer commonly paired with
// rectified linear units: stddev is sqrt(2 / fanIn).
func HeNormal(seed int64) VariableInitializer {
	rng := newRng(seed)
	return func(b backends.Backend, shape shapes.Shape) backends.Tensor {
		fanIn, _ := fans(shape)
		stddev := math.Sqrt(2.0 / fanIn)
		values := make([]float64, shape.Size())
		for ii := range values {
			values[ii] = rng.NormFloat64() * stddev
		}
		return b.FromFlat(values, shape)
	}
}
