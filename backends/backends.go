// Package backends defines the interface the numeric backend needs to
// implement to be used by the layer-graph engine.
//
// The engine treats the backend as opaque: it only ever asks it to materialize
// tensors, run elementwise / linear-algebra / reduction operations, and never
// depends on the concrete representation beyond shape queries.
//
// To simplify error handling, backend operations are expected to throw (panic)
// with an error carrying a stack trace in case of invalid arguments or shape
// mismatches. See package github.com/gomlx/exceptions. The propagation engine
// converts those panics back into errors with layer context attached.
package backends

import (
	"os"
	"strings"

	"github.com/AndyB66/neupy/types/shapes"
	"github.com/gomlx/exceptions"
)

// Tensor is an opaque handle to a concrete (materialized) value owned by a
// Backend. The engine only queries its shape; Flat is provided for reading
// results out (predictions, tests).
type Tensor interface {
	// Shape of the tensor. Always fully defined.
	Shape() shapes.Shape

	// Flat returns the values in row-major order. The returned slice aliases
	// the tensor storage and must not be modified by callers that want the
	// tensor to stay immutable.
	Flat() []float64
}

// Backend is the API a numeric backend needs to implement.
//
// All operations panic (see package documentation) on invalid arguments, e.g.
// shapes that cannot be broadcast together.
//
// Binary elementwise operations follow trailing-axes broadcasting: shapes are
// right-aligned and a dimension of 1 stretches to match the other operand.
type Backend interface {
	// Name returns the short name of the backend, e.g. "go" for the pure Go
	// reference implementation.
	Name() string

	// Description is a longer description of the Backend that can be used to
	// pretty-print.
	Description() string

	// FromFlat creates a tensor of the given (fully defined) shape from values
	// in row-major order. len(values) must equal shape.Size().
	FromFlat(values []float64, shape shapes.Shape) Tensor

	// Fill creates a tensor of the given shape with every element set to value.
	Fill(value float64, shape shapes.Shape) Tensor

	// Zeros is shorthand for Fill(0, shape).
	Zeros(shape shapes.Shape) Tensor

	// Add returns a+b, broadcasting.
	Add(a, b Tensor) Tensor
	// Sub returns a-b, broadcasting.
	Sub(a, b Tensor) Tensor
	// Mul returns a*b elementwise, broadcasting.
	Mul(a, b Tensor) Tensor
	// Div returns a/b elementwise, broadcasting.
	Div(a, b Tensor) Tensor
	// Maximum returns max(a, b) elementwise, broadcasting.
	Maximum(a, b Tensor) Tensor

	// Exp returns e^a elementwise.
	Exp(a Tensor) Tensor
	// Tanh returns tanh(a) elementwise.
	Tanh(a Tensor) Tensor
	// Sqrt returns the positive square root elementwise.
	Sqrt(a Tensor) Tensor
	// Pow raises every element to the given constant exponent.
	Pow(a Tensor, exponent float64) Tensor

	// MatMul multiplies two rank-2 tensors: (m, k) x (k, n) -> (m, n).
	MatMul(a, b Tensor) Tensor

	// ReduceSum sums over the given axes. With keepDims the reduced axes are
	// kept with dimension 1, otherwise they are dropped. Empty axes reduce
	// everything.
	ReduceSum(a Tensor, axes []int, keepDims bool) Tensor
	// ReduceMean averages over the given axes, same conventions as ReduceSum.
	ReduceMean(a Tensor, axes []int, keepDims bool) Tensor
	// ReduceMax takes the maximum over the given axes, same conventions as
	// ReduceSum.
	ReduceMax(a Tensor, axes []int, keepDims bool) Tensor

	// Slice takes the [start, stop) range of the given axis, keeping every
	// other axis whole.
	Slice(a Tensor, axis, start, stop int) Tensor
	// Concat concatenates the parts along the given axis.
	Concat(parts []Tensor, axis int) Tensor
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) Backend

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a backend with the given name and a constructor that takes a
// backend-specific configuration string.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// DefaultConfig is the backend configuration to use if none is specified by
// the environment. See NewWithConfig for the format.
var DefaultConfig string

// ConfigEnvVar is the environment variable with the default backend
// configuration: "<backend_name>:<backend_configuration>".
const ConfigEnvVar = "NEUPY_BACKEND"

// New returns a new default Backend.
//
// The default is:
//
// 1. The environment variable NEUPY_BACKEND, if defined.
// 2. The variable DefaultConfig, if set.
// 3. The first registered backend, with an empty configuration.
//
// It panics if no backend was registered.
func New() Backend {
	if config, found := os.LookupEnv(ConfigEnvVar); found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig creates a Backend from a configuration string formatted as
// "<backend_name>:<backend_configuration>". An empty name selects the first
// registered backend.
func NewWithConfig(config string) Backend {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered backends -- maybe import the default with import _ "github.com/AndyB66/neupy/backends/simplego"?`)
	}
	backendName := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		exceptions.Panicf("can't find backend %q for configuration %q given", backendName, config)
	}
	return constructor(backendConfig)
}
