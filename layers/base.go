// Package layers implements the layer-graph engine: composable layers, the
// directed acyclic Network they form, shape inference, one-time variable
// creation and tensor propagation over an injected numeric backend.
//
// Networks are built with explicit composition operators:
//
//	network, err := layers.Join(
//		layers.NewInput(784),
//		layers.NewRelu(500),
//		layers.NewSoftmax(10),
//	)
//
// Join chains graphs sequentially (every output of the left side feeds every
// input of the right side, validated for shape compatibility), Parallel puts
// graphs side by side without connecting them, and Merge is the primitive both
// are built on. A single layer lifts to a single-node network, so layers and
// networks compose freely.
//
// A Network is immutable after construction: composition and slicing always
// return new Network instances. Layer instances, on the other hand, are shared
// between all the networks that reference them -- their mutable state (input
// shape, variables, frozen flag) lives on the instance, which is what makes
// variable creation idempotent across overlapping network views.
package layers

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/AndyB66/neupy/backends"
	"github.com/AndyB66/neupy/initializers"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/pkg/errors"
)

// Layer is the unit of graph composition. The propagation engine drives every
// layer through the same three capabilities: shape inference (OutputShape),
// value computation (Output) and one-time parameter creation (CreateVariables).
//
// Implementations embed BaseLayer, which provides identity, naming, the frozen
// flag and variable bookkeeping.
type Layer interface {
	Composable

	// Name of the layer, unique within a network by convention. Auto-generated
	// from the type name when not set explicitly.
	Name() string

	// SetName renames the layer; rename before registering it in any network.
	SetName(name string)

	// InputShape declared or resolved so far. Unranked for layers that have not
	// been connected yet.
	InputShape() shapes.Shape

	// SetInputShape merges the given shape into the declared input shape. It
	// fails with a *ConnectionError if the two are incompatible.
	SetInputShape(shape shapes.Shape) error

	// OutputShape computes the layer's output shape from its input shapes, one
	// per predecessor. Fails with *ConnectionError on incompatible inputs.
	OutputShape(inputs ...shapes.Shape) (shapes.Shape, error)

	// Output computes the layer's value from the predecessors' outputs.
	// training toggles training-time behavior (e.g. batch statistics).
	Output(b backends.Backend, training bool, inputs ...backends.Tensor) (backends.Tensor, error)

	// CreateVariables instantiates the layer's parameters given its resolved
	// input shape(s). Called at most once per layer instance, guarded by the
	// frozen flag.
	CreateVariables(b backends.Backend, inputs ...shapes.Shape) error

	// Frozen reports whether variables were already created.
	Frozen() bool

	// Variables returns the layer parameters in creation order.
	Variables() []*Variable

	base() *BaseLayer
}

// Composable is anything that can take part in graph composition: a Layer or a
// *Network.
type Composable interface {
	toNetwork() (*Network, error)
}

// Variable is a named layer parameter holding a materialized tensor.
type Variable struct {
	// Name of the variable within its layer, e.g. "weight" or "gamma".
	Name string

	// Value is the current materialized tensor. Optimizers replace it in place.
	Value backends.Tensor

	// Trainable indicates whether the variable should be touched by
	// optimizers. Running statistics are typically not trainable.
	Trainable bool
}

// BaseLayer carries the state shared by all layer implementations. Embed it
// and call Init from the layer constructor.
type BaseLayer struct {
	self       Layer
	name       string
	inputShape shapes.Shape
	frozen     bool
	variables  []*Variable
	varsByName map[string]*Variable
}

// Init wires the embedded BaseLayer to its outermost layer value and assigns
// the name, auto-generating one ("relu-1", "batch-norm-2", ...) when empty.
// Every layer constructor must call it exactly once.
func (l *BaseLayer) Init(self Layer, name string) {
	l.self = self
	if name == "" {
		name = generateLayerName(self)
	}
	l.name = name
	l.inputShape = shapes.Unranked()
	l.varsByName = make(map[string]*Variable)
}

// Name of the layer.
func (l *BaseLayer) Name() string { return l.name }

// SetName renames the layer. Rename before registering the layer in any
// network: name lookups resolve against the current name.
func (l *BaseLayer) SetName(name string) { l.name = name }

// InputShape returns a copy of the declared (or so-far resolved) input shape.
func (l *BaseLayer) InputShape() shapes.Shape { return l.inputShape.Clone() }

// SetInputShape merges shape into the current input shape, tightening unknown
// dimensions. Fails with *ConnectionError if the shapes are incompatible.
func (l *BaseLayer) SetInputShape(shape shapes.Shape) error {
	merged, err := l.inputShape.Merge(shape)
	if err != nil {
		return Connectionf(
			"cannot update input shape of layer %q: new shape %s is incompatible with current shape %s",
			l.name, shape, l.inputShape)
	}
	l.inputShape = merged
	return nil
}

// OutputShape default: the output shape is unknown until a concrete layer says
// otherwise.
func (l *BaseLayer) OutputShape(inputs ...shapes.Shape) (shapes.Shape, error) {
	return shapes.Unranked(), nil
}

// Output default: concrete layers must implement their own computation.
func (l *BaseLayer) Output(b backends.Backend, training bool, inputs ...backends.Tensor) (backends.Tensor, error) {
	return nil, errors.Errorf("layer %q does not implement Output", l.name)
}

// CreateVariables default: layers without parameters have nothing to create.
func (l *BaseLayer) CreateVariables(b backends.Backend, inputs ...shapes.Shape) error {
	return nil
}

// Frozen reports whether the one-time variable-creation pass already ran for
// this layer instance.
func (l *BaseLayer) Frozen() bool { return l.frozen }

// Variables returns the layer parameters in creation order.
func (l *BaseLayer) Variables() []*Variable { return l.variables }

// GetVariable returns the named parameter, or nil.
func (l *BaseLayer) GetVariable(name string) *Variable { return l.varsByName[name] }

// AddVariable materializes and registers a parameter with the given
// initializer. The shape must be fully defined.
func (l *BaseLayer) AddVariable(b backends.Backend, name string, shape shapes.Shape,
	init initializers.VariableInitializer, trainable bool) (*Variable, error) {
	if !shape.IsFullyDefined() {
		return nil, errors.Errorf(
			"cannot create variable %q of layer %q with partially unknown shape %s", name, l.name, shape)
	}
	if _, found := l.varsByName[name]; found {
		return nil, errors.Errorf("layer %q already has a variable named %q", l.name, name)
	}
	v := &Variable{Name: name, Value: init(b, shape), Trainable: trainable}
	l.variables = append(l.variables, v)
	l.varsByName[name] = v
	return v, nil
}

func (l *BaseLayer) base() *BaseLayer { return l }

// toNetwork lifts the layer into a single-node network.
func (l *BaseLayer) toNetwork() (*Network, error) {
	adjacency := newAdjacency()
	adjacency.Add(l.self)
	return NewNetwork(adjacency)
}

var (
	muNameCounters sync.Mutex
	nameCounters   = make(map[string]int)
)

// generateLayerName builds "kebab-cased-type-N" with a per-type counter, e.g.
// the second BatchNorm ever created is "batch-norm-2".
func generateLayerName(layer Layer) string {
	typeName := reflect.TypeOf(layer).Elem().Name()

	muNameCounters.Lock()
	nameCounters[typeName]++
	id := nameCounters[typeName]
	muNameCounters.Unlock()

	var sb strings.Builder
	runes := []rune(typeName)
	for ii, r := range runes {
		if unicode.IsUpper(r) && ii > 0 && ii+1 < len(runes) && unicode.IsLower(runes[ii+1]) {
			sb.WriteRune('-')
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String() + "-" + strconv.Itoa(id)
}
