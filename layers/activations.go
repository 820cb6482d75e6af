package layers

import (
	"github.com/AndyB66/neupy/backends"
	"github.com/AndyB66/neupy/initializers"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/pkg/errors"
)

// ActivationLayer is the shared machinery of the activation layers: an
// optional dense projection (x*W + b, when units > 0) followed by the layer's
// nonlinearity. Relu(10) is therefore a 10-unit dense layer with a rectifier,
// while Relu() applies the rectifier alone.
type ActivationLayer struct {
	BaseLayer

	// WeightInit and BiasInit are used when the projection variables are
	// created; set them before the first propagation. Defaults depend on the
	// activation (He for rectifiers, Xavier otherwise).
	WeightInit initializers.VariableInitializer
	BiasInit   initializers.VariableInitializer

	units    int
	activate func(b backends.Backend, x backends.Tensor) backends.Tensor

	weight, bias *Variable
}

func (l *ActivationLayer) initActivation(self Layer, units []int,
	activate func(b backends.Backend, x backends.Tensor) backends.Tensor,
	weightInit initializers.VariableInitializer) {
	l.Init(self, "")
	if len(units) > 0 {
		l.units = units[0]
	}
	l.activate = activate
	l.WeightInit = weightInit
	l.BiasInit = initializers.Zero
}

// Units returns the size of the dense projection, or 0 when the layer applies
// only its nonlinearity.
func (l *ActivationLayer) Units() int { return l.units }

// OutputShape passes the input shape through, replacing the last axis with the
// number of units when the layer projects.
func (l *ActivationLayer) OutputShape(inputs ...shapes.Shape) (shapes.Shape, error) {
	if err := expectInputs(l.self, 1, len(inputs)); err != nil {
		return shapes.Shape{}, err
	}
	input := inputs[0]
	if l.units == 0 || input.Unranked {
		return input.Clone(), nil
	}
	if input.Rank() < 1 {
		return shapes.Shape{}, Connectionf(
			"layer %q projects to %d units and needs at least a rank-1 input, got %s",
			l.name, l.units, input)
	}
	out := input.Clone()
	out.Dimensions[out.Rank()-1] = l.units
	return out, nil
}

// CreateVariables creates the projection weight and bias when units > 0. The
// last axis of the input must be known by then.
func (l *ActivationLayer) CreateVariables(b backends.Backend, inputs ...shapes.Shape) error {
	if l.units == 0 {
		return nil
	}
	if err := expectInputs(l.self, 1, len(inputs)); err != nil {
		return err
	}
	input := inputs[0]
	if input.Unranked || input.Dim(-1) == shapes.UnknownDim {
		return errors.Errorf(
			"layer %q needs a known last input dimension to create its weight, got input shape %s",
			l.name, input)
	}
	var err error
	l.weight, err = l.AddVariable(b, "weight", shapes.Make(input.Dim(-1), l.units), l.WeightInit, true)
	if err != nil {
		return err
	}
	l.bias, err = l.AddVariable(b, "bias", shapes.Make(l.units), l.BiasInit, true)
	return err
}

// Output applies the optional projection and the nonlinearity.
func (l *ActivationLayer) Output(b backends.Backend, training bool, inputs ...backends.Tensor) (backends.Tensor, error) {
	if err := expectInputs(l.self, 1, len(inputs)); err != nil {
		return nil, err
	}
	x := inputs[0]
	if l.units > 0 {
		x = b.Add(b.MatMul(x, l.weight.Value), l.bias.Value)
	}
	if l.activate != nil {
		x = l.activate(b, x)
	}
	return x, nil
}

// Linear is an activation layer with an identity nonlinearity: with units it
// is a plain dense layer, without it passes values through.
type Linear struct {
	ActivationLayer
}

// NewLinear creates a linear layer, optionally projecting to the given number
// of units.
func NewLinear(units ...int) *Linear {
	l := &Linear{}
	l.initActivation(l, units, nil, initializers.XavierNormal(initializers.NoSeed))
	return l
}

// Relu applies the rectified linear unit, max(x, 0), optionally after a dense
// projection.
type Relu struct {
	ActivationLayer
}

// NewRelu creates a rectifier layer, optionally projecting to the given number
// of units.
func NewRelu(units ...int) *Relu {
	l := &Relu{}
	l.initActivation(l, units, func(b backends.Backend, x backends.Tensor) backends.Tensor {
		return b.Maximum(x, b.Zeros(shapes.Make()))
	}, initializers.HeNormal(initializers.NoSeed))
	return l
}

// Sigmoid applies the logistic function 1/(1+e^-x), optionally after a dense
// projection.
type Sigmoid struct {
	ActivationLayer
}

// NewSigmoid creates a sigmoid layer, optionally projecting to the given
// number of units.
func NewSigmoid(units ...int) *Sigmoid {
	l := &Sigmoid{}
	l.initActivation(l, units, func(b backends.Backend, x backends.Tensor) backends.Tensor {
		one := b.Fill(1, shapes.Make())
		return b.Div(one, b.Add(one, b.Exp(b.Sub(b.Zeros(shapes.Make()), x))))
	}, initializers.XavierNormal(initializers.NoSeed))
	return l
}

// Tanh applies the hyperbolic tangent, optionally after a dense projection.
type Tanh struct {
	ActivationLayer
}

// NewTanh creates a tanh layer, optionally projecting to the given number of
// units.
func NewTanh(units ...int) *Tanh {
	l := &Tanh{}
	l.initActivation(l, units, func(b backends.Backend, x backends.Tensor) backends.Tensor {
		return b.Tanh(x)
	}, initializers.XavierNormal(initializers.NoSeed))
	return l
}

// Softmax applies a numerically stabilized softmax over the last axis,
// optionally after a dense projection.
type Softmax struct {
	ActivationLayer
}

// NewSoftmax creates a softmax layer, optionally projecting to the given
// number of units.
func NewSoftmax(units ...int) *Softmax {
	l := &Softmax{}
	l.initActivation(l, units, func(b backends.Backend, x backends.Tensor) backends.Tensor {
		shifted := b.Exp(b.Sub(x, b.ReduceMax(x, []int{-1}, true)))
		return b.Div(shifted, b.ReduceSum(shifted, []int{-1}, true))
	}, initializers.XavierNormal(initializers.NoSeed))
	return l
}
