// Package optimizers implements gradient-based parameter update rules. An
// Optimizer consumes a list of network parameters and the matching gradients
// and replaces each parameter value in place.
//
// Gradients are computed by the caller; the optimizers only encode the update
// rule. Non-trainable variables (e.g. running statistics of a normalization
// layer) are skipped.
package optimizers

import (
	"github.com/AndyB66/neupy/backends"
	"github.com/AndyB66/neupy/layers"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/pkg/errors"
)

func scalar(b backends.Backend, value float64) backends.Tensor {
	return b.Fill(value, shapes.Make())
}

// Optimizer applies one update step. params and grads are parallel slices; a
// gradient is ignored when its parameter is not trainable.
type Optimizer interface {
	// Apply replaces each trainable parameter value with its updated tensor.
	Apply(b backends.Backend, params []*layers.Variable, grads []backends.Tensor) error
}

func validate(params []*layers.Variable, grads []backends.Tensor) error {
	if len(params) != len(grads) {
		return errors.Errorf("got %d parameter(s) but %d gradient(s)", len(params), len(grads))
	}
	for ii, param := range params {
		if param.Trainable && !param.Value.Shape().Equal(grads[ii].Shape()) {
			return errors.Errorf("gradient shape %s does not match parameter %q of shape %s",
				grads[ii].Shape(), param.Name, param.Value.Shape())
		}
	}
	return nil
}

// SGD is plain stochastic gradient descent:
//
//	param = param - step * grad
type SGD struct {
	// Step is the learning rate.
	Step float64
}

// NewSGD creates an SGD optimizer with the default step of 0.1.
func NewSGD() *SGD { return &SGD{Step: 0.1} }

// Apply implements Optimizer.
func (o *SGD) Apply(b backends.Backend, params []*layers.Variable, grads []backends.Tensor) error {
	if err := validate(params, grads); err != nil {
		return err
	}
	for ii, param := range params {
		if !param.Trainable {
			continue
		}
		param.Value = b.Sub(param.Value, b.Mul(scalar(b, o.Step), grads[ii]))
	}
	return nil
}

// Momentum is gradient descent with classical momentum:
//
//	velocity = momentum * velocity - step * grad
//	param    = param + velocity
type Momentum struct {
	// Step is the learning rate.
	Step float64

	// Momentum is the velocity decay factor, in [0, 1).
	Momentum float64

	velocities map[*layers.Variable]backends.Tensor
}

// NewMomentum creates a momentum optimizer with step 0.1 and momentum 0.9.
func NewMomentum() *Momentum {
	return &Momentum{Step: 0.1, Momentum: 0.9}
}

// Apply implements Optimizer.
func (o *Momentum) Apply(b backends.Backend, params []*layers.Variable, grads []backends.Tensor) error {
	if err := validate(params, grads); err != nil {
		return err
	}
	if o.velocities == nil {
		o.velocities = make(map[*layers.Variable]backends.Tensor)
	}
	for ii, param := range params {
		if !param.Trainable {
			continue
		}
		velocity, found := o.velocities[param]
		if !found {
			velocity = b.Zeros(param.Value.Shape().Clone())
		}
		velocity = b.Sub(
			b.Mul(scalar(b, o.Momentum), velocity),
			b.Mul(scalar(b, o.Step), grads[ii]))
		o.velocities[param] = velocity
		param.Value = b.Add(param.Value, velocity)
	}
	return nil
}

// Adagrad implements the adaptive subgradient method of Duchi, Hazan and
// Singer (http://www.jmlr.org/papers/volume12/duchi11a/duchi11a.pdf): the step
// of each parameter element shrinks with the accumulated squared gradients.
//
//	accum = accum + grad^2
//	param = param - step * grad / (sqrt(accum) + epsilon)
type Adagrad struct {
	// Step is the learning rate.
	Step float64

	// Epsilon avoids division by zero before any gradient accumulates.
	Epsilon float64

	accumulators map[*layers.Variable]backends.Tensor
}

// NewAdagrad creates an Adagrad optimizer with step 0.1 and epsilon 1e-7.
func NewAdagrad() *Adagrad {
	return &Adagrad{Step: 0.1, Epsilon: 1e-7}
}

// Apply implements Optimizer.
func (o *Adagrad) Apply(b backends.Backend, params []*layers.Variable, grads []backends.Tensor) error {
	if err := validate(params, grads); err != nil {
		return err
	}
	if o.accumulators == nil {
		o.accumulators = make(map[*layers.Variable]backends.Tensor)
	}
	for ii, param := range params {
		if !param.Trainable {
			continue
		}
		grad := grads[ii]
		accum, found := o.accumulators[param]
		if !found {
			accum = b.Zeros(param.Value.Shape().Clone())
		}
		accum = b.Add(accum, b.Mul(grad, grad))
		o.accumulators[param] = accum

		denominator := b.Add(b.Sqrt(accum), scalar(b, o.Epsilon))
		scaled := b.Div(b.Mul(scalar(b, o.Step), grad), denominator)
		param.Value = b.Sub(param.Value, scaled)
	}
	return nil
}
