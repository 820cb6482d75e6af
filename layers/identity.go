package layers

import (
	"github.com/AndyB66/neupy/backends"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/pkg/errors"
)

// Identity passes its input through the layer without changes. Useful when
// defining residual connections.
type Identity struct {
	BaseLayer
}

// NewIdentity creates an identity layer.
func NewIdentity() *Identity {
	l := &Identity{}
	l.Init(l, "")
	return l
}

// OutputShape returns the input shape unchanged.
func (l *Identity) OutputShape(inputs ...shapes.Shape) (shapes.Shape, error) {
	if err := expectInputs(l, 1, len(inputs)); err != nil {
		return shapes.Shape{}, err
	}
	return inputs[0].Clone(), nil
}

// Output returns the input unchanged.
func (l *Identity) Output(b backends.Backend, training bool, inputs ...backends.Tensor) (backends.Tensor, error) {
	if err := expectInputs(l, 1, len(inputs)); err != nil {
		return nil, err
	}
	return inputs[0], nil
}

// expectInputs validates the number of values a layer was fed.
func expectInputs(layer Layer, want, got int) error {
	if want != got {
		return errors.Errorf("layer %q expects %d input(s), got %d", layer.Name(), want, got)
	}
	return nil
}
