package layers

import (
	"slices"

	"github.com/AndyB66/neupy/backends"
	"github.com/AndyB66/neupy/initializers"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/pkg/errors"
)

// BatchNorm is a batch-normalization layer.
//
// During training it normalizes by the batch mean and variance, reduced over
// Axes, and keeps exponential moving averages of both; during inference it
// normalizes by those stored averages. A learned scale (gamma) and offset
// (beta) are applied after normalization.
//
// Based on "Batch Normalization: Accelerating Deep Network Training by
// Reducing Internal Covariate Shift", https://arxiv.org/abs/1502.03167.
type BatchNorm struct {
	BaseLayer

	// Axes along which normalization is applied. Nil means all axes except the
	// last one: (0,) for a (batch, features) input, (0, 1, 2) for a 4D one.
	Axes []int

	// Epsilon is a small positive constant added to the variance to prevent
	// division by zero.
	Epsilon float64

	// Alpha is the update rate of the moving averages: the closer to one, the
	// more they depend on the last batches seen. Must be in (0, 1).
	Alpha float64

	// Initializers for the parameters; set before the first propagation.
	GammaInit, BetaInit  initializers.VariableInitializer
	MeanInit, InvStdInit initializers.VariableInitializer

	axes                    []int
	gamma, beta             *Variable
	runningMean, runningStd *Variable
}

// NewBatchNorm creates a batch-normalization layer with the default
// parameters: epsilon 1e-5, moving-average rate 0.1, gamma/inverse-stddev
// initialized to one and beta/mean to zero.
func NewBatchNorm() *BatchNorm {
	l := &BatchNorm{
		Epsilon:    1e-5,
		Alpha:      0.1,
		GammaInit:  initializers.One,
		BetaInit:   initializers.Zero,
		MeanInit:   initializers.Zero,
		InvStdInit: initializers.One,
	}
	l.Init(l, "")
	return l
}

// findOppositeAxes returns all axes in [0, rank) missing from axes. Fails when
// any axis is out of range.
func findOppositeAxes(axes []int, rank int) ([]int, error) {
	for _, axis := range axes {
		if axis < 0 || axis >= rank {
			return nil, errors.Errorf(
				"some axes have invalid values: axis value should be between 0 and %d", rank-1)
		}
	}
	var opposite []int
	for axis := range rank {
		if !slices.Contains(axes, axis) {
			opposite = append(opposite, axis)
		}
	}
	return opposite, nil
}

// OutputShape passes the input shape through unchanged.
func (l *BatchNorm) OutputShape(inputs ...shapes.Shape) (shapes.Shape, error) {
	if err := expectInputs(l, 1, len(inputs)); err != nil {
		return shapes.Shape{}, err
	}
	return inputs[0].Clone(), nil
}

// CreateVariables resolves the normalization axes and creates gamma, beta and
// the running statistics. Their shape keeps the input dimension on every axis
// not normalized over and is 1 elsewhere, so those dimensions must be known.
func (l *BatchNorm) CreateVariables(b backends.Backend, inputs ...shapes.Shape) error {
	if err := expectInputs(l, 1, len(inputs)); err != nil {
		return err
	}
	input := inputs[0]
	if input.Unranked {
		return errors.Errorf("cannot apply batch normalization on an input of unknown rank")
	}
	rank := input.Rank()
	l.axes = l.Axes
	if l.axes == nil {
		l.axes = make([]int, rank-1)
		for axis := range l.axes {
			l.axes[axis] = axis
		}
	}
	if len(l.axes) == 0 {
		return errors.Errorf(
			"batch normalization needs at least one normalization axis, input shape is %s", input)
	}
	opposite, err := findOppositeAxes(l.axes, rank)
	if err != nil {
		return err
	}

	paramDims := make([]int, rank)
	for axis := range rank {
		if slices.Contains(opposite, axis) {
			paramDims[axis] = input.Dim(axis)
		} else {
			paramDims[axis] = 1
		}
	}
	if unknown := slices.Index(paramDims, shapes.UnknownDim); unknown != -1 {
		return errors.Errorf(
			"cannot apply batch normalization on the axis with unknown size over dimension #%d", unknown)
	}
	paramShape := shapes.Make(paramDims...)

	if l.runningMean, err = l.AddVariable(b, "running-mean", paramShape, l.MeanInit, false); err != nil {
		return err
	}
	if l.runningStd, err = l.AddVariable(b, "running-inv-std", paramShape, l.InvStdInit, false); err != nil {
		return err
	}
	if l.gamma, err = l.AddVariable(b, "gamma", paramShape, l.GammaInit, true); err != nil {
		return err
	}
	l.beta, err = l.AddVariable(b, "beta", paramShape, l.BetaInit, true)
	return err
}

// Output normalizes the input: with batch statistics while training (updating
// the moving averages as a side effect), with the stored averages otherwise.
func (l *BatchNorm) Output(b backends.Backend, training bool, inputs ...backends.Tensor) (backends.Tensor, error) {
	if err := expectInputs(l, 1, len(inputs)); err != nil {
		return nil, err
	}
	x := inputs[0]

	var mean, invStd backends.Tensor
	if !training {
		mean, invStd = l.runningMean.Value, l.runningStd.Value
	} else {
		mean = b.ReduceMean(x, l.axes, true)
		centered := b.Sub(x, mean)
		variance := b.ReduceMean(b.Mul(centered, centered), l.axes, true)
		invStd = b.Div(b.Fill(1, shapes.Make()),
			b.Sqrt(b.Add(variance, b.Fill(l.Epsilon, shapes.Make()))))

		alpha := b.Fill(l.Alpha, shapes.Make())
		decay := b.Fill(1-l.Alpha, shapes.Make())
		l.runningStd.Value = b.Add(b.Mul(decay, l.runningStd.Value), b.Mul(alpha, invStd))
		l.runningMean.Value = b.Add(b.Mul(decay, l.runningMean.Value), b.Mul(alpha, mean))
	}

	normalized := b.Mul(b.Sub(x, mean), invStd)
	return b.Add(b.Mul(l.gamma.Value, normalized), l.beta.Value), nil
}

// LocalResponseNorm is a local response normalization layer.
//
// Aggregation is purely across channels (the last axis), not within channels,
// and performed "pixelwise": each value is divided by
//
//	(k + alpha * sum_j x_j^2)^beta
//
// where the sum runs over the window of neighboring channels.
type LocalResponseNorm struct {
	BaseLayer

	// Alpha and Beta are the scale and exponent of the normalization term.
	Alpha, Beta float64

	// K is the additive constant in the normalization term.
	K float64

	// DepthRadius is the size of the channel window; it must be odd.
	DepthRadius int
}

// NewLocalResponseNorm creates the layer with the customary defaults:
// alpha=1e-4, beta=0.75, k=2, depth radius 5.
func NewLocalResponseNorm() *LocalResponseNorm {
	l := &LocalResponseNorm{
		Alpha:       1e-4,
		Beta:        0.75,
		K:           2,
		DepthRadius: 5,
	}
	l.Init(l, "")
	return l
}

func (l *LocalResponseNorm) validate(input shapes.Shape) error {
	if l.DepthRadius%2 == 0 {
		return errors.Errorf("layer %q only works with an odd depth radius, got %d", l.name, l.DepthRadius)
	}
	if !input.Unranked && input.Rank() != 4 {
		return Connectionf(
			"layer %q expects a rank-4 input (batch, height, width, channels), got %s", l.name, input)
	}
	return nil
}

// OutputShape passes the input shape through after validating the rank.
func (l *LocalResponseNorm) OutputShape(inputs ...shapes.Shape) (shapes.Shape, error) {
	if err := expectInputs(l, 1, len(inputs)); err != nil {
		return shapes.Shape{}, err
	}
	if err := l.validate(inputs[0]); err != nil {
		return shapes.Shape{}, err
	}
	return inputs[0].Clone(), nil
}

// Output applies the channel-window normalization.
func (l *LocalResponseNorm) Output(b backends.Backend, training bool, inputs ...backends.Tensor) (backends.Tensor, error) {
	if err := expectInputs(l, 1, len(inputs)); err != nil {
		return nil, err
	}
	x := inputs[0]
	if err := l.validate(x.Shape()); err != nil {
		return nil, err
	}
	channels := x.Shape().Dim(-1)
	half := l.DepthRadius / 2
	squared := b.Mul(x, x)

	parts := make([]backends.Tensor, channels)
	for channel := range channels {
		start := max(0, channel-half)
		stop := min(channels, channel+half+1)
		window := b.ReduceSum(b.Slice(squared, -1, start, stop), []int{-1}, true)
		denominator := b.Pow(
			b.Add(b.Fill(l.K, shapes.Make()), b.Mul(b.Fill(l.Alpha, shapes.Make()), window)),
			l.Beta)
		parts[channel] = b.Div(b.Slice(x, -1, channel, channel+1), denominator)
	}
	return b.Concat(parts, -1), nil
}
