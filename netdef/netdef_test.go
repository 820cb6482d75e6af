package netdef_test

import (
	"testing"

	"github.com/AndyB66/neupy/layers"
	"github.com/AndyB66/neupy/netdef"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/stretchr/testify/require"
)

func TestLoadSequentialDefinition(t *testing.T) {
	src := []byte(`
layer "input" "pixels" {
  shape = [784]
}

layer "relu" "hidden" {
  units = 500
}

layer "softmax" "digits" {
  units = 10
}
`)
	n, err := netdef.Load("mnist.hcl", src)
	require.NoError(t, err)
	require.Equal(t, 3, n.NumLayers())
	require.True(t, n.IsSequential())
	require.Equal(t, "(?, 784) -> [... 3 layers ...] -> (?, 10)", n.String())

	hidden, err := n.LayerByName("hidden")
	require.NoError(t, err)
	require.Equal(t, 500, hidden.(*layers.Relu).Units())
}

func TestLoadExplicitConnections(t *testing.T) {
	src := []byte(`
layer "input" "pixels" {
  shape = [unknown, 32]
}

layer "relu" "left" {
  units = 8
}

layer "tanh" "right" {
  units = 8
}

layer "elementwise" "sum" {}

connect {
  from = "pixels"
  to   = ["left", "right"]
}

connect {
  from = "left"
  to   = ["sum"]
}

connect {
  from = "right"
  to   = ["sum"]
}
`)
	n, err := netdef.Load("residual.hcl", src)
	require.NoError(t, err)
	require.Equal(t, 4, n.NumLayers())
	require.False(t, n.IsSequential())

	// The `unknown` variable resolves to an unresolved dimension.
	require.Equal(t,
		[]shapes.Shape{shapes.Make(shapes.UnknownDim, shapes.UnknownDim, 32)}, n.InputShapes())

	outputs, err := n.OutputShapes()
	require.NoError(t, err)
	require.Equal(t, []shapes.Shape{shapes.Make(shapes.UnknownDim, shapes.UnknownDim, 8)}, outputs)
}

func TestLoadLayerKinds(t *testing.T) {
	src := []byte(`
layer "input" "frames" {
  shape = [8, 8, 3]
}

layer "batch_norm" "norm" {
  epsilon = 0.001
  alpha   = 0.05
}

layer "local_response_norm" "lrn" {
  depth_radius = 3
}
`)
	n, err := netdef.Load("conv.hcl", src)
	require.NoError(t, err)

	norm, err := n.LayerByName("norm")
	require.NoError(t, err)
	require.Equal(t, 0.001, norm.(*layers.BatchNorm).Epsilon)
	require.Equal(t, 0.05, norm.(*layers.BatchNorm).Alpha)

	lrn, err := n.LayerByName("lrn")
	require.NoError(t, err)
	require.Equal(t, 3, lrn.(*layers.LocalResponseNorm).DepthRadius)
}

func TestLoadErrors(t *testing.T) {
	_, err := netdef.Load("bad.hcl", []byte(`layer "input" "x" { shape = `))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse")

	_, err = netdef.Load("empty.hcl", []byte(``))
	require.Error(t, err)
	require.Contains(t, err.Error(), "declares no layers")

	_, err = netdef.Load("unknown-kind.hcl", []byte(`layer "conv3d" "x" {}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown layer kind "conv3d"`)

	_, err = netdef.Load("dup.hcl", []byte(`
layer "identity" "x" {}
layer "identity" "x" {}
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate layer name")

	_, err = netdef.Load("dangling.hcl", []byte(`
layer "identity" "x" {}
connect {
  from = "x"
  to   = ["ghost"]
}
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), `undeclared layer "ghost"`)

	_, err = netdef.Load("stray.hcl", []byte(`
layer "identity" "x" {
  units = 3
}
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid options")
}

func TestLoadRejectsIncompatibleChain(t *testing.T) {
	src := []byte(`
layer "input" "a" {
  shape = [10]
}

layer "input" "b" {
  shape = [20]
}
`)
	_, err := netdef.Load("mismatch.hcl", src)
	var connErr *layers.ConnectionError
	require.ErrorAs(t, err, &connErr)
}
