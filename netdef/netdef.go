// Package netdef loads network definitions from HCL files.
//
// A definition declares named layers and the connections between them:
//
//	layer "input" "pixels" {
//	  shape = [784]
//	}
//
//	layer "relu" "hidden" {
//	  units = 500
//	}
//
//	layer "softmax" "digits" {
//	  units = 10
//	}
//
//	connect {
//	  from = "pixels"
//	  to   = ["hidden"]
//	}
//
//	connect {
//	  from = "hidden"
//	  to   = ["digits"]
//	}
//
// When no connect block is present the layers are chained sequentially in
// declaration order. The variable `unknown` is available inside definitions
// for dimensions that should stay unresolved, e.g. shape = [unknown, 28].
package netdef

import (
	"github.com/AndyB66/neupy/layers"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

// networkFile is the top-level structure of a definition file.
type networkFile struct {
	Layers      []*layerBlock   `hcl:"layer,block"`
	Connections []*connectBlock `hcl:"connect,block"`
}

// layerBlock is one layer declaration; the kind-specific attributes stay in
// Body and are decoded against the kind's option struct.
type layerBlock struct {
	Kind string   `hcl:"kind,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type connectBlock struct {
	From string   `hcl:"from"`
	To   []string `hcl:"to"`
}

type inputOptions struct {
	Shape []int `hcl:"shape"`
}

type denseOptions struct {
	Units *int `hcl:"units,optional"`
}

type batchNormOptions struct {
	Axes    []int    `hcl:"axes,optional"`
	Epsilon *float64 `hcl:"epsilon,optional"`
	Alpha   *float64 `hcl:"alpha,optional"`
}

type localResponseNormOptions struct {
	Alpha       *float64 `hcl:"alpha,optional"`
	Beta        *float64 `hcl:"beta,optional"`
	K           *float64 `hcl:"k,optional"`
	DepthRadius *int     `hcl:"depth_radius,optional"`
}

type concatenateOptions struct {
	Axis *int `hcl:"axis,optional"`
}

type noOptions struct{}

// evalContext exposes the definition-file variables: `unknown` marks an
// unresolved dimension.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"unknown": cty.NumberIntVal(shapes.UnknownDim),
		},
	}
}

// LoadFile parses the definition file at path and builds the network.
func LoadFile(path string) (*layers.Network, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, errors.Errorf("failed to parse network definition %s: %s", path, diags.Error())
	}
	return build(file.Body)
}

// Load parses an in-memory definition; filename is used in error messages only.
func Load(filename string, src []byte) (*layers.Network, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Errorf("failed to parse network definition %s: %s", filename, diags.Error())
	}
	return build(file.Body)
}

func build(body hcl.Body) (*layers.Network, error) {
	var file networkFile
	if diags := gohcl.DecodeBody(body, evalContext(), &file); diags.HasErrors() {
		return nil, errors.Errorf("failed to decode network definition: %s", diags.Error())
	}
	if len(file.Layers) == 0 {
		return nil, errors.Errorf("network definition declares no layers")
	}

	byName := make(map[string]layers.Layer, len(file.Layers))
	ordered := make([]layers.Layer, 0, len(file.Layers))
	for _, block := range file.Layers {
		if _, found := byName[block.Name]; found {
			return nil, errors.Errorf("duplicate layer name %q in network definition", block.Name)
		}
		layer, err := buildLayer(block)
		if err != nil {
			return nil, err
		}
		layer.SetName(block.Name)
		byName[block.Name] = layer
		ordered = append(ordered, layer)
	}

	if len(file.Connections) == 0 {
		composables := make([]layers.Composable, len(ordered))
		for ii, layer := range ordered {
			composables[ii] = layer
		}
		return layers.Join(composables...)
	}

	adjacency := layers.NewAdjacency()
	for _, layer := range ordered {
		adjacency.Add(layer)
	}
	for _, connection := range file.Connections {
		from, found := byName[connection.From]
		if !found {
			return nil, errors.Errorf("connect block references undeclared layer %q", connection.From)
		}
		for _, name := range connection.To {
			to, found := byName[name]
			if !found {
				return nil, errors.Errorf("connect block references undeclared layer %q", name)
			}
			adjacency.Add(from, to)
		}
	}
	return layers.NewNetwork(adjacency)
}

func buildLayer(block *layerBlock) (layers.Layer, error) {
	switch block.Kind {
	case "input":
		var options inputOptions
		if err := decodeOptions(block, &options); err != nil {
			return nil, err
		}
		return layers.NewInput(options.Shape...), nil

	case "linear", "relu", "sigmoid", "tanh", "softmax":
		var options denseOptions
		if err := decodeOptions(block, &options); err != nil {
			return nil, err
		}
		var units []int
		if options.Units != nil {
			units = []int{*options.Units}
		}
		switch block.Kind {
		case "linear":
			return layers.NewLinear(units...), nil
		case "relu":
			return layers.NewRelu(units...), nil
		case "sigmoid":
			return layers.NewSigmoid(units...), nil
		case "tanh":
			return layers.NewTanh(units...), nil
		default:
			return layers.NewSoftmax(units...), nil
		}

	case "batch_norm":
		var options batchNormOptions
		if err := decodeOptions(block, &options); err != nil {
			return nil, err
		}
		layer := layers.NewBatchNorm()
		layer.Axes = options.Axes
		if options.Epsilon != nil {
			layer.Epsilon = *options.Epsilon
		}
		if options.Alpha != nil {
			layer.Alpha = *options.Alpha
		}
		return layer, nil

	case "local_response_norm":
		var options localResponseNormOptions
		if err := decodeOptions(block, &options); err != nil {
			return nil, err
		}
		layer := layers.NewLocalResponseNorm()
		if options.Alpha != nil {
			layer.Alpha = *options.Alpha
		}
		if options.Beta != nil {
			layer.Beta = *options.Beta
		}
		if options.K != nil {
			layer.K = *options.K
		}
		if options.DepthRadius != nil {
			layer.DepthRadius = *options.DepthRadius
		}
		return layer, nil

	case "concatenate":
		var options concatenateOptions
		if err := decodeOptions(block, &options); err != nil {
			return nil, err
		}
		if options.Axis != nil {
			return layers.NewConcatenate(*options.Axis), nil
		}
		return layers.NewConcatenate(), nil

	case "elementwise":
		var options noOptions
		if err := decodeOptions(block, &options); err != nil {
			return nil, err
		}
		return layers.NewElementwise(), nil

	case "identity":
		var options noOptions
		if err := decodeOptions(block, &options); err != nil {
			return nil, err
		}
		return layers.NewIdentity(), nil

	default:
		return nil, errors.Errorf("unknown layer kind %q (layer %q)", block.Kind, block.Name)
	}
}

func decodeOptions(block *layerBlock, target any) error {
	if diags := gohcl.DecodeBody(block.Body, evalContext(), target); diags.HasErrors() {
		return errors.Errorf("invalid options for layer %q of kind %q: %s",
			block.Name, block.Kind, diags.Error())
	}
	return nil
}
