package layers

import (
	"fmt"
	"strings"

	"github.com/AndyB66/neupy/types"
	"github.com/AndyB66/neupy/types/dag"
	"github.com/AndyB66/neupy/types/shapes"
	"github.com/AndyB66/neupy/types/xsync"
	"github.com/pkg/errors"
)

// Adjacency is the forward adjacency mapping a Network is built from: layer to
// ordered successor layers.
type Adjacency = dag.Adjacency[Layer]

func newAdjacency() *Adjacency { return dag.New[Layer]() }

// NewAdjacency returns an empty forward adjacency mapping, for callers that
// build networks directly from edges (see also Join and Parallel, which cover
// the common cases).
func NewAdjacency() *Adjacency { return newAdjacency() }

// Network is a directed acyclic graph of layers.
//
// It owns a forward adjacency mapping and lazily derives -- memoized once per
// instance -- the backward adjacency, the input and output layers, the
// topological order and the per-layer output shapes. A Network is immutable
// after construction; any topology change goes through constructing a new
// instance (Merge, Join, Parallel, Start, End), which shares the underlying
// layer instances with the original.
type Network struct {
	forward *Adjacency

	backwardMemo xsync.Memo[*Adjacency]
	inputsMemo   xsync.Memo[[]Layer]
	outputsMemo  xsync.Memo[[]Layer]
	layersMemo   xsync.Memo[[]Layer]
	shapesMemo   xsync.Memo[shapesPerLayer]
}

type shapesPerLayer struct {
	shapes map[Layer]shapes.Shape
	err    error
}

// NewNetwork builds a network from a forward adjacency mapping (possibly
// empty). The adjacency is copied and completed: every layer referenced as a
// successor becomes a key. Fails with *dag.CycleError if the graph is cyclic,
// or with the underlying shape error if the layers cannot be connected the way
// the adjacency claims.
func NewNetwork(forward *Adjacency) (*Network, error) {
	closed := forward.Clone()
	closed.Complete()
	if dag.IsCyclic(closed) {
		return nil, dag.Cyclef("network adjacency has a cycle")
	}
	n := &Network{forward: closed}
	// Shape inference over the whole graph doubles as connection validation:
	// a network never escapes construction with incompatible layers.
	if _, err := n.OutputShapesPerLayer(); err != nil {
		return nil, err
	}
	return n, nil
}

// ForwardAdjacency returns the network's forward adjacency. It is owned by the
// network and must not be modified.
func (n *Network) ForwardAdjacency() *Adjacency { return n.forward }

func (n *Network) backward() *Adjacency {
	return n.backwardMemo.Get(func() *Adjacency { return n.forward.Reverse() })
}

// InputLayers returns the layers with no predecessors, in insertion order.
func (n *Network) InputLayers() []Layer {
	return n.inputsMemo.Get(func() []Layer { return boundaryLayers(n.backward()) })
}

// OutputLayers returns the layers with no successors, in insertion order.
func (n *Network) OutputLayers() []Layer {
	return n.outputsMemo.Get(func() []Layer { return boundaryLayers(n.forward) })
}

func boundaryLayers(adjacency *Adjacency) []Layer {
	var boundary []Layer
	for _, layer := range adjacency.Nodes() {
		if len(adjacency.Edges(layer)) == 0 {
			boundary = append(boundary, layer)
		}
	}
	return boundary
}

// Layers returns all layers in topological order: every layer appears after
// all of its predecessors. Memoized.
func (n *Network) Layers() []Layer {
	return n.layersMemo.Get(func() []Layer {
		// The backward adjacency edges are dependencies, which is exactly what
		// the sort consumes. Acyclicity was checked at construction.
		sorted, err := dag.TopologicalSort(n.backward())
		if err != nil {
			panic(err)
		}
		return sorted
	})
}

// Contains returns whether the layer is part of the network.
func (n *Network) Contains(layer Layer) bool { return n.forward.Has(layer) }

// NumLayers returns the number of layers in the network.
func (n *Network) NumLayers() int { return n.forward.Len() }

// LayerByName finds the layer with the given name. Fails with *NotFoundError
// when no layer matches or when the name is ambiguous.
func (n *Network) LayerByName(name string) (Layer, error) {
	var matches []Layer
	for _, layer := range n.forward.Nodes() {
		if layer.Name() == name {
			matches = append(matches, layer)
		}
	}
	switch len(matches) {
	case 0:
		return nil, NotFoundf("cannot find layer with name %q", name)
	case 1:
		return matches[0], nil
	default:
		return nil, NotFoundf("ambiguous layer name %q: network has %d layers with that name",
			name, len(matches))
	}
}

// LayerRef refers to a layer either directly or by name; see Start, End and
// the feed helpers.
type LayerRef any

// resolveRefs turns layer references (Layer values or name strings) into
// layers of this network.
func (n *Network) resolveRefs(refs []LayerRef) ([]Layer, error) {
	resolved := make([]Layer, 0, len(refs))
	for _, ref := range refs {
		switch v := ref.(type) {
		case Layer:
			resolved = append(resolved, v)
		case string:
			layer, err := n.LayerByName(v)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, layer)
		default:
			return nil, errors.Errorf("layer reference must be a Layer or a name string, got %T", ref)
		}
	}
	return resolved, nil
}

// slice walks direction from the seed layers, collecting everything reachable,
// and returns the induced subgraph of the forward adjacency.
func (n *Network) slice(direction *Adjacency, refs []LayerRef) (*Network, error) {
	seeds, err := n.resolveRefs(refs)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, errors.Errorf("slicing requires at least one layer")
	}
	anyMember := false
	for _, seed := range seeds {
		if n.Contains(seed) {
			anyMember = true
			break
		}
	}
	if !anyMember {
		return nil, errors.Errorf("layer %q is not used in the network %s", seeds[0].Name(), n)
	}

	observed := types.MakeSet[Layer]()
	pending := append([]Layer{}, seeds...)
	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		observed.Insert(current)
		for _, next := range direction.Edges(current) {
			if !observed.Has(next) {
				pending = append(pending, next)
			}
		}
	}
	return NewNetwork(dag.Filter(n.forward, observed))
}

// Start returns the subgraph reachable downstream from the given layers
// (inclusive): the part of the network that starts at them. References are
// Layer values or names. Fails with a plain error when none of the seeds
// belong to the network, or *NotFoundError for unresolvable names.
func (n *Network) Start(refs ...LayerRef) (*Network, error) {
	return n.slice(n.forward, refs)
}

// End returns the subgraph upstream of the given layers (inclusive): the part
// of the network that ends at them.
func (n *Network) End(refs ...LayerRef) (*Network, error) {
	return n.slice(n.backward(), refs)
}

// IsSequential returns whether the network is a plain chain: single input,
// single output and no branching anywhere.
func (n *Network) IsSequential() bool {
	if len(n.InputLayers()) > 1 || len(n.OutputLayers()) > 1 {
		return false
	}
	for _, layer := range n.forward.Nodes() {
		if len(n.forward.Edges(layer)) > 1 || len(n.backward().Edges(layer)) > 1 {
			return false
		}
	}
	return true
}

// Parameters returns the variables of all layers in topological order,
// deduplicated (a variable shared by layers is reported once).
func (n *Network) Parameters() []*Variable {
	seen := types.MakeSet[*Variable]()
	var params []*Variable
	for _, layer := range n.Layers() {
		for _, v := range layer.Variables() {
			if !seen.Has(v) {
				seen.Insert(v)
				params = append(params, v)
			}
		}
	}
	return params
}

// NumParameters returns the total number of scalar parameters across all
// created variables.
func (n *Network) NumParameters() int {
	total := 0
	for _, v := range n.Parameters() {
		if v.Value != nil {
			total += v.Value.Shape().Size()
		}
	}
	return total
}

// InputShapes returns the declared input shapes of the input layers, in order.
func (n *Network) InputShapes() []shapes.Shape {
	inputs := n.InputLayers()
	result := make([]shapes.Shape, len(inputs))
	for ii, layer := range inputs {
		result[ii] = layer.InputShape()
	}
	return result
}

// String implements stringer: "(?, 784) -> [... 3 layers ...] -> (?, 10)".
func (n *Network) String() string {
	if n.NumLayers() == 0 {
		return "[empty network]"
	}
	outputs, err := n.OutputShapes()
	if err != nil {
		// Networks are validated at construction, this is unreachable for any
		// network that escaped NewNetwork.
		return fmt.Sprintf("[invalid network: %v]", err)
	}
	return fmt.Sprintf("%s -> [... %d layers ...] -> %s",
		formatShapeList(n.InputShapes()), n.NumLayers(), formatShapeList(outputs))
}

func formatShapeList(list []shapes.Shape) string {
	if len(list) == 1 {
		return list[0].String()
	}
	parts := make([]string, len(list))
	for ii, shape := range list {
		parts[ii] = shape.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
