package layers

import (
	"github.com/AndyB66/neupy/types/dag"
)

// Merge combines two networks into a new one. The forward adjacency of the
// result is the union of both: left's entries first, right's appended, with
// per-key successor lists deduplicated.
//
// With connect=true it additionally wires the networks sequentially: after
// validating that the boundary is not many-to-many and that every left output
// shape is compatible with every right input shape, it adds an edge from each
// left output layer to each right input layer. Fails with *ConnectionError on
// validation failure or if the combined graph would be cyclic.
//
// Both operands are left untouched; layer instances are shared with the
// result.
func Merge(left, right *Network, connect bool) (*Network, error) {
	if connect {
		if err := validateBeforeConnecting(left, right); err != nil {
			return nil, err
		}
	}

	forward := left.forward.Clone()
	for _, layer := range right.forward.Nodes() {
		forward.Add(layer, right.forward.Edges(layer)...)
	}
	if connect {
		for _, from := range left.OutputLayers() {
			for _, to := range right.InputLayers() {
				forward.Add(from, to)
			}
		}
	}

	if dag.IsCyclic(forward) {
		return nil, Connectionf(
			"cannot define a connection between layers because it creates a cycle in the graph; left network: %s, right network: %s",
			left, right)
	}
	return NewNetwork(forward)
}

// validateBeforeConnecting rejects ambiguous many-to-many boundaries and
// pairwise-incompatible boundary shapes before left and right get wired.
func validateBeforeConnecting(left, right *Network) error {
	leftOutputs := left.OutputLayers()
	rightInputs := right.InputLayers()

	if len(leftOutputs) > 1 && len(rightInputs) > 1 {
		return Connectionf(
			"cannot make a many-to-many connection between networks: one has %d outputs (%s) and the other %d inputs (%s)",
			len(leftOutputs), layerNames(leftOutputs), len(rightInputs), layerNames(rightInputs))
	}

	leftShapes, err := left.OutputShapes()
	if err != nil {
		return err
	}
	for ii, from := range leftOutputs {
		fromShape := leftShapes[ii]
		for _, to := range rightInputs {
			toShape := to.InputShape()
			if fromShape.Compatible(toShape) {
				continue
			}
			return Connectionf(
				"cannot connect layer %q to layer %q: output shape %s of the first layer is incompatible with input shape %s of the second",
				from.Name(), to.Name(), fromShape, toShape)
		}
	}
	return nil
}

func layerNames(list []Layer) []string {
	names := make([]string, len(list))
	for ii, layer := range list {
		names[ii] = layer.Name()
	}
	return names
}

// Parallel merges all the given layers and networks side by side, without
// connecting them: the result contains the union of all nodes and only the
// edges each operand already had.
func Parallel(items ...Composable) (*Network, error) {
	return compose(items, false)
}

// Join chains the given layers and networks sequentially: each operand's
// outputs feed the next operand's inputs, with shape-compatibility validation
// at every seam.
func Join(items ...Composable) (*Network, error) {
	return compose(items, true)
}

func compose(items []Composable, connect bool) (*Network, error) {
	network, err := NewNetwork(newAdjacency())
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		operand, err := item.toNetwork()
		if err != nil {
			return nil, err
		}
		network, err = Merge(network, operand, connect)
		if err != nil {
			return nil, err
		}
	}
	return network, nil
}

// toNetwork implements Composable: a network lifts to itself.
func (n *Network) toNetwork() (*Network, error) { return n, nil }
