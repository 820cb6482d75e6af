// Package dot renders a network's layer graph in Graphviz DOT format, with
// edges labeled by the shape of the tensors flowing through them.
package dot

import (
	"fmt"
	"io"

	"github.com/AndyB66/neupy/layers"
	"github.com/pkg/errors"
)

// Export writes the DOT rendition of the network. Layers appear in topological
// order; each output layer additionally points at a synthetic terminal node
// showing the network's final shape.
func Export(w io.Writer, n *layers.Network) error {
	perLayer, err := n.OutputShapesPerLayer()
	if err != nil {
		return errors.WithMessage(err, "cannot export a network that fails shape inference")
	}

	if _, err := fmt.Fprintln(w, "digraph network {"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "  rankdir=LR;"); err != nil {
		return err
	}

	forward := n.ForwardAdjacency()
	for _, layer := range n.Layers() {
		if _, err := fmt.Fprintf(w, "  %q;\n", layer.Name()); err != nil {
			return err
		}
		for _, next := range forward.Edges(layer) {
			if _, err := fmt.Fprintf(w, "  %q -> %q [label=%q];\n",
				layer.Name(), next.Name(), perLayer[layer].String()); err != nil {
				return err
			}
		}
	}
	for ii, layer := range n.OutputLayers() {
		terminal := fmt.Sprintf("output-%d", ii+1)
		if _, err := fmt.Fprintf(w, "  %q [shape=plaintext];\n", terminal); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "  %q -> %q [label=%q];\n",
			layer.Name(), terminal, perLayer[layer].String()); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w, "}")
	return err
}
