// neupy_summary loads a network definition from an HCL file and prints a
// per-layer summary table: name, output shape and number of parameters.
// Optionally it also writes the layer graph in Graphviz DOT format.
//
// Example:
//
//	neupy_summary -net mnist.hcl
//	neupy_summary -net mnist.hcl -dot mnist.dot | dot -Tsvg
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/AndyB66/neupy/backends"
	"github.com/AndyB66/neupy/layers"
	"github.com/AndyB66/neupy/netdef"
	"github.com/AndyB66/neupy/ui/dot"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	_ "github.com/AndyB66/neupy/backends/simplego"
)

var (
	flagNet       = flag.String("net", "", "Path to the HCL network definition to summarize.")
	flagDot       = flag.String("dot", "", "If set, also write the layer graph in Graphviz DOT format to this file.")
	flagVariables = flag.Bool("variables", true, "Whether to create the layer variables and count parameters.")
)

var (
	headerStyle       = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	tableBorderColor  = "#705090"
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagNet == "" {
		klog.Exitf("Missing required flag -net, the network definition to summarize.")
	}

	network := must.M1(netdef.LoadFile(*flagNet))
	if *flagVariables {
		must.M(network.CreateVariables(backends.New()))
	}
	printSummary(network)

	if *flagDot != "" {
		file := must.M1(os.Create(*flagDot))
		must.M(dot.Export(file, network))
		must.M(file.Close())
	}
}

func printSummary(network *layers.Network) {
	perLayer := must.M1(network.OutputShapesPerLayer())

	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			if col >= 2 {
				return rightAlignedStyle
			}
			return normalStyle
		})
	table.Headers("Layer", "Input Shape", "Output Shape", "Parameters")
	for _, layer := range network.Layers() {
		numParams := 0
		for _, v := range layer.Variables() {
			numParams += v.Value.Shape().Size()
		}
		table.Row(
			layer.Name(),
			layer.InputShape().String(),
			perLayer[layer].String(),
			humanize.Comma(int64(numParams)))
	}

	fmt.Println(network)
	fmt.Println(table.Render())
	fmt.Printf("Total parameters: %s\n", humanize.Comma(int64(network.NumParameters())))
}
