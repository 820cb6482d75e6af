package dot_test

import (
	"strings"
	"testing"

	"github.com/AndyB66/neupy/layers"
	"github.com/AndyB66/neupy/ui/dot"
	"github.com/stretchr/testify/require"
)

func TestExport(t *testing.T) {
	input := layers.NewInput(4)
	input.SetName("in")
	hidden := layers.NewRelu(2)
	hidden.SetName("hidden")
	n, err := layers.Join(input, hidden)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, dot.Export(&sb, n))
	rendered := sb.String()

	require.Contains(t, rendered, "digraph network {")
	require.Contains(t, rendered, `"in" -> "hidden" [label="(?, 4)"];`)
	require.Contains(t, rendered, `"hidden" -> "output-1" [label="(?, 2)"];`)
	require.True(t, strings.HasSuffix(strings.TrimSpace(rendered), "}"))
}

func TestExportMultipleOutputs(t *testing.T) {
	n, err := layers.Parallel(layers.NewInput(3), layers.NewInput(5))
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, dot.Export(&sb, n))
	require.Contains(t, sb.String(), `"output-1"`)
	require.Contains(t, sb.String(), `"output-2"`)
}
