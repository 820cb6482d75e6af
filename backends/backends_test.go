package backends_test

import (
	"testing"

	"github.com/AndyB66/neupy/backends"
	_ "github.com/AndyB66/neupy/backends/simplego"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	b := backends.New()
	require.Equal(t, "go", b.Name())
	require.NotEmpty(t, b.Description())

	b = backends.NewWithConfig("go:")
	require.Equal(t, "go", b.Name())

	require.Panics(t, func() { backends.NewWithConfig("no-such-backend:") })
}
