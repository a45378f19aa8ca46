package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(okTool("log_search")))
	require.NoError(t, reg.Register(okTool("incident_feed")))

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"log_search", "incident_feed"}, reg.Names(), "registration order is preserved")

	tool, ok := reg.Get("log_search")
	require.True(t, ok)
	assert.Equal(t, "log_search", tool.Name())

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(okTool("log_search")))
	err := reg.Register(okTool("log_search"))
	assert.Error(t, err)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_EmptyNameRejected(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(okTool(""))
	assert.Error(t, err)
}
