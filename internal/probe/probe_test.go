package probe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type noopHandler struct{ name string }

func (h *noopHandler) Name() string                { return h.name }
func (h *noopHandler) Schema() map[string]cty.Type { return nil }

func (h *noopHandler) Run(context.Context, Input, map[string]cty.Value) (cty.Value, error) {
	return cty.True, nil
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&noopHandler{name: "cfn_stack"})
	reg.Register(&noopHandler{name: "http_get"})

	h, ok := reg.Lookup("cfn_stack")
	require.True(t, ok)
	assert.Equal(t, "cfn_stack", h.Name())

	_, ok = reg.Lookup("dns_lookup")
	assert.False(t, ok)

	assert.Equal(t, []string{"cfn_stack", "http_get"}, reg.Names())
}

func TestRegisterDuplicatePanics(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&noopHandler{name: "cfn_stack"})
	assert.Panics(t, func() {
		reg.Register(&noopHandler{name: "cfn_stack"})
	})
}
