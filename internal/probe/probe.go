// Package probe defines the contract between challenge-authored check
// code and the engine's built-in resource probes.
//
// Check modules are data: they can only name probes, pass them arguments,
// and combine their outputs in expressions. The probes themselves are
// engine code, registered once at startup in a read-only Registry. This
// mirrors the split between manifests and registered handlers: the
// externally supplied document decides WHAT to inspect, compiled handlers
// decide HOW.
package probe

import (
	"context"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/Wollering/CTF-Assessment-Engine/internal/credentials"
)

// Input carries the per-invocation target context handed to every probe.
type Input struct {
	SubjectID string
	StackName string
	TenantID  string

	// Credentials is the run's brokered triple, nil when a challenge is
	// assessed without a tenant boundary (local fixtures).
	Credentials *credentials.Credentials

	// Region the target tenant's resources live in.
	Region string
}

// Handler is one built-in probe.
type Handler interface {
	// Name is the type label check code uses to reference the probe.
	Name() string

	// Schema declares the accepted argument attributes and their types.
	// The loader validates check code against it at parse time.
	Schema() map[string]cty.Type

	// Run executes the probe against the target tenant. The returned value
	// becomes `probe.<label>` in the check's evaluation context. Run must
	// honor ctx cancellation; the executor enforces the deadline regardless.
	Run(ctx context.Context, in Input, args map[string]cty.Value) (cty.Value, error)
}

// Registry holds the engine's probe handlers. It is populated at startup
// and read-only afterwards, so concurrent check executions may share it.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler. A duplicate name is a programmer error.
func (r *Registry) Register(h Handler) {
	if _, exists := r.handlers[h.Name()]; exists {
		panic(fmt.Sprintf("probe handler %q already registered", h.Name()))
	}
	r.handlers[h.Name()] = h
}

// Lookup resolves a probe type label.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered probe types, sorted for stable diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
