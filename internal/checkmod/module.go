// Package checkmod loads challenge-authored check code into a callable,
// per-run Module.
//
// Check code is an HCL document of named 'check' blocks. Each block is
// compiled into a procedure over the spec contract (subject, resource
// group, credentials) -> result. A Module is single-use: its check table
// is built fresh on every load and handed to exactly one assessment run,
// never installed into a process-wide table, so concurrent runs of
// different challenges cannot collide even when their checks share names.
package checkmod

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/probe"
)

// Module is the loaded set of named check procedures for one run.
type Module struct {
	source string
	checks map[string]*Check
	probes *probe.Registry
}

// Source identifies where the module was loaded from, for diagnostics.
func (m *Module) Source() string { return m.source }

// Names lists the module's checks, sorted.
func (m *Module) Names() []string {
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up a named check and binds it into an invokable Procedure.
func (m *Module) Resolve(name string) (*Procedure, bool) {
	c, ok := m.checks[name]
	if !ok {
		return nil, false
	}
	return &Procedure{check: c, probes: m.probes}, true
}

// Check is one parsed 'check' block.
type Check struct {
	Name        string
	Description string
	Probes      []ProbeSpec
	Implemented hcl.Expression
	Details     hcl.Expression // nil when the block declares none
}

// ProbeSpec is one 'probe' block inside a check: a reference to a
// registered probe handler plus its argument expressions.
type ProbeSpec struct {
	Type string
	Name string
	Args map[string]hcl.Expression
}

// Result is the well-formed outcome of a check procedure.
type Result struct {
	Implemented bool
	Details     map[string]any
}

// MalformedError marks a check that ran but produced a structurally
// invalid result (no boolean 'implemented' value, or non-mapping details).
// It is the check author's failure, not the engine's.
type MalformedError struct {
	Check  string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("check %q returned a malformed result: %s", e.Check, e.Reason)
}

// Procedure is a named check bound to the probe registry, ready to invoke.
type Procedure struct {
	check  *Check
	probes *probe.Registry
}

// Invoke runs the check's probes in declaration order and evaluates its
// expressions. Probes may reference the outputs of earlier probes in the
// same check. Each invocation is logically independent: nothing is
// mutated on the Procedure or Module, so concurrent invocations are safe.
func (p *Procedure) Invoke(ctx context.Context, in probe.Input) (*Result, error) {
	logger := ctxlog.FromContext(ctx).With("check", p.check.Name)

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"target": cty.ObjectVal(map[string]cty.Value{
				"subject_id": cty.StringVal(in.SubjectID),
				"stack_name": cty.StringVal(in.StackName),
				"tenant_id":  cty.StringVal(in.TenantID),
			}),
		},
	}

	probeResults := make(map[string]cty.Value, len(p.check.Probes))
	for _, spec := range p.check.Probes {
		handler, ok := p.probes.Lookup(spec.Type)
		if !ok {
			// Parse-time validation makes this unreachable unless the
			// registry changed between load and invoke.
			return nil, fmt.Errorf("probe type %q is not registered", spec.Type)
		}

		args, err := evaluateArgs(spec, handler, evalCtx)
		if err != nil {
			return nil, err
		}

		logger.Debug("Running probe.", "type", spec.Type, "name", spec.Name)
		val, err := handler.Run(ctx, in, args)
		if err != nil {
			return nil, fmt.Errorf("probe %q (%s): %w", spec.Name, spec.Type, err)
		}
		probeResults[spec.Name] = val

		// Expose completed probes to the remaining expressions.
		evalCtx.Variables["probe"] = cty.ObjectVal(probeResults)
	}
	if len(probeResults) > 0 {
		evalCtx.Variables["probe"] = cty.ObjectVal(probeResults)
	}

	implemented, err := p.evalImplemented(evalCtx)
	if err != nil {
		return nil, err
	}

	details, err := p.evalDetails(evalCtx)
	if err != nil {
		return nil, err
	}

	return &Result{Implemented: implemented, Details: details}, nil
}

func (p *Procedure) evalImplemented(evalCtx *hcl.EvalContext) (bool, error) {
	val, diags := p.check.Implemented.Value(evalCtx)
	if diags.HasErrors() {
		return false, fmt.Errorf("check %q: evaluating implemented: %w", p.check.Name, diags)
	}
	boolVal, convErr := convert.Convert(val, cty.Bool)
	if convErr != nil || boolVal.IsNull() || !boolVal.IsKnown() {
		return false, &MalformedError{
			Check:  p.check.Name,
			Reason: fmt.Sprintf("'implemented' is %s, want bool", val.Type().FriendlyName()),
		}
	}
	return boolVal.True(), nil
}

func (p *Procedure) evalDetails(evalCtx *hcl.EvalContext) (map[string]any, error) {
	if p.check.Details == nil {
		return nil, nil
	}
	val, diags := p.check.Details.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("check %q: evaluating details: %w", p.check.Name, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, &MalformedError{
			Check:  p.check.Name,
			Reason: fmt.Sprintf("'details' is %s, want a mapping", val.Type().FriendlyName()),
		}
	}
	details := make(map[string]any)
	for key, v := range val.AsValueMap() {
		details[key] = ctyToGo(v)
	}
	return details, nil
}

// evaluateArgs evaluates a probe block's argument expressions and coerces
// them to the handler's declared types.
func evaluateArgs(spec ProbeSpec, handler probe.Handler, evalCtx *hcl.EvalContext) (map[string]cty.Value, error) {
	schema := handler.Schema()
	args := make(map[string]cty.Value, len(spec.Args))
	for name, expr := range spec.Args {
		val, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("probe %q: evaluating argument %q: %w", spec.Name, name, diags)
		}
		want, ok := schema[name]
		if !ok {
			// Unreachable after parse-time validation.
			return nil, fmt.Errorf("probe %q: unknown argument %q", spec.Name, name)
		}
		coerced, err := convert.Convert(val, want)
		if err != nil {
			return nil, fmt.Errorf("probe %q: argument %q: %w", spec.Name, name, err)
		}
		args[name] = coerced
	}
	return args, nil
}

// ctyToGo converts an evaluated cty value into plain Go data for the
// result's details mapping.
func ctyToGo(val cty.Value) any {
	if val.IsNull() || !val.IsKnown() {
		return nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString()
	case ty == cty.Bool:
		return val.True()
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if i, acc := bf.Int64(); acc == 0 {
			return i
		}
		f, _ := bf.Float64()
		return f
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for k, v := range val.AsValueMap() {
			out[k] = ctyToGo(v)
		}
		return out
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		var out []any
		for _, v := range val.AsValueSlice() {
			out = append(out, ctyToGo(v))
		}
		return out
	default:
		return val.GoString()
	}
}
