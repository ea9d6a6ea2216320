package checkmod

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
	"github.com/Wollering/CTF-Assessment-Engine/internal/probe"
)

var checkFileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "check", LabelNames: []string{"name"}},
	},
}

var checkBlockSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
		{Name: "implemented", Required: true},
		{Name: "details"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "probe", LabelNames: []string{"type", "name"}},
	},
}

// Parse compiles check source into a Module bound to the given probe
// registry. All structural problems — syntax errors, duplicate names,
// references to unregistered probe types, undeclared probe arguments —
// are LoadErrors; nothing is partially loaded.
func Parse(ctx context.Context, src []byte, filename string, probes *probe.Registry) (*Module, error) {
	const op = "checkmod.Parse"
	logger := ctxlog.FromContext(ctx).With("source", filename)

	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fault.Wrap(fault.LoadError, op, diags)
	}

	content, diags := file.Body.Content(checkFileSchema)
	if diags.HasErrors() {
		return nil, fault.Wrap(fault.LoadError, op, diags)
	}

	checks := make(map[string]*Check, len(content.Blocks))
	for _, block := range content.Blocks {
		check, err := parseCheckBlock(block, probes)
		if err != nil {
			return nil, err
		}
		if _, dup := checks[check.Name]; dup {
			return nil, fault.New(fault.LoadError, op, "%s declares check %q twice", filename, check.Name)
		}
		checks[check.Name] = check
	}

	if len(checks) == 0 {
		logger.Warn("Check module declares no checks.")
	}

	logger.Debug("Check module parsed.", "checks", len(checks))
	return &Module{source: filename, checks: checks, probes: probes}, nil
}

func parseCheckBlock(block *hcl.Block, probes *probe.Registry) (*Check, error) {
	const op = "checkmod.Parse"
	name := block.Labels[0]

	content, diags := block.Body.Content(checkBlockSchema)
	if diags.HasErrors() {
		return nil, fault.Wrap(fault.LoadError, op, diags)
	}

	check := &Check{Name: name}

	if attr, ok := content.Attributes["description"]; ok {
		// Descriptions are static strings; evaluate with no variables.
		val, diags := attr.Expr.Value(nil)
		if !diags.HasErrors() && val.Type() == cty.String && !val.IsNull() {
			check.Description = val.AsString()
		}
	}
	check.Implemented = content.Attributes["implemented"].Expr
	if attr, ok := content.Attributes["details"]; ok {
		check.Details = attr.Expr
	}

	seen := make(map[string]struct{}, len(content.Blocks))
	for _, pb := range content.Blocks {
		spec, err := parseProbeBlock(name, pb, probes)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[spec.Name]; dup {
			return nil, fault.New(fault.LoadError, op, "check %q declares probe %q twice", name, spec.Name)
		}
		seen[spec.Name] = struct{}{}
		check.Probes = append(check.Probes, *spec)
	}

	return check, nil
}

func parseProbeBlock(checkName string, block *hcl.Block, probes *probe.Registry) (*ProbeSpec, error) {
	const op = "checkmod.Parse"
	probeType, probeName := block.Labels[0], block.Labels[1]

	handler, ok := probes.Lookup(probeType)
	if !ok {
		return nil, fault.New(fault.LoadError, op,
			"check %q references unknown probe type %q (registered: %v)",
			checkName, probeType, probes.Names())
	}

	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fault.Wrap(fault.LoadError, op, diags)
	}

	schema := handler.Schema()
	args := make(map[string]hcl.Expression, len(attrs))
	for argName, attr := range attrs {
		if _, declared := schema[argName]; !declared {
			return nil, fault.New(fault.LoadError, op,
				"check %q: probe type %q accepts no argument %q", checkName, probeType, argName)
		}
		args[argName] = attr.Expr
	}

	return &ProbeSpec{Type: probeType, Name: probeName, Args: args}, nil
}

// maxModuleBytes bounds how much check source the loader will accept.
const maxModuleBytes = 1 << 20

func guardSize(op, key string, n int) error {
	if n > maxModuleBytes {
		return fault.New(fault.LoadError, op, "check module %q is %d bytes, limit is %d", key, n, maxModuleBytes)
	}
	return nil
}
