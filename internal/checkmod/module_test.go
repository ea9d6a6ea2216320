package checkmod

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
	"github.com/Wollering/CTF-Assessment-Engine/internal/probe"
)

// staticProbe returns a fixed value, recording its last arguments.
type staticProbe struct {
	name     string
	schema   map[string]cty.Type
	value    cty.Value
	err      error
	lastArgs map[string]cty.Value
	lastIn   probe.Input
	calls    int
}

func (s *staticProbe) Name() string               { return s.name }
func (s *staticProbe) Schema() map[string]cty.Type { return s.schema }

func (s *staticProbe) Run(_ context.Context, in probe.Input, args map[string]cty.Value) (cty.Value, error) {
	s.calls++
	s.lastIn = in
	s.lastArgs = args
	if s.err != nil {
		return cty.NilVal, s.err
	}
	return s.value, nil
}

func stackProbe() *staticProbe {
	return &staticProbe{
		name:   "cfn_stack",
		schema: map[string]cty.Type{"stack_name": cty.String},
		value: cty.ObjectVal(map[string]cty.Value{
			"exists": cty.True,
			"status": cty.StringVal("CREATE_COMPLETE"),
		}),
	}
}

func testRegistry(handlers ...probe.Handler) *probe.Registry {
	reg := probe.NewRegistry()
	for _, h := range handlers {
		reg.Register(h)
	}
	return reg
}

const moduleSrc = `
check "checkA" {
  description = "stack finished creating"

  probe "cfn_stack" "stack" {
    stack_name = target.stack_name
  }

  implemented = probe.stack.exists && probe.stack.status == "CREATE_COMPLETE"

  details = {
    status = probe.stack.status
  }
}

check "checkB" {
  implemented = false
}
`

func parseModule(t *testing.T, src string, reg *probe.Registry) *Module {
	t.Helper()
	mod, err := Parse(context.Background(), []byte(src), "checks.hcl", reg)
	require.NoError(t, err)
	return mod
}

func runInput() probe.Input {
	return probe.Input{
		SubjectID: "team-7",
		StackName: "reliability-team-7",
		TenantID:  "123456789012",
	}
}

func TestInvoke(t *testing.T) {
	stack := stackProbe()
	mod := parseModule(t, moduleSrc, testRegistry(stack))

	proc, ok := mod.Resolve("checkA")
	require.True(t, ok)

	res, err := proc.Invoke(context.Background(), runInput())
	require.NoError(t, err)

	assert.True(t, res.Implemented)
	assert.Equal(t, map[string]any{"status": "CREATE_COMPLETE"}, res.Details)

	// The probe saw the target context and the evaluated argument.
	assert.Equal(t, "team-7", stack.lastIn.SubjectID)
	assert.Equal(t, cty.StringVal("reliability-team-7"), stack.lastArgs["stack_name"])
}

func TestInvokeNotImplemented(t *testing.T) {
	mod := parseModule(t, moduleSrc, testRegistry(stackProbe()))

	proc, ok := mod.Resolve("checkB")
	require.True(t, ok)

	res, err := proc.Invoke(context.Background(), runInput())
	require.NoError(t, err)
	assert.False(t, res.Implemented)
	assert.Nil(t, res.Details)
}

func TestResolveUnknownCheck(t *testing.T) {
	mod := parseModule(t, moduleSrc, testRegistry(stackProbe()))
	_, ok := mod.Resolve("checkZ")
	assert.False(t, ok)
	assert.Equal(t, []string{"checkA", "checkB"}, mod.Names())
}

func TestInvokeProbeFailure(t *testing.T) {
	stack := stackProbe()
	stack.err = errors.New("throttled")
	mod := parseModule(t, moduleSrc, testRegistry(stack))

	proc, _ := mod.Resolve("checkA")
	_, err := proc.Invoke(context.Background(), runInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")

	var malformed *MalformedError
	assert.False(t, errors.As(err, &malformed), "a probe failure is a check failure, not a malformed result")
}

func TestInvokeMalformedImplemented(t *testing.T) {
	src := `
check "bad" {
  implemented = "maybe"
}
`
	mod := parseModule(t, src, testRegistry())
	proc, _ := mod.Resolve("bad")

	_, err := proc.Invoke(context.Background(), runInput())
	require.Error(t, err)
	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "bad", malformed.Check)
}

func TestInvokeMalformedDetails(t *testing.T) {
	src := `
check "bad" {
  implemented = true
  details     = 42
}
`
	mod := parseModule(t, src, testRegistry())
	proc, _ := mod.Resolve("bad")

	_, err := proc.Invoke(context.Background(), runInput())
	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
}

func TestInvokeProbeChaining(t *testing.T) {
	stack := stackProbe()
	stack.value = cty.ObjectVal(map[string]cty.Value{
		"exists": cty.True,
		"status": cty.StringVal("CREATE_COMPLETE"),
		"outputs": cty.MapVal(map[string]cty.Value{
			"Endpoint": cty.StringVal("https://api.example.test/health"),
		}),
	})
	httpProbe := &staticProbe{
		name:   "http_get",
		schema: map[string]cty.Type{"url": cty.String},
		value: cty.ObjectVal(map[string]cty.Value{
			"status_code": cty.NumberIntVal(200),
		}),
	}

	src := `
check "endpoint_healthy" {
  probe "cfn_stack" "stack" {}

  probe "http_get" "health" {
    url = probe.stack.outputs["Endpoint"]
  }

  implemented = probe.health.status_code == 200
}
`
	mod := parseModule(t, src, testRegistry(stack, httpProbe))
	proc, _ := mod.Resolve("endpoint_healthy")

	res, err := proc.Invoke(context.Background(), runInput())
	require.NoError(t, err)
	assert.True(t, res.Implemented)
	assert.Equal(t, cty.StringVal("https://api.example.test/health"), httpProbe.lastArgs["url"])
}

func TestInvokeIsolation(t *testing.T) {
	// Two modules defining the same check name never share state.
	a := parseModule(t, `check "shared" { implemented = true }`, testRegistry())
	b := parseModule(t, `check "shared" { implemented = false }`, testRegistry())

	procA, _ := a.Resolve("shared")
	procB, _ := b.Resolve("shared")

	resA, err := procA.Invoke(context.Background(), runInput())
	require.NoError(t, err)
	resB, err := procB.Invoke(context.Background(), runInput())
	require.NoError(t, err)

	assert.True(t, resA.Implemented)
	assert.False(t, resB.Implemented)
}

func TestParseErrors(t *testing.T) {
	reg := testRegistry(stackProbe())
	cases := []struct {
		name string
		src  string
	}{
		{"syntax error", `check "a" {`},
		{"missing implemented", `check "a" { description = "no verdict" }`},
		{"duplicate check", `
check "a" { implemented = true }
check "a" { implemented = false }
`},
		{"unknown probe type", `
check "a" {
  probe "dns_lookup" "x" {}
  implemented = true
}
`},
		{"undeclared probe argument", `
check "a" {
  probe "cfn_stack" "x" {
    region = "us-east-1"
  }
  implemented = true
}
`},
		{"duplicate probe name", `
check "a" {
  probe "cfn_stack" "x" {}
  probe "cfn_stack" "x" {}
  implemented = true
}
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(context.Background(), []byte(tc.src), "checks.hcl", reg)
			require.Error(t, err)
			assert.Equal(t, fault.LoadError, fault.KindOf(err))
		})
	}
}
