// Package httpget probes a public endpoint of the assessed deployment,
// typically a URL published as a stack output.
package httpget

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/zclconf/go-cty/cty"

	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/probe"
)

// maxBodyBytes caps how much response body a check can pull into its
// evaluation context.
const maxBodyBytes = 64 * 1024

// httpClient is shared across invocations to reuse TCP connections. The
// per-check deadline rides on the request context.
var httpClient = &http.Client{}

// Probe implements probe.Handler for the 'http_get' probe type.
type Probe struct{}

// New builds the probe.
func New() *Probe { return &Probe{} }

func (p *Probe) Name() string { return "http_get" }

func (p *Probe) Schema() map[string]cty.Type {
	return map[string]cty.Type{
		"url": cty.String,
	}
}

// Run issues a GET and reports the status code and (truncated) body.
func (p *Probe) Run(ctx context.Context, _ probe.Input, args map[string]cty.Value) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("probe", p.Name())

	urlArg, ok := args["url"]
	if !ok || urlArg.IsNull() {
		return cty.NilVal, fmt.Errorf("http_get probe requires a 'url' argument")
	}
	url := urlArg.AsString()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to read response body: %w", err)
	}

	logger.Debug("HTTP probe response.", "url", url, "status", resp.Status)
	return cty.ObjectVal(map[string]cty.Value{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"body":        cty.StringVal(string(body)),
	}), nil
}
