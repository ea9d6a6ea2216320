// Package wsconnect probes websocket reachability of the assessed
// deployment: dial, confirm the upgrade, disconnect.
package wsconnect

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/zclconf/go-cty/cty"

	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/probe"
)

// Probe implements probe.Handler for the 'ws_connect' probe type.
type Probe struct {
	dialer *websocket.Dialer
}

// New builds the probe with the default dialer.
func New() *Probe {
	return &Probe{dialer: websocket.DefaultDialer}
}

func (p *Probe) Name() string { return "ws_connect" }

func (p *Probe) Schema() map[string]cty.Type {
	return map[string]cty.Type{
		"url": cty.String,
	}
}

// Run dials the websocket endpoint. A refused upgrade is a result, not an
// error: the check's expression decides what it means.
func (p *Probe) Run(ctx context.Context, _ probe.Input, args map[string]cty.Value) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("probe", p.Name())

	urlArg, ok := args["url"]
	if !ok || urlArg.IsNull() {
		return cty.NilVal, fmt.Errorf("ws_connect probe requires a 'url' argument")
	}
	url := urlArg.AsString()

	conn, resp, err := p.dialer.DialContext(ctx, url, nil)
	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
		defer resp.Body.Close()
	}
	if err != nil {
		logger.Debug("Websocket dial failed.", "url", url, "status", statusCode, "error", err)
		return cty.ObjectVal(map[string]cty.Value{
			"connected":   cty.False,
			"status_code": cty.NumberIntVal(int64(statusCode)),
		}), nil
	}
	defer conn.Close()

	logger.Debug("Websocket connected.", "url", url)
	return cty.ObjectVal(map[string]cty.Value{
		"connected":   cty.True,
		"status_code": cty.NumberIntVal(int64(statusCode)),
	}), nil
}
