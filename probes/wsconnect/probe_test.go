package wsconnect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/Wollering/CTF-Assessment-Engine/internal/probe"
)

func TestRunConnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	out, err := New().Run(context.Background(), probe.Input{}, map[string]cty.Value{
		"url": cty.StringVal(url),
	})
	require.NoError(t, err)
	assert.Equal(t, cty.True, out.GetAttr("connected"))
}

func TestRunRefusedUpgrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no websockets here", http.StatusBadRequest)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	out, err := New().Run(context.Background(), probe.Input{}, map[string]cty.Value{
		"url": cty.StringVal(url),
	})
	require.NoError(t, err)
	assert.Equal(t, cty.False, out.GetAttr("connected"))
	assert.Equal(t, cty.NumberIntVal(400), out.GetAttr("status_code"))
}

func TestRunMissingURL(t *testing.T) {
	_, err := New().Run(context.Background(), probe.Input{}, nil)
	require.Error(t, err)
}
