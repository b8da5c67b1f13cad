package network_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avvvet/beckn-intent/internal/network"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallSuccess(t *testing.T) {
	var captured struct {
		method string
		header string
		body   map[string]any
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.header = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ack":"ok"}`))
	}))
	defer server.Close()

	c := network.NewClient(5*time.Second, zerolog.Nop())

	result := c.Call(context.Background(), server.URL, "POST",
		map[string]any{"hello": "world"},
		map[string]string{"Authorization": "Bearer token"})

	require.True(t, result.Status)
	assert.Equal(t, "ok", result.Data["ack"])
	assert.Equal(t, "POST", captured.method)
	assert.Equal(t, "Bearer token", captured.header)
	assert.Equal(t, "world", captured.body["hello"])
}

func TestCallUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusBadGateway)
	}))
	defer server.Close()

	c := network.NewClient(5*time.Second, zerolog.Nop())

	result := c.Call(context.Background(), server.URL, "POST", nil, nil)

	assert.False(t, result.Status)
	assert.Contains(t, result.Error, "502")
}

func TestCallTransportError(t *testing.T) {
	c := network.NewClient(time.Second, zerolog.Nop())

	result := c.Call(context.Background(), "http://127.0.0.1:1", "GET", nil, nil)

	assert.False(t, result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestCallNonJSONBodyPreserved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	}))
	defer server.Close()

	c := network.NewClient(5*time.Second, zerolog.Nop())

	result := c.Call(context.Background(), server.URL, "GET", nil, nil)

	require.True(t, result.Status)
	assert.Equal(t, "plain text", result.Data["raw"])
}

func TestCallDefaultsToPost(t *testing.T) {
	var method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := network.NewClient(5*time.Second, zerolog.Nop())
	c.Call(context.Background(), server.URL, "", nil, nil)

	assert.Equal(t, "POST", method)
}
