// Package network is the outbound HTTP capability used to call the
// commerce network and the order-management backend. Requests are supplied
// fully formed by the pipeline and are never retried here.
package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Result is the outcome of one call. Status=false carries the upstream
// error text; Data holds the parsed response body when present.
type Result struct {
	Status bool           `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type Client struct {
	http   *http.Client
	logger zerolog.Logger
}

func NewClient(timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "network").Logger(),
	}
}

// Call performs one HTTP request. Non-2xx responses and transport errors
// both yield Status=false; the caller decides how to surface that.
func (c *Client) Call(ctx context.Context, url, method string, body any, headers map[string]string) Result {
	c.logger.Info().Str("method", method).Str("url", url).Msg("calling")

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Result{Error: fmt.Sprintf("failed to encode request body: %v", err)}
		}
		payload = bytes.NewReader(raw)
	}

	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return Result{Error: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", url).Msg("call failed")
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Error: fmt.Sprintf("failed to read response: %v", err)}
	}

	data := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			data = map[string]any{"raw": string(raw)}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error().Int("status", resp.StatusCode).Str("url", url).Msg("upstream error")
		return Result{Data: data, Error: fmt.Sprintf("upstream returned %s", resp.Status)}
	}

	c.logger.Debug().Int("status", resp.StatusCode).Str("url", url).Msg("call successful")
	return Result{Status: true, Data: data}
}
