// Package rest is the outbound HTTP adapter. It wraps the injected
// transport, attaches auth headers and per-call deadlines, and maps
// responses onto the client's error taxonomy.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avbdr/partyline/internal/core"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	base    string
	doer    core.Doer
	token   func() string
	timeout time.Duration
}

// New builds a client for the session-manager API. token supplies the
// current bearer token on every call.
func New(base string, doer core.Doer, token func() string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{base: base, doer: doer, token: token, timeout: timeout}
}

// Do issues one call and decodes a 2xx JSON body into out (if non-nil).
// Every call carries an explicit deadline; a deadline expiry surfaces as
// TimeoutError, never as a backend failure.
func (c *Client) Do(ctx context.Context, method, path string, extra http.Header, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &core.EncodingError{Reason: fmt.Sprintf("marshal %s %s: %v", method, path, err)}
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return &core.TransportError{Err: err}
	}
	req.Header.Set("Authorization", "bearer "+c.token())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return &core.TimeoutError{Op: method + " " + path, Err: err}
		}
		return &core.TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &core.TransportError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusPreconditionFailed:
		return &core.ConflictError{Status: resp.StatusCode, Body: string(data)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &core.BackendError{Status: resp.StatusCode, Body: string(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			log.Error().Err(err).Str("module", "rest").Str("path", path).Msg("undecodable 2xx body")
			return &core.TransportError{Err: fmt.Errorf("decode %s %s: %w", method, path, err)}
		}
	}
	return nil
}
