package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/daybook/internal/wire"
	json "github.com/goccy/go-json"
)

// HTTPClient posts sync requests to the endpoint at baseURL.
// It is safe for concurrent use.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

// WithTimeout sets a per-request timeout on the default client.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) { h.http.Timeout = d }
}

func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Ping checks that the endpoint is up and has a store behind it.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health/ready", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapTransportError(ctx, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: readiness returned %d", ErrSyncNotConfigured, resp.StatusCode)
	}
	return nil
}

// post sends body to the endpoint of kind and decodes a 200 response into out.
func (c *HTTPClient) post(ctx context.Context, kind string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", kind, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+wire.PathPrefix+kind, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return mapStatus(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: malformed %s response: %v", ErrServer, kind, err)
	}
	return nil
}

// mapTransportError keeps caller cancellation visible and folds everything
// else into ErrUnavailable.
func (c *HTTPClient) mapTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func mapStatus(code int, body []byte) error {
	var e wire.ErrorResponse
	_ = json.Unmarshal(body, &e)

	msg := e.Error
	if e.Message != "" {
		msg = e.Message
	}
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch {
	case code == http.StatusBadRequest || code == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %s", ErrBadRequest, msg)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrRecordNotFound, msg)
	case code == http.StatusConflict:
		return &RejectedError{Conflict: e.Conflict}
	case code == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", ErrSyncNotConfigured, msg)
	case code == http.StatusBadGateway || code == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	default:
		if e.Details != "" {
			msg += ": " + e.Details
		}
		return fmt.Errorf("%w: %d %s", ErrServer, code, msg)
	}
}

// RejectedError carries the server's conflict report for a refused delete.
type RejectedError struct {
	Conflict *wire.Conflict
}

func (e *RejectedError) Error() string {
	if e.Conflict == nil {
		return ErrRejected.Error()
	}
	return fmt.Sprintf("%s: %s updated at %s", ErrRejected, e.Conflict.ID, e.Conflict.ServerUpdatedAt.Format(time.RFC3339Nano))
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}
