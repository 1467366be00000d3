// Package client provides the REST client for the integration-management backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/dukex/conduit/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dukex/conduit/pkg/client"

const (
	contentTypeJSON = "application/json"
	contentTypeZip  = "application/zip"
)

// Client calls the backend REST API. Headers and base URL are injected by the
// caller; the client itself holds no per-document state and is safe for
// concurrent use.
type Client struct {
	baseURL string
	headers http.Header
	http    *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHeaders sets headers sent on every request (e.g. authorization).
func WithHeaders(headers http.Header) Option {
	return func(c *Client) {
		for k, values := range headers {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithHeader adds a single header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithHTTPClient replaces the transport. Timeouts are the transport's concern.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer for client spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// New creates a client for the API rooted at baseURL (e.g. "https://host/api/v1").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: make(http.Header),
		http:    http.DefaultClient,
		logger:  slog.Default(),
		tracer:  otelhelper.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	attrs       []attribute.KeyValue
}

// do performs the request and returns the response when its status is 2xx.
// Any other status is turned into a *NetworkError and the body is closed.
func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	ctx, span := otelhelper.StartCall(ctx, c.tracer, r.op, r.method, r.attrs...)
	defer span.End()

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		otelhelper.RecordError(span, err)

		return nil, fmt.Errorf("failed to create %s request: %w", r.op, err)
	}

	req.Header = maps.Clone(c.headers)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", contentTypeJSON)
	}

	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	otelhelper.Inject(ctx, req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		otelhelper.RecordError(span, err)

		return nil, fmt.Errorf("%s request failed: %w", r.op, err)
	}

	otelhelper.RecordResponse(span, resp.StatusCode)
	c.logger.DebugContext(ctx, "Backend call", "op", r.op, "method", r.method, "url", target, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		return nil, newNetworkError(r.op, req, resp)
	}

	return resp, nil
}

// call performs a request with an optional JSON payload and decodes the JSON
// response into out when out is non-nil.
func (c *Client) call(ctx context.Context, r request, payload, out any) error {
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", r.op, err)
		}

		r.body = bytes.NewReader(body)
		r.contentType = contentTypeJSON
	}

	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}

	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", r.op, err)
	}

	return nil
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
