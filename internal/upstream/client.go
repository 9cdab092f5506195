// Package upstream calls the gateway's backend services (parser, ML, proxy
// rotation) through a per-service circuit breaker.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"parcel-gateway/internal/observability/metrics"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 10 << 20
)

// Request describes one upstream call. Path is joined onto the client's
// base URL.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    []byte
	Header  http.Header
	Timeout time.Duration // zero uses the client default
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client sends requests to one named upstream.
type Client struct {
	name    string
	baseURL *url.URL
	breaker *Breaker
	http    *http.Client
	timeout time.Duration
	tracer  trace.Tracer
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(c *Client) { c.tracer = tp.Tracer("parcel-gateway/upstream") }
}

// NewClient returns a client for the upstream called name at baseURL,
// guarded by breaker.
func NewClient(name, baseURL string, breaker *Breaker, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("upstream %s: parse base url: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("upstream %s: base url %q must be http or https", name, baseURL)
	}
	if breaker == nil {
		return nil, fmt.Errorf("upstream %s: breaker is required", name)
	}

	c := &Client{
		name:    name,
		baseURL: u,
		breaker: breaker,
		http:    &http.Client{},
		timeout: defaultTimeout,
		tracer:  otel.Tracer("parcel-gateway/upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return c.name }

// Do performs req. It fails fast with ErrCircuitOpen when the breaker
// refuses the call. Transport errors, timeouts and 5xx responses count as
// breaker failures and return *UnavailableError; every other status,
// including 4xx, counts as a success and is returned as a Response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	permit, ok := c.breaker.Acquire()
	if !ok {
		metrics.RecordUpstreamCall(c.name, "circuit_open", 0)
		return nil, fmt.Errorf("upstream %s: %w", c.name, ErrCircuitOpen)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	ctx, span := c.tracer.Start(ctx, "upstream "+c.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("upstream.name", c.name),
			attribute.String("http.method", method),
			attribute.String("http.path", req.Path),
		))
	defer span.End()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.send(callCtx, method, req)
	elapsed := time.Since(start)

	switch {
	case err != nil && errors.Is(ctx.Err(), context.Canceled):
		// The caller went away; this says nothing about the upstream.
		c.breaker.Release(permit)
		metrics.RecordUpstreamCall(c.name, "canceled", elapsed)
		span.SetStatus(codes.Error, "canceled")
		return nil, fmt.Errorf("upstream %s: %w", c.name, ctx.Err())

	case err != nil:
		c.breaker.RecordFailure()
		outcome := "transport_error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.RecordUpstreamCall(c.name, outcome, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, &UnavailableError{Upstream: c.name, Err: err}

	case resp.StatusCode >= http.StatusInternalServerError:
		c.breaker.RecordFailure()
		metrics.RecordUpstreamCall(c.name, "server_error", elapsed)
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		return nil, &UnavailableError{Upstream: c.name, StatusCode: resp.StatusCode}
	}

	c.breaker.RecordSuccess()
	outcome := "success"
	if resp.StatusCode >= http.StatusBadRequest {
		outcome = "client_error"
	}
	metrics.RecordUpstreamCall(c.name, outcome, elapsed)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return resp, nil
}

func (c *Client) send(ctx context.Context, method string, req Request) (*Response, error) {
	target := c.baseURL.JoinPath(strings.TrimPrefix(req.Path, "/"))
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}
