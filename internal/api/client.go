// Package api is a thin client for the model backend's REST API.
//
// Every method maps to exactly one HTTP request. The client keeps no state
// between calls; it does not retry, cache or reorder requests.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBaseURL is used when no backend URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// RequestIDHeader carries a per-request id for correlating client and server logs.
const RequestIDHeader = "X-Request-ID"

// tracerName identifies spans created by this package.
const tracerName = "observatory/api"

// Options configures a Client.
type Options struct {
	// BaseURL is the backend root, e.g. http://localhost:8000. Paths are
	// appended under /api.
	BaseURL string
	// HTTPClient defaults to a new http.Client without a global timeout.
	HTTPClient *http.Client
	// Timeout bounds plain JSON requests. Uploads and downloads are not
	// bounded. Zero disables it.
	Timeout time.Duration
	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer
}

// Client calls the backend. It is safe for concurrent use.
type Client struct {
	httpclient *http.Client
	base       string
	timeout    time.Duration
	tracer     trace.Tracer
	requestID  func() string
}

// NewClient validates opts and returns a client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse backend url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", base)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend url %q: missing host", base)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = new(http.Client)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Client{
		httpclient: hc,
		base:       strings.TrimSuffix(base, "/"),
		timeout:    opts.Timeout,
		tracer:     tracer,
		requestID:  func() string { return uuid.NewString() },
	}, nil
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string {
	return c.base
}

// apipath builds a URL under /api, escaping each segment.
func (c *Client) apipath(segments ...string) string {
	parts := make([]string, 0, len(segments)+2)
	parts = append(parts, c.base, "api")
	for _, s := range segments {
		parts = append(parts, url.PathEscape(strings.Trim(s, "/")))
	}
	return strings.Join(parts, "/")
}

// ActiveDownloadURL is where the active artifact of a model can be fetched.
func (c *Client) ActiveDownloadURL(modelID ID) string {
	return c.apipath("models", modelID.String(), "artifacts", "active", "download")
}

// ArtifactDownloadURL is where a specific artifact can be fetched.
func (c *Client) ArtifactDownloadURL(modelID, artifactID ID) string {
	return c.apipath("models", modelID.String(), "artifacts", artifactID.String(), "download")
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(RequestIDHeader, c.requestID())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req inside a client span named op. Transport failures come back
// as *NetworkError; the caller owns resp.Body otherwise.
func (c *Client) do(ctx context.Context, op string, req *http.Request) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("observatory.request_id", req.Header.Get(RequestIDHeader)),
		),
	)
	defer span.End()

	req = req.WithContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	fields := log.Fields{
		"op":         op,
		"method":     req.Method,
		"url":        req.URL.String(),
		"request_id": req.Header.Get(RequestIDHeader),
	}
	start := time.Now()
	resp, err := c.httpclient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		log.WithFields(fields).WithError(err).Warn("backend request failed")
		return nil, &NetworkError{Op: op, Err: err}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if StatusCodeRangeOf(resp) != Status2xx {
		span.SetStatus(codes.Error, resp.Status)
	}
	fields["status"] = resp.StatusCode
	fields["latency_ms"] = time.Since(start).Milliseconds()
	log.WithFields(fields).Debug("backend request completed")
	return resp, nil
}

// withTimeout applies the client timeout unless ctx already has a deadline.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// doJSON sends an optional JSON body and decodes an optional JSON answer into out.
func (c *Client) doJSON(ctx context.Context, op, method, target string, in, out interface{}, messageFor MessageFor) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, target, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.do(ctx, op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return discardResponse(resp, messageFor)
	}
	return decodeJSONResponse(resp, out, messageFor)
}
