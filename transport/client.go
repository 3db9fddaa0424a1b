package transport

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-auth-session/core"
)

const (
	defaultClientTimeout           = 30 * time.Second
	defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

	tracerName = "github.com/goliatone/go-auth-session/transport"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the auth API. Every failure it returns is a core.Failure.
type Client struct {
	baseURL              string
	http                 HTTPDoer
	signer               RequestSigner
	defaultHeaders       map[string]string
	limiter              *rate.Limiter
	tracer               trace.Tracer
	logger               core.Logger
	maxResponseBodyBytes int64
}

type ClientOption func(*Client)

func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithSigner replaces the storage-backed bearer signer.
func WithSigner(signer RequestSigner) ClientOption {
	return func(c *Client) {
		c.signer = signer
	}
}

func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for key, value := range headers {
			c.defaultHeaders[key] = value
		}
	}
}

// WithRateLimiter makes every request wait on limiter before it is sent.
func WithRateLimiter(limiter *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

func WithTracer(tracer trace.Tracer) ClientOption {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

func WithLogger(logger core.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMaxResponseBodyBytes(limit int64) ClientOption {
	return func(c *Client) {
		c.maxResponseBodyBytes = limit
	}
}

// NewClient builds a client rooted at baseURL. When storage is set its
// accessToken is attached as a bearer credential on every request.
func NewClient(baseURL string, storage core.Storage, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, configurationError("transport: base url must be an absolute url", baseURL)
	}
	client := &Client{
		baseURL:              baseURL,
		http:                 &http.Client{Timeout: defaultClientTimeout},
		defaultHeaders:       map[string]string{"Content-Type": "application/json", "Accept": "application/json"},
		tracer:               otel.Tracer(tracerName),
		maxResponseBodyBytes: defaultResponseBodyLimit,
	}
	if storage != nil {
		client.signer = StorageBearerSigner{Storage: storage}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.logger == nil {
		client.logger = glog.Nop()
	}
	if client.maxResponseBodyBytes <= 0 {
		client.maxResponseBodyBytes = defaultResponseBodyLimit
	}
	return client, nil
}

func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// Request sends body as JSON to endpoint and decodes a 2xx response into out.
// out may be nil. headers are merged over the defaults.
func (c *Client) Request(
	ctx context.Context,
	endpoint string,
	method string,
	body any,
	headers map[string]string,
	out any,
) (err error) {
	if c == nil || c.http == nil {
		return &core.UnknownError{Message: "transport: client is not configured"}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	method = strings.TrimSpace(strings.ToUpper(method))
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := c.tracer.Start(ctx, "auth_session.http "+endpointPath(endpoint),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("auth_session.endpoint", endpointPath(endpoint)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.limiter != nil {
		if waitErr := c.limiter.Wait(ctx); waitErr != nil {
			return &core.NetworkError{Cause: waitErr}
		}
	}

	var payload io.Reader
	if body != nil {
		encoded, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return &core.UnknownError{Message: "transport: encode request body", Cause: marshalErr}
		}
		payload = bytes.NewReader(encoded)
	}

	httpReq, reqErr := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, payload)
	if reqErr != nil {
		return &core.UnknownError{Message: "transport: create http request", Cause: reqErr}
	}
	for key, value := range c.defaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), value)
	}
	// The stored bearer wins over a caller-supplied Authorization header.
	if c.signer != nil {
		if signErr := c.signer.Sign(ctx, httpReq); signErr != nil {
			return core.Normalize(signErr, "transport: sign request")
		}
	}

	httpRes, doErr := c.http.Do(httpReq)
	if doErr != nil {
		c.logger.Debug("auth api unreachable", "endpoint", endpointPath(endpoint), "error", doErr.Error())
		return &core.NetworkError{Cause: doErr}
	}
	defer httpRes.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", httpRes.StatusCode))

	raw, readErr := io.ReadAll(io.LimitReader(httpRes.Body, c.maxResponseBodyBytes+1))
	if readErr != nil {
		return &core.NetworkError{Cause: readErr}
	}
	if int64(len(raw)) > c.maxResponseBodyBytes {
		return &core.UnknownError{
			Message: fmt.Sprintf("transport: response body exceeds limit of %d bytes", c.maxResponseBodyBytes),
		}
	}

	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		return decodeErrorResponse(httpRes.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if decodeErr := json.Unmarshal(raw, out); decodeErr != nil {
		return &core.UnknownError{Message: "transport: decode response body", Cause: decodeErr}
	}
	return nil
}

func endpointPath(endpoint string) string {
	if index := strings.IndexByte(endpoint, '?'); index >= 0 {
		return endpoint[:index]
	}
	return endpoint
}
