package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/artifactory/client/throttle"
)

// Client is an authenticated connection to a single Artifactory instance.
// It is safe for concurrent use; every call shares one connection pool.
// Close must be called once all calls have returned.
type Client struct {
	c         *http.Client
	baseURL   *url.URL
	logger    *slog.Logger
	tracer    trace.Tracer
	closeIdle func()

	mu     sync.RWMutex
	closed bool
}

// Build creates a [Client] for the API rooted at baseURL, e.g.
// "https://host:8081/artifactory". Exactly one of [WithBasicAuth] or
// [WithAPIKey] must be given.
func Build(baseURL string, optFns ...Option) (*Client, error) {
	if err := Validate(buildArgs{BaseURL: baseURL}); err != nil {
		return nil, err
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing base url: %w", ErrInvalidInput, err)
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	authName, authValue, err := opts.credentials()
	if err != nil {
		return nil, err
	}

	client := &Client{
		c:       &http.Client{},
		baseURL: u,
		logger:  slog.Default(),
		tracer:  noop.NewTracerProvider().Tracer("artifactory"),
	}

	if opts.client != nil {
		hc := *opts.client
		client.c = &hc
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = newTransport(opts.maxConnsPerHost)
	}
	if ci, ok := transport.(interface{ CloseIdleConnections() }); ok {
		client.closeIdle = ci.CloseIdleConnections
	}

	if opts.userAgent != "" {
		transport = header{name: "User-Agent", value: opts.userAgent, base: transport}
	}
	transport = header{name: authName, value: authValue, base: transport}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	return client, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Close releases the client's pooled connections. It waits for
// in-flight calls to return. Calling Close more than once is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.closeIdle != nil {
		c.closeIdle()
	}
	c.logger.Debug("client closed", "baseURL", c.baseURL.String())

	return nil
}

// request is the single primitive behind every buffered operation. It
// joins opPath onto the base path, executes the call, decodes the body
// according to its content type and classifies the outcome.
func (c *Client) request(ctx context.Context, method, opPath string, optFns ...requestOption) (int, Body, error) {
	var opts requestOpts
	for _, opt := range optFns {
		opt(&opts)
	}

	req, err := c.newRequest(ctx, method, opPath, opts)
	if err != nil {
		return 0, Body{}, err
	}

	var status int
	var body Body
	readFn := func(resp *http.Response) error {
		status = resp.StatusCode

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}

		body, err = decode(resp.Header.Get("Content-Type"), raw, success(status))
		if err != nil {
			return err
		}

		return classify(method, opPath, status, body)
	}

	if err := c.exec(req, readFn); err != nil {
		return status, body, err
	}

	return status, body, nil
}

// newRequest builds the *http.Request for an operation path.
func (c *Client) newRequest(ctx context.Context, method, opPath string, opts requestOpts) (*http.Request, error) {
	endpoint := *c.baseURL
	endpoint.Path = c.baseURL.Path + "/" + strings.TrimLeft(opPath, "/")
	endpoint.RawPath = ""
	endpoint.RawQuery = opts.rawQuery

	var payload io.Reader
	if opts.body != nil {
		payload = bytes.NewReader(opts.body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), payload)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	if opts.contentType != "" {
		req.Header.Set("Content-Type", opts.contentType)
	}
	for k, v := range opts.headers {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}

	return req, nil
}

// exec runs the request and hands the response to fn. The response body
// is drained and closed on every path.
func (c *Client) exec(req *http.Request, fn execFn) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}

	ctx, span := c.tracer.Start(req.Context(), "artifactory.request", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("url.path", req.URL.Path),
	)

	requestID := uuid.NewString()
	req = req.WithContext(ctx)
	req.Header.Set(headerRequestID, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.c.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return fmt.Errorf("exec http do: %w", err)
	}

	defer func() {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			c.logger.Error("failed to discard unused body", "error", err, "requestID", requestID)
		}
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err, "requestID", requestID)
		}
	}()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("http request", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode,
		"requestID", requestID, "elapsed", time.Since(start).String())

	if err := fn(resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		return err
	}

	return nil
}

// newTransport returns the pooled transport shared by all of a client's calls.
func newTransport(maxConnsPerHost int) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	if maxConnsPerHost > 0 {
		t.MaxConnsPerHost = maxConnsPerHost
		t.MaxIdleConnsPerHost = maxConnsPerHost
	}

	return t
}

func success(status int) bool {
	return status >= 200 && status < 300
}

type buildArgs struct {
	BaseURL string `arg:"baseURL" validate:"required,url"`
}
