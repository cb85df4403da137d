package client

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/artifactory/client/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	basicAuth       *[2]string
	apiKey          string
	client          *http.Client
	rt              http.RoundTripper
	timeout         *time.Duration
	maxConnsPerHost int
	userAgent       string
	throttle        *throttle.Config
	logger          *slog.Logger
	tracer          trace.Tracer
}

// WithBasicAuth authenticates every request with an HTTP Basic
// Authorization header. It is mutually exclusive with [WithAPIKey].
func WithBasicAuth(username, password string) Option {
	return func(o *options) error {
		if username == "" {
			return fmt.Errorf("%w: username must not be empty", ErrInvalidInput)
		}
		o.basicAuth = &[2]string{username, password}
		return nil
	}
}

// WithAPIKey authenticates every request with the X-JFrog-Art-Api header.
// It is mutually exclusive with [WithBasicAuth].
func WithAPIKey(key string) Option {
	return func(o *options) error {
		if key == "" {
			return fmt.Errorf("%w: api key must not be empty", ErrInvalidInput)
		}
		o.apiKey = key
		return nil
	}
}

// WithClient replaces the [http.Client] used by the [Client].
// Its Transport, if set, becomes the base transport.
func WithClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		o.timeout = &d
		return nil
	}
}

// WithMaxConnsPerHost bounds the connection pool of the default transport.
// It has no effect when a transport is supplied.
func WithMaxConnsPerHost(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("max conns per host[%d] %w", n, throttle.ErrMustNotBeZero)
		}
		o.maxConnsPerHost = n
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(o *options) error {
		o.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		o.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithTracer sets the tracer used to start a client span per request.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}

// credentials returns the single auth header configured by the options.
func (o *options) credentials() (name, value string, err error) {
	switch {
	case o.basicAuth != nil && o.apiKey != "":
		return "", "", fmt.Errorf("%w: basic auth and api key are mutually exclusive", ErrInvalidInput)
	case o.basicAuth != nil:
		token := base64.StdEncoding.EncodeToString([]byte(o.basicAuth[0] + ":" + o.basicAuth[1]))
		return "Authorization", "Basic " + token, nil
	case o.apiKey != "":
		return headerAPIKey, o.apiKey, nil
	default:
		return "", "", fmt.Errorf("%w: one of basic auth or api key is required", ErrInvalidInput)
	}
}

// header is an http.RoundTripper, setting a persistent header.
type header struct {
	name  string
	value string
	base  http.RoundTripper
}

func (h header) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set(h.name, h.value)
	return h.base.RoundTrip(cpy)
}

// requestOption configures a single call to [Client.request].
type requestOption func(*requestOpts)

type requestOpts struct {
	rawQuery    string
	body        []byte
	contentType string
	headers     http.Header
}

// withQuery sets the encoded query string.
func withQuery(rawQuery string) requestOption {
	return func(opts *requestOpts) {
		opts.rawQuery = rawQuery
	}
}

// withBody sets the request payload and its content type.
func withBody(body []byte, contentType string) requestOption {
	return func(opts *requestOpts) {
		opts.body = body
		opts.contentType = contentType
	}
}

// withHeader adds a header to the outgoing request.
func withHeader(key, value string) requestOption {
	return func(opts *requestOpts) {
		if opts.headers == nil {
			opts.headers = make(http.Header)
		}
		opts.headers.Add(key, value)
	}
}
