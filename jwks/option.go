package jwks

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/kidwatch/jwks-strategy/telemetry"
)

// Defaults applied by New.
const (
	DefaultTimeInterval      = 60 * time.Second
	DefaultHTTPMaxRetries    = 10
	DefaultHTTPDelayPerRetry = 500 * time.Millisecond
	DefaultHTTPTimeout       = 30 * time.Second
)

// Option is how options for a Strategy are set up.
// Options return errors to enable validation during construction.
type Option func(*config) error

// config is the immutable configuration of one strategy.
type config struct {
	jwksURL        string
	timeInterval   time.Duration
	shouldStart    bool
	firstFetchSync bool
	explicitAlg    string
	retry          RetryPolicy

	httpClient     *http.Client
	logger         logrus.FieldLogger
	metrics        telemetry.Metrics
	tracerProvider trace.TracerProvider
}

func defaultConfig() *config {
	return &config{
		timeInterval: DefaultTimeInterval,
		shouldStart:  true,
		retry: RetryPolicy{
			MaxRetries: DefaultHTTPMaxRetries,
			Delay:      DefaultHTTPDelayPerRetry,
		},
	}
}

func (c *config) validate() error {
	if c.jwksURL == "" {
		return errors.New("jwks url is required (use WithJWKSURL)")
	}
	return nil
}

// WithJWKSURL sets the endpoint the key set is fetched from.
// This is a required option.
func WithJWKSURL(jwksURL string) Option {
	return func(c *config) error {
		if jwksURL == "" {
			return errors.New("jwks url cannot be empty")
		}
		u, err := url.Parse(jwksURL)
		if err != nil {
			return fmt.Errorf("invalid jwks url: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("jwks url %q must be an absolute http(s) url", jwksURL)
		}
		c.jwksURL = jwksURL
		return nil
	}
}

// WithTimeInterval sets the poll tick period. Lookup misses within one
// interval are coalesced into a single refresh.
//
// Default: 60 seconds
func WithTimeInterval(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return errors.New("time interval must be positive")
		}
		c.timeInterval = d
		return nil
	}
}

// WithShouldStart controls whether the strategy performs any network
// activity. A strategy that should not start reports no_signers_fetched on
// every lookup.
//
// Default: true
func WithShouldStart(value bool) Option {
	return func(c *config) error {
		c.shouldStart = value
		return nil
	}
}

// WithFirstFetchSync makes Start block until the first fetch has completed.
//
// Default: false
func WithFirstFetchSync(value bool) Option {
	return func(c *config) error {
		c.firstFetchSync = value
		return nil
	}
}

// WithExplicitAlg overrides the alg published with each key.
func WithExplicitAlg(alg string) Option {
	return func(c *config) error {
		if alg == "" {
			return errors.New("explicit alg cannot be empty")
		}
		c.explicitAlg = alg
		return nil
	}
}

// WithHTTPMaxRetries sets how many times a failed fetch attempt is
// retried within one refresh.
//
// Default: 10
func WithHTTPMaxRetries(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return errors.New("http max retries cannot be negative")
		}
		c.retry.MaxRetries = n
		return nil
	}
}

// WithHTTPDelayPerRetry sets the fixed delay between fetch attempts.
//
// Default: 500 milliseconds
func WithHTTPDelayPerRetry(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return errors.New("http delay per retry cannot be negative")
		}
		c.retry.Delay = d
		return nil
	}
}

// WithHTTPClient sets the client used for fetching.
// If not specified, a client with a 30s timeout is used.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithLogger sets the logger. Entries carry a "strategy" field.
//
// Default: logrus.StandardLogger()
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *config) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink.
//
// Default: telemetry.NoopMetrics
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *config) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = m
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider used for fetch
// spans.
//
// Default: the global provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) error {
		if tp == nil {
			return errors.New("tracer provider cannot be nil")
		}
		c.tracerProvider = tp
		return nil
	}
}
