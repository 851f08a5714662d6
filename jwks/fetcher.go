package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kidwatch/jwks-strategy/telemetry"
)

// maxResponseSize limits JWKS response bodies. 1MB is generous for JWKS
// (typically <10KB).
const maxResponseSize = 1 << 20

// RetryPolicy bounds the attempts of a single fetch.
type RetryPolicy struct {
	// MaxRetries is the number of attempts made after the first one.
	MaxRetries int
	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// Fetcher performs JWKS GET requests for one source. Transport failures and
// 5xx responses are retried according to the RetryPolicy; every other
// outcome is final.
type Fetcher struct {
	client  *http.Client
	source  string
	logger  logrus.FieldLogger
	metrics telemetry.Metrics
	tracer  trace.Tracer
}

func newFetcher(source string, cfg *config) *Fetcher {
	return &Fetcher{
		client:  cfg.httpClient,
		source:  source,
		logger:  cfg.logger,
		metrics: cfg.metrics,
		tracer:  telemetry.Tracer(cfg.tracerProvider),
	}
}

// jwksResponse is the expected body shape. Keys is a pointer so a missing
// field can be told apart from an empty array.
type jwksResponse struct {
	Keys *[]json.RawMessage `json:"keys"`
}

// Fetch downloads the key set published at jwksURL and returns its raw
// entries. The returned error is always a *Error.
func (f *Fetcher) Fetch(ctx context.Context, jwksURL string, policy RetryPolicy) ([]json.RawMessage, error) {
	start := time.Now()
	ctx, span := f.tracer.Start(ctx, "jwks.fetch", trace.WithAttributes(
		attribute.String(telemetry.AttrSource, f.source),
		attribute.String(telemetry.AttrURL, jwksURL),
	))
	defer span.End()

	log := f.logger.WithFields(logrus.Fields{"strategy": f.source, "jwks_url": jwksURL})
	log.Debug("jwks fetch started")

	attempts := 0
	var keys []json.RawMessage
	operation := func() error {
		attempts++
		var err error
		keys, err = f.fetchOnce(ctx, jwksURL)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(policy.MaxRetries)),
		ctx,
	)
	notify := func(err error, next time.Duration) {
		log.WithError(err).WithField("retry_in", next).Debug("jwks fetch attempt failed")
	}
	err := backoff.RetryNotify(operation, b, notify)
	duration := time.Since(start)

	span.SetAttributes(attribute.Int(telemetry.AttrAttempts, attempts))
	if err != nil {
		jerr := classifyFinal(err)
		span.RecordError(jerr)
		span.SetStatus(codes.Error, jerr.Code)
		span.SetAttributes(attribute.String(telemetry.AttrOutcome, jerr.Code))
		f.metrics.FetchObserved(f.source, jerr.Code, duration)
		log.WithError(jerr).WithFields(logrus.Fields{
			"code":     jerr.Code,
			"attempts": attempts,
			"duration": duration,
		}).Error("jwks fetch failed")
		return nil, jerr
	}

	span.SetAttributes(
		attribute.String(telemetry.AttrOutcome, telemetry.OutcomeOK),
		attribute.Int(telemetry.AttrKeys, len(keys)),
	)
	f.metrics.FetchObserved(f.source, telemetry.OutcomeOK, duration)
	log.WithFields(logrus.Fields{
		"attempts": attempts,
		"duration": duration,
		"keys":     len(keys),
	}).Debug("jwks fetch finished")

	return keys, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, jwksURL string) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, newError(ErrCouldNotReachJWKSURL, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, newError(ErrCouldNotReachJWKSURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, newError(ErrServerHTTPError, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, newError(ErrClientHTTPError, fmt.Errorf("status %d", resp.StatusCode))
	}

	var body jwksResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return nil, newError(ErrNoKeysOnResponse, fmt.Errorf("failed to decode body: %w", err))
	}
	if body.Keys == nil {
		return nil, newError(ErrNoKeysOnResponse, nil)
	}

	return *body.Keys, nil
}

// retryable reports whether another attempt may succeed.
func retryable(err error) bool {
	switch ErrorCode(err) {
	case CodeCouldNotReachJWKSURL, CodeServerHTTPError:
		return true
	default:
		return false
	}
}

// classifyFinal turns the error returned by the retry loop into a *Error.
// Context cancellation surfaces as could_not_reach_jwks_url.
func classifyFinal(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(ErrCouldNotReachJWKSURL, err)
}
