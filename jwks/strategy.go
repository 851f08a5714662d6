package jwks

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kidwatch/jwks-strategy/telemetry"
)

// SigningKeySource resolves the signer for a kid taken from a token header.
// It is the interface the token validator consumes.
type SigningKeySource interface {
	MatchSigner(kid string) (*Signer, error)
}

// Strategy keeps the signers published at one JWKS endpoint.
//
// A started Strategy owns a single background goroutine that is the only
// one fetching keys. Lookups through MatchSigner never block and never
// perform I/O: a miss only flags the key set for refresh, and the next tick
// of the scheduler fetches it again. Misses within one tick interval are
// coalesced into a single fetch.
//
// Example:
//
//	s, err := jwks.New("default",
//	    jwks.WithJWKSURL("https://issuer.example.com/.well-known/jwks.json"),
//	    jwks.WithTimeInterval(time.Minute),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Stop()
//
//	signer, err := s.MatchSigner(kid)
type Strategy struct {
	name    string
	cfg     *config
	cache   keyCache
	fetcher *Fetcher
	logger  logrus.FieldLogger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds a Strategy named name. The name identifies the strategy in
// logs, metrics and the Registry.
//
// Required options:
//   - WithJWKSURL
//
// Optional options:
//   - WithTimeInterval, WithShouldStart, WithFirstFetchSync, WithExplicitAlg
//   - WithHTTPMaxRetries, WithHTTPDelayPerRetry, WithHTTPClient
//   - WithLogger, WithMetrics, WithTracerProvider
//
// A missing or invalid option is reported as invalid_configuration.
func New(name string, opts ...Option) (*Strategy, error) {
	if name == "" {
		return nil, newError(ErrInvalidConfiguration, fmt.Errorf("strategy name cannot be empty"))
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, newError(ErrInvalidConfiguration, fmt.Errorf("invalid option: %w", err))
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, newError(ErrInvalidConfiguration, err)
	}

	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if cfg.logger == nil {
		cfg.logger = logrus.StandardLogger()
	}
	if cfg.metrics == nil {
		cfg.metrics = telemetry.NoopMetrics{}
	}

	return &Strategy{
		name:    name,
		cfg:     cfg,
		fetcher: newFetcher(name, cfg),
		logger:  cfg.logger.WithFields(logrus.Fields{"strategy": name, "jwks_url": cfg.jwksURL}),
	}, nil
}

// Name returns the strategy name.
func (s *Strategy) Name() string { return s.name }

// JWKSURL returns the endpoint the strategy fetches from.
func (s *Strategy) JWKSURL() string { return s.cfg.jwksURL }

// RefreshState reports whether the next tick will fetch the key set.
func (s *Strategy) RefreshState() RefreshState { return s.cache.refreshState() }

// Signers returns the installed key set, or false when no fetch has
// succeeded yet.
func (s *Strategy) Signers() (*KeySet, bool) { return s.cache.signers() }

// MatchSigner returns the signer published under kid.
//
// It returns no_signers_fetched while no key set has been installed, and
// kid_does_not_match when kid is absent from the installed set. The latter
// also flags the key set for refresh on the next tick.
func (s *Strategy) MatchSigner(kid string) (*Signer, error) {
	keys, ok := s.cache.signers()
	if !ok {
		return nil, ErrNoSignersFetched
	}

	if signer, ok := keys.Lookup(kid); ok {
		return signer, nil
	}

	if s.cache.markNeeded() {
		s.cfg.metrics.RefreshTriggered(s.name)
		s.logger.WithField("kid", kid).Debug("kid not found, refresh scheduled")
	}

	return nil, ErrKidDoesNotMatch
}

// Start launches the refresh scheduler. With WithFirstFetchSync(true) it
// returns once the first fetch has completed; a failed first fetch is
// logged and retried on the following ticks, it does not fail Start.
//
// Start returns an error only when called twice.
func (s *Strategy) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return newError(ErrStrategyAlreadyStarted, fmt.Errorf("strategy %q", s.name))
	}
	s.started = true

	if !s.cfg.shouldStart {
		s.logger.Info("jwks strategy configured not to start")
		return nil
	}

	s.cache.forceNeeded()

	first := s.cfg.timeInterval
	if s.cfg.firstFetchSync {
		_ = s.refresh(ctx)
	} else {
		first = 0
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	go s.run(runCtx, first, done)

	s.logger.WithField("interval", s.cfg.timeInterval).Info("jwks strategy started")
	return nil
}

// Stop cancels the scheduler, waits for it to exit and releases the key
// set. Stop is safe to call more than once.
func (s *Strategy) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.cache.reset()
	s.logger.Info("jwks strategy stopped")
}
