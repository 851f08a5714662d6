package jwks

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// run is the scheduler loop. It is the only caller of refresh once the
// strategy has started, so refreshes of one strategy never overlap.
func (s *Strategy) run(ctx context.Context, first time.Duration, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(first)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.tick(ctx)
		timer.Reset(s.cfg.timeInterval)
	}
}

func (s *Strategy) tick(ctx context.Context) {
	if s.cache.refreshState() == RefreshNotNeeded {
		return
	}
	_ = s.refresh(ctx)
}

// refresh fetches and parses the key set and installs it. On failure the
// previous key set stays in place and the flag stays set so the next tick
// retries.
func (s *Strategy) refresh(ctx context.Context) error {
	s.cache.beginRefresh()

	raw, err := s.fetcher.Fetch(ctx, s.cfg.jwksURL, s.cfg.retry)
	if err != nil {
		s.cache.forceNeeded()
		s.logger.WithField("code", ErrorCode(err)).WithError(err).Warn("jwks refresh failed, will retry on next tick")
		return err
	}

	keys, skipped, err := ParseKeys(raw, ParseOptions{ExplicitAlg: s.cfg.explicitAlg})
	if err != nil {
		s.cache.forceNeeded()
		s.logger.WithField("code", ErrorCode(err)).WithError(err).Warn("jwks refresh failed, will retry on next tick")
		return err
	}

	for _, sk := range skipped {
		s.logger.WithFields(logrus.Fields{
			"kid":    sk.KeyID,
			"alg":    sk.Algorithm,
			"reason": sk.Reason,
		}).Debug("skipping jwk")
	}

	if keys.Len() == 0 {
		s.logger.Warn("no valid signers found")
	}

	s.cache.install(keys)
	s.cfg.metrics.SignersUpdated(s.name, keys.Len())
	s.logger.WithField("keys", keys.Len()).Info("jwks signers updated")

	return nil
}
