package jwks

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startStrategy(t *testing.T, srv *jwksServer, opts ...Option) (*Strategy, *recordingMetrics) {
	t.Helper()

	logger, _ := nullLogger()
	metrics := &recordingMetrics{}
	all := append([]Option{
		WithJWKSURL(srv.jwksURL()),
		WithLogger(logger),
		WithMetrics(metrics),
	}, fastRetries()...)
	all = append(all, opts...)

	s, err := New("test", all...)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	return s, metrics
}

func TestNew(t *testing.T) {
	t.Run("It requires a JWKS url", func(t *testing.T) {
		_, err := New("test")
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
		assert.ErrorContains(t, err, "jwks url is required")
	})

	t.Run("It requires a name", func(t *testing.T) {
		_, err := New("", WithJWKSURL("https://example.com/jwks.json"))
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	testCases := []struct {
		name   string
		option Option
		errMsg string
	}{
		{name: "relative url", option: WithJWKSURL("/jwks.json"), errMsg: "must be an absolute http(s) url"},
		{name: "unsupported scheme", option: WithJWKSURL("ftp://example.com/jwks.json"), errMsg: "must be an absolute http(s) url"},
		{name: "zero interval", option: WithTimeInterval(0), errMsg: "time interval must be positive"},
		{name: "negative retries", option: WithHTTPMaxRetries(-1), errMsg: "http max retries cannot be negative"},
		{name: "negative delay", option: WithHTTPDelayPerRetry(-time.Second), errMsg: "http delay per retry cannot be negative"},
		{name: "empty explicit alg", option: WithExplicitAlg(""), errMsg: "explicit alg cannot be empty"},
		{name: "nil client", option: WithHTTPClient(nil), errMsg: "HTTP client cannot be nil"},
		{name: "nil logger", option: WithLogger(nil), errMsg: "logger cannot be nil"},
		{name: "nil metrics", option: WithMetrics(nil), errMsg: "metrics cannot be nil"},
		{name: "nil tracer provider", option: WithTracerProvider(nil), errMsg: "tracer provider cannot be nil"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := New("test", WithJWKSURL("https://example.com/jwks.json"), testCase.option)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.ErrorContains(t, err, "invalid option: "+testCase.errMsg)
		})
	}

	t.Run("It applies the defaults", func(t *testing.T) {
		s, err := New("test", WithJWKSURL("https://example.com/jwks.json"))
		require.NoError(t, err)

		assert.Equal(t, DefaultTimeInterval, s.cfg.timeInterval)
		assert.Equal(t, RetryPolicy{MaxRetries: 10, Delay: 500 * time.Millisecond}, s.cfg.retry)
		assert.True(t, s.cfg.shouldStart)
		assert.False(t, s.cfg.firstFetchSync)
		assert.Equal(t, DefaultHTTPTimeout, s.cfg.httpClient.Timeout)
		assert.Equal(t, "test", s.Name())
		assert.Equal(t, "https://example.com/jwks.json", s.JWKSURL())
	})
}

func TestStrategy_MatchSigner(t *testing.T) {
	srv := newJWKSServer(t)
	srv.serveKeys(t, rsaEntry(t, "id1"), rsaEntry(t, "id2"))

	s, metrics := startStrategy(t, srv, WithFirstFetchSync(true), WithTimeInterval(time.Hour))

	t.Run("It returns the signer of a known kid", func(t *testing.T) {
		for _, kid := range []string{"id1", "id2"} {
			signer, err := s.MatchSigner(kid)
			require.NoError(t, err)
			assert.Equal(t, kid, signer.KeyID)
		}
		assert.Equal(t, RefreshNotNeeded, s.RefreshState())
	})

	t.Run("It flags a refresh on an unknown kid", func(t *testing.T) {
		_, err := s.MatchSigner("id3")
		assert.ErrorIs(t, err, ErrKidDoesNotMatch)
		assert.Equal(t, RefreshNeeded, s.RefreshState())

		_, triggered, signers := metrics.snapshot()
		assert.Equal(t, 1, triggered)
		assert.Equal(t, []int{2}, signers)
	})
}

func TestStrategy_Debounce(t *testing.T) {
	srv := newJWKSServer(t)
	srv.serveKeys(t, rsaEntry(t, "id1"))

	s, metrics := startStrategy(t, srv, WithFirstFetchSync(true), WithTimeInterval(time.Hour))
	require.Equal(t, int32(1), srv.hits.Load())

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.MatchSigner("missing")
			assert.ErrorIs(t, err, ErrKidDoesNotMatch)
		}()
	}
	wg.Wait()

	// Lookups never fetch on their own.
	assert.Equal(t, int32(1), srv.hits.Load())
	assert.Equal(t, RefreshNeeded, s.RefreshState())

	s.tick(context.Background())
	s.tick(context.Background())

	assert.Equal(t, int32(2), srv.hits.Load())
	assert.Equal(t, RefreshNotNeeded, s.RefreshState())

	_, triggered, _ := metrics.snapshot()
	assert.Equal(t, 1, triggered)
}

func TestStrategy_Start(t *testing.T) {
	t.Run("It does nothing when it should not start", func(t *testing.T) {
		srv := newJWKSServer(t)
		srv.serveKeys(t, rsaEntry(t, "id1"))

		s, _ := startStrategy(t, srv, WithShouldStart(false), WithTimeInterval(10*time.Millisecond))
		time.Sleep(50 * time.Millisecond)

		_, err := s.MatchSigner("id1")
		assert.ErrorIs(t, err, ErrNoSignersFetched)
		assert.Equal(t, int32(0), srv.hits.Load())
	})

	t.Run("It fetches immediately when the first fetch is async", func(t *testing.T) {
		srv := newJWKSServer(t)
		srv.serveKeys(t, rsaEntry(t, "id1"))

		s, _ := startStrategy(t, srv, WithTimeInterval(time.Hour))

		assert.Eventually(t, func() bool {
			_, err := s.MatchSigner("id1")
			return err == nil
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("It rejects a second start", func(t *testing.T) {
		srv := newJWKSServer(t)
		s, _ := startStrategy(t, srv, WithTimeInterval(time.Hour))

		err := s.Start(context.Background())
		assert.ErrorIs(t, err, ErrStrategyAlreadyStarted)
	})

	t.Run("It keeps running after a failed synchronous first fetch", func(t *testing.T) {
		srv := newJWKSServer(t)
		srv.serve(http.StatusInternalServerError, nil)

		s, _ := startStrategy(t, srv, WithFirstFetchSync(true), WithTimeInterval(20*time.Millisecond))

		_, err := s.MatchSigner("id1")
		assert.ErrorIs(t, err, ErrNoSignersFetched)

		srv.serveKeys(t, rsaEntry(t, "id1"))
		assert.Eventually(t, func() bool {
			_, err := s.MatchSigner("id1")
			return err == nil
		}, 2*time.Second, 5*time.Millisecond)
	})
}

func TestStrategy_ServerError(t *testing.T) {
	srv := newJWKSServer(t)
	srv.serve(http.StatusInternalServerError, []byte("boom"))

	s, metrics := startStrategy(t, srv, WithFirstFetchSync(true), WithTimeInterval(time.Hour))

	_, err := s.MatchSigner("id1")
	assert.ErrorIs(t, err, ErrNoSignersFetched)
	assert.Equal(t, RefreshNeeded, s.RefreshState())
	assert.Equal(t, int32(2), srv.hits.Load())

	fetches, _, signers := metrics.snapshot()
	assert.Equal(t, []string{CodeServerHTTPError}, fetches)
	assert.Empty(t, signers)
}

func TestStrategy_Rotation(t *testing.T) {
	srv := newJWKSServer(t)
	srv.serveKeys(t, rsaEntry(t, "id1"), rsaEntry(t, "id2"))

	s, _ := startStrategy(t, srv, WithTimeInterval(50*time.Millisecond))

	require.Eventually(t, func() bool {
		_, err := s.MatchSigner("id1")
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	_, err := s.MatchSigner("id3")
	assert.ErrorIs(t, err, ErrKidDoesNotMatch)

	srv.serveKeys(t, rsaEntry(t, "id1"), rsaEntry(t, "id2"), rsaEntry(t, "id3"))

	assert.Eventually(t, func() bool {
		signer, err := s.MatchSigner("id3")
		return err == nil && signer.KeyID == "id3"
	}, 2*time.Second, 10*time.Millisecond)

	keys, ok := s.Signers()
	require.True(t, ok)
	assert.Equal(t, []string{"id1", "id2", "id3"}, keys.KeyIDs())
}

func TestStrategy_MalformedBatch(t *testing.T) {
	srv := newJWKSServer(t)
	srv.serveKeys(t, rsaEntry(t, "id1"))

	s, metrics := startStrategy(t, srv, WithFirstFetchSync(true), WithTimeInterval(time.Hour))
	before, ok := s.Signers()
	require.True(t, ok)

	srv.serveKeys(t,
		rsaEntry(t, "id2"),
		jwkEntry(t, testRSAKey(t), map[string]any{"kid": 7, "alg": "RS256"}),
	)

	_, err := s.MatchSigner("id2")
	require.ErrorIs(t, err, ErrKidDoesNotMatch)

	err = s.refresh(context.Background())
	assert.ErrorIs(t, err, ErrKidNotBinary)

	after, ok := s.Signers()
	require.True(t, ok)
	assert.Same(t, before, after)
	assert.Equal(t, RefreshNeeded, s.RefreshState())

	_, err = s.MatchSigner("id1")
	assert.NoError(t, err)

	_, _, signers := metrics.snapshot()
	assert.Equal(t, []int{1}, signers)
}

func TestStrategy_EmptyKeySet(t *testing.T) {
	srv := newJWKSServer(t)
	srv.serveKeys(t, jwkEntry(t, testRSAKey(t), map[string]any{"kid": "enc", "use": "enc"}))

	logger, hook := nullLogger()
	s, err := New("test", WithJWKSURL(srv.jwksURL()), WithLogger(logger), WithFirstFetchSync(true), WithTimeInterval(time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	assert.Equal(t, RefreshNotNeeded, s.RefreshState())
	_, err = s.MatchSigner("enc")
	assert.ErrorIs(t, err, ErrKidDoesNotMatch)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "no valid signers found" {
			warned = true
		}
	}
	assert.True(t, warned, "expected a warning about the empty key set")
}

func TestStrategy_Stop(t *testing.T) {
	srv := newJWKSServer(t)
	srv.serveKeys(t, rsaEntry(t, "id1"))

	s, _ := startStrategy(t, srv, WithFirstFetchSync(true), WithTimeInterval(10*time.Millisecond))
	_, err := s.MatchSigner("id1")
	require.NoError(t, err)

	s.Stop()
	s.Stop()

	_, err = s.MatchSigner("id1")
	assert.ErrorIs(t, err, ErrNoSignersFetched)

	hits := srv.hits.Load()
	_, _ = s.MatchSigner("id9")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, hits, srv.hits.Load())
}

func TestStrategy_StartStopLoop(t *testing.T) {
	srv := newJWKSServer(t)
	srv.serveKeys(t, rsaEntry(t, "id1"))

	logger, _ := nullLogger()
	for i := 0; i < 200; i++ {
		s, err := New("test", WithJWKSURL(srv.jwksURL()), WithLogger(logger), WithTimeInterval(time.Hour))
		require.NoError(t, err)
		require.NoError(t, s.Start(context.Background()))
		s.Stop()
	}
}
