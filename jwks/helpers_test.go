package jwks

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var (
	rsaKeyOnce sync.Once
	rsaKey     *rsa.PrivateKey
)

// testRSAKey returns a process-wide RSA key; generating one per test is slow.
func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	rsaKeyOnce.Do(func() {
		var err error
		rsaKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
	})
	return rsaKey
}

func testECKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

// jwkEntry renders the public half of priv as a JWK object and merges
// fields into it. A nil field value removes the member.
func jwkEntry(t *testing.T, priv crypto.PrivateKey, fields map[string]any) map[string]any {
	t.Helper()

	key, err := jwk.FromRaw(priv)
	require.NoError(t, err)
	pub, err := jwk.PublicKeyOf(key)
	require.NoError(t, err)

	b, err := json.Marshal(pub)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(b, &entry))

	for k, v := range fields {
		if v == nil {
			delete(entry, k)
			continue
		}
		entry[k] = v
	}
	return entry
}

func rsaEntry(t *testing.T, kid string) map[string]any {
	t.Helper()
	return jwkEntry(t, testRSAKey(t), map[string]any{"kid": kid, "alg": "RS256", "use": "sig"})
}

func rawEntries(t *testing.T, entries ...map[string]any) []json.RawMessage {
	t.Helper()

	out := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		b, err := json.Marshal(e)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

// jwksServer is an httptest JWKS endpoint whose response can be swapped
// while strategies poll it.
type jwksServer struct {
	*httptest.Server

	mu     sync.Mutex
	status int
	body   []byte

	hits atomic.Int32
}

func newJWKSServer(t *testing.T) *jwksServer {
	t.Helper()

	s := &jwksServer{status: http.StatusOK, body: []byte(`{"keys":[]}`)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)

		s.mu.Lock()
		status, body := s.status, s.body
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *jwksServer) serveKeys(t *testing.T, entries ...map[string]any) {
	t.Helper()

	if entries == nil {
		entries = []map[string]any{}
	}
	b, err := json.Marshal(map[string]any{"keys": entries})
	require.NoError(t, err)
	s.serve(http.StatusOK, b)
}

func (s *jwksServer) serve(status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

func (s *jwksServer) jwksURL() string {
	return s.URL + "/.well-known/jwks.json"
}

// recordingMetrics keeps every event for assertions.
type recordingMetrics struct {
	mu        sync.Mutex
	fetches   []string
	triggered int
	signers   []int
}

func (m *recordingMetrics) FetchObserved(_, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches = append(m.fetches, outcome)
}

func (m *recordingMetrics) RefreshTriggered(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggered++
}

func (m *recordingMetrics) SignersUpdated(_ string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signers = append(m.signers, count)
}

func (m *recordingMetrics) snapshot() (fetches []string, triggered int, signers []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetches...), m.triggered, append([]int(nil), m.signers...)
}

func nullLogger() (*logrus.Logger, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

// fastRetries keeps failing fetches short.
func fastRetries() []Option {
	return []Option{WithHTTPMaxRetries(1), WithHTTPDelayPerRetry(time.Millisecond)}
}
