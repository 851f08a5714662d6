package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidwatch/jwks-strategy/config"
)

func jwksProvider(t *testing.T) (*httptest.Server, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pub, err := jwk.FromRaw(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, "kid-1"))
	require.NoError(t, pub.Set(jwk.AlgorithmKey, "RS256"))
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	body, err := json.Marshal(set)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, key
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVerifyCommand(t *testing.T) {
	srv, key := jwksProvider(t)

	sign := func(kid string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"sub": "alice"})
		token.Header["kid"] = kid
		signed, err := token.SignedString(key)
		require.NoError(t, err)
		return signed
	}

	t.Run("it prints the verified token", func(t *testing.T) {
		out, err := runCLI(t, "verify", "--jwks-url", srv.URL, sign("kid-1"))
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "kid-1", got["kid"])
		assert.Equal(t, map[string]any{"sub": "alice"}, got["claims"])
	})

	t.Run("it reports the error code of a rejected token", func(t *testing.T) {
		_, err := runCLI(t, "verify", "--jwks-url", srv.URL, sign("kid-2"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token rejected (kid_does_not_match)")
	})

	t.Run("it requires a jwks url", func(t *testing.T) {
		t.Setenv("JWKS_URL", "")
		_, err := runCLI(t, "verify", sign("kid-1"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwks url")
	})
}

func TestEnvFile(t *testing.T) {
	srv, _ := jwksProvider(t)

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("JWKS_TEST_MARKER=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("JWKS_TEST_MARKER") })

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--env-file", path, "verify", "--jwks-url", srv.URL, "not-a-token"})
	_ = cmd.Execute()

	assert.Equal(t, "loaded", os.Getenv("JWKS_TEST_MARKER"))
}

func TestEnvFile_FlagFallback(t *testing.T) {
	srv, key := jwksProvider(t)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"sub": "alice"})
	token.Header["kid"] = "kid-1"
	signed, err := token.SignedString(key)
	require.NoError(t, err)

	t.Setenv("JWKS_URL", "")
	require.NoError(t, os.Unsetenv("JWKS_URL"))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("JWKS_URL="+srv.URL+"\n"), 0o600))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--env-file", path, "verify", signed})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "kid-1", got["kid"])
}

func TestServe(t *testing.T) {
	srv, _ := jwksProvider(t)

	cfg := &config.File{
		Server: config.Server{Listen: "127.0.0.1:0", ShutdownTimeout: 1000},
		Strategies: []config.Strategy{
			{Name: "default", JWKSURL: srv.URL, FirstFetchSync: true},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := serve(ctx, &rootOptions{logLevel: "error"}, cfg)
	assert.NoError(t, err)
}

func TestServe_StartFailure(t *testing.T) {
	cfg := &config.File{
		Server: config.Server{Listen: "127.0.0.1:0"},
		Strategies: []config.Strategy{
			{Name: "bad", JWKSURL: "not a url"},
		},
	}

	err := serve(context.Background(), &rootOptions{logLevel: "error"}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start strategies")
}
