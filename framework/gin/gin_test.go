package jwtgin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwksstrategy "github.com/kidwatch/jwks-strategy"
	"github.com/kidwatch/jwks-strategy/jwks"
	"github.com/kidwatch/jwks-strategy/validator"
)

type validatorFunc func(ctx context.Context, token string) (*validator.ValidatedToken, error)

func (f validatorFunc) ValidateToken(ctx context.Context, token string) (*validator.ValidatedToken, error) {
	return f(ctx, token)
}

var fakeValidator = validatorFunc(func(_ context.Context, token string) (*validator.ValidatedToken, error) {
	switch token {
	case "good":
		return &validator.ValidatedToken{KeyID: "kid-1", Algorithm: "RS256", Claims: jwt.MapClaims{"sub": "alice"}}, nil
	case "early":
		return nil, jwks.ErrNoSignersFetched
	default:
		return nil, jwks.ErrKidDoesNotMatch
	}
})

func TestNew(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name           string
		options        []Option
		contextKey     string
		authorization  string
		wantStatusCode int
		wantBody       map[string]any
	}{
		{
			name:           "it serves a valid token",
			authorization:  "Bearer good",
			wantStatusCode: http.StatusOK,
			wantBody:       map[string]any{"sub": "alice", "from_request": true},
		},
		{
			name:           "it rejects a missing token",
			wantStatusCode: http.StatusBadRequest,
			wantBody:       map[string]any{"message": "JWT is missing.", "code": "token_missing"},
		},
		{
			name:           "it allows a missing token when credentials are optional",
			options:        []Option{WithCredentialsOptional(true)},
			wantStatusCode: http.StatusOK,
			wantBody:       map[string]any{"sub": nil, "from_request": false},
		},
		{
			name:           "it rejects an unknown kid",
			authorization:  "Bearer rotated",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       map[string]any{"message": "JWT is invalid.", "code": jwks.CodeKidDoesNotMatch},
		},
		{
			name:           "it reports an unfetched key set as unavailable",
			authorization:  "Bearer early",
			wantStatusCode: http.StatusServiceUnavailable,
			wantBody:       map[string]any{"message": "Signing keys are not available yet.", "code": jwks.CodeNoSignersFetched},
		},
		{
			name:           "it reads the token from a custom extractor and key",
			options:        []Option{WithTokenExtractor(jwksstrategy.CookieTokenExtractor("jwt")), WithContextKey("token")},
			contextKey:     "token",
			wantStatusCode: http.StatusOK,
			wantBody:       map[string]any{"sub": "alice", "from_request": true},
		},
		{
			name: "it uses a custom error handler",
			options: []Option{WithErrorHandler(func(c *gin.Context, err error) {
				c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"error": err.Error()})
			})},
			authorization:  "Bearer rotated",
			wantStatusCode: http.StatusTeapot,
			wantBody:       map[string]any{"error": "token rejected: " + jwks.ErrKidDoesNotMatch.Error()},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			middleware, err := New(fakeValidator, testCase.options...)
			require.NoError(t, err)

			router := gin.New()
			router.GET("/", middleware, func(c *gin.Context) {
				var sub any
				if token, err := GetToken(c, testCase.contextKey); err == nil {
					sub = token.Claims["sub"]
				}
				c.JSON(http.StatusOK, gin.H{
					"sub":          sub,
					"from_request": jwksstrategy.HasToken(c.Request.Context()),
				})
			})

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if testCase.authorization != "" {
				r.Header.Set("Authorization", testCase.authorization)
			}
			r.AddCookie(&http.Cookie{Name: "jwt", Value: "good"})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			assert.Equal(t, testCase.wantStatusCode, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, testCase.wantBody, body)
		})
	}
}

func TestNew_Options(t *testing.T) {
	_, err := New(nil)
	assert.EqualError(t, err, "validator cannot be nil")

	_, err = New(fakeValidator, WithContextKey(""))
	assert.EqualError(t, err, "context key cannot be empty")

	_, err = New(fakeValidator, WithErrorHandler(nil))
	assert.EqualError(t, err, "error handler cannot be nil")

	_, err = New(fakeValidator, WithTokenExtractor(nil))
	assert.EqualError(t, err, "token extractor cannot be nil")
}

func TestGetToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetToken(c, "")
	assert.ErrorIs(t, err, ErrMissingToken)

	c.Set(DefaultTokenKey, "not a token")
	_, err = GetToken(c, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
