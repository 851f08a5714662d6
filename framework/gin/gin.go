// Package jwtgin verifies bearer tokens in gin handler chains.
package jwtgin

import (
	"errors"

	"github.com/gin-gonic/gin"

	jwksstrategy "github.com/kidwatch/jwks-strategy"
	"github.com/kidwatch/jwks-strategy/core"
	"github.com/kidwatch/jwks-strategy/validator"
)

// DefaultTokenKey is the gin context key holding the validated token.
const DefaultTokenKey = "jwt"

var (
	ErrMissingToken = errors.New("no validated token found in gin context")
	ErrInvalidToken = errors.New("invalid validated token type")
)

type config struct {
	errorHandler        func(*gin.Context, error)
	contextKey          string
	tokenExtractor      jwksstrategy.TokenExtractor
	credentialsOptional bool
}

// New creates a gin middleware backed by v. The validated token is stored
// under DefaultTokenKey (see WithContextKey) and in the request context.
func New(v core.TokenValidator, opts ...Option) (gin.HandlerFunc, error) {
	cfg := &config{
		errorHandler:   DefaultErrorHandler,
		contextKey:     DefaultTokenKey,
		tokenExtractor: jwksstrategy.AuthHeaderTokenExtractor,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	checker, err := core.New(
		core.WithValidator(v),
		core.WithCredentialsOptional(cfg.credentialsOptional),
	)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		raw, err := cfg.tokenExtractor(c.Request)
		if err != nil {
			cfg.errorHandler(c, err)
			c.Abort()
			return
		}

		token, err := checker.CheckToken(c.Request.Context(), raw)
		if err != nil {
			cfg.errorHandler(c, err)
			c.Abort()
			return
		}

		if token != nil {
			c.Set(cfg.contextKey, token)
			c.Request = c.Request.WithContext(core.SetToken(c.Request.Context(), token))
		}
		c.Next()
	}, nil
}

// DefaultErrorHandler answers with the statuses and JSON body of
// jwksstrategy.DefaultErrorHandler.
func DefaultErrorHandler(c *gin.Context, err error) {
	status, body := jwksstrategy.ErrorStatus(err)
	c.AbortWithStatusJSON(status, body)
}

// GetToken returns the validated token stored under contextKey ("" means
// DefaultTokenKey).
func GetToken(c *gin.Context, contextKey string) (*validator.ValidatedToken, error) {
	if contextKey == "" {
		contextKey = DefaultTokenKey
	}
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingToken
	}

	token, ok := value.(*validator.ValidatedToken)
	if !ok {
		return nil, ErrInvalidToken
	}
	return token, nil
}
