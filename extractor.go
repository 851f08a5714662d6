package jwksstrategy

import (
	"errors"
	"net/http"
	"strings"
)

// ErrInvalidAuthHeader is returned when an authorization header is present
// but does not hold a bearer token.
var ErrInvalidAuthHeader = errors.New("authorization header format must be Bearer {token}")

// TokenExtractor is a function that takes a request as input and returns
// either a token or an error. An error is only returned when a token was
// supplied but is badly formed. A missing token yields "" and no error.
type TokenExtractor func(r *http.Request) (string, error)

// AuthHeaderTokenExtractor extracts the bearer token from the Authorization
// header.
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	return bearerToken(r.Header.Get("Authorization"))
}

// HeaderTokenExtractor builds a TokenExtractor reading a bearer token from a
// custom header, e.g. "X-Forwarded-Authorization".
func HeaderTokenExtractor(header string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		return bearerToken(r.Header.Get(header))
	}
}

func bearerToken(value string) (string, error) {
	if value == "" {
		return "", nil
	}

	parts := strings.Fields(value)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrInvalidAuthHeader
	}
	return parts[1], nil
}

// CookieTokenExtractor builds a TokenExtractor that takes a request and
// extracts the token from the cookie using the passed in cookieName.
func CookieTokenExtractor(cookieName string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return cookie.Value, nil
	}
}

// ParameterTokenExtractor returns a TokenExtractor that extracts
// the token from the specified query string parameter.
func ParameterTokenExtractor(param string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		return r.URL.Query().Get(param), nil
	}
}

// MultiTokenExtractor returns a TokenExtractor that runs multiple TokenExtractors
// and takes the one that does not return an empty token. If a TokenExtractor
// returns an error that error is immediately returned.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			token, err := ex(r)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}
