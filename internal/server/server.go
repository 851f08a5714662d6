// Package server exposes a jwks.Registry over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	jwksstrategy "github.com/kidwatch/jwks-strategy"
	"github.com/kidwatch/jwks-strategy/core"
	"github.com/kidwatch/jwks-strategy/jwks"
	"github.com/kidwatch/jwks-strategy/validator"
)

// maxTokenBody bounds POST /strategies/{name}/verify bodies.
const maxTokenBody = 1 << 20

// KeyInfo describes one signer of a strategy.
type KeyInfo struct {
	KeyID     string `json:"kid"`
	Algorithm string `json:"alg"`
}

// KeysResponse is returned by GET /strategies/{name}/keys.
type KeysResponse struct {
	Name         string    `json:"name"`
	JWKSURL      string    `json:"jwks_url"`
	RefreshState string    `json:"refresh_state"`
	Fetched      bool      `json:"fetched"`
	Keys         []KeyInfo `json:"keys"`
}

// VerifyResponse is returned by POST /strategies/{name}/verify and
// GET /strategies/{name}/whoami.
type VerifyResponse struct {
	KeyID     string         `json:"kid"`
	Algorithm string         `json:"alg"`
	Claims    map[string]any `json:"claims"`
}

type handler struct {
	registry   *jwks.Registry
	validators *routeValidator
	logger     logrus.FieldLogger
}

// NewRouter builds the daemon routes:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /strategies
//	GET  /strategies/{name}/keys
//	POST /strategies/{name}/verify   (body: compact JWS)
//	GET  /strategies/{name}/whoami   (Authorization: Bearer <token>)
func NewRouter(registry *jwks.Registry, gatherer prometheus.Gatherer, logger logrus.FieldLogger) (http.Handler, error) {
	h := &handler{registry: registry, logger: logger, validators: &routeValidator{registry: registry}}

	protect, err := jwksstrategy.New(
		jwksstrategy.WithValidator(h.validators),
		jwksstrategy.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/strategies", func(r chi.Router) {
		r.Get("/", h.listStrategies)
		r.Route("/{name}", func(r chi.Router) {
			r.Use(h.requireStrategy)
			r.Get("/keys", h.keys)
			r.Post("/verify", h.verify)
			r.With(protect.CheckJWT).Get("/whoami", h.whoami)
		})
	})

	return r, nil
}

// requireStrategy answers 404 before any token handling when the named
// strategy is not registered.
func (h *handler) requireStrategy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.registry.Lookup(chi.URLParam(r, "name")); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) listStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"strategies": h.registry.Names()})
}

func (h *handler) keys(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	set, fetched := s.Signers()
	resp := KeysResponse{
		Name:         s.Name(),
		JWKSURL:      s.JWKSURL(),
		RefreshState: s.RefreshState().String(),
		Fetched:      fetched,
		Keys:         []KeyInfo{},
	}
	for _, kid := range set.KeyIDs() {
		signer, _ := set.Lookup(kid)
		resp.Keys = append(resp.Keys, KeyInfo{KeyID: kid, Algorithm: signer.Algorithm})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTokenBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	v, err := h.validators.forName(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	token, err := v.ValidateToken(r.Context(), strings.TrimSpace(string(body)))
	if err != nil {
		status, resp := jwksstrategy.ErrorStatus(core.NewValidationError(err))
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(token))
}

func (h *handler) whoami(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toResponse(jwksstrategy.MustGetToken(r.Context())))
}

func toResponse(token *validator.ValidatedToken) VerifyResponse {
	return VerifyResponse{KeyID: token.KeyID, Algorithm: token.Algorithm, Claims: token.Claims}
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := jwksstrategy.ErrorResponse{Message: err.Error(), Code: jwks.ErrorCode(err)}
	var jerr *jwks.Error
	if errors.As(err, &jerr) {
		resp.Message = jerr.Message
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
