package server

import (
	"context"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/kidwatch/jwks-strategy/jwks"
	"github.com/kidwatch/jwks-strategy/validator"
)

// routeValidator validates against the strategy named by the {name} route
// parameter. Validators are built once per name; they resolve the strategy
// through the registry on every lookup.
type routeValidator struct {
	registry   *jwks.Registry
	validators sync.Map // name -> *validator.Validator
}

func (v *routeValidator) ValidateToken(ctx context.Context, token string) (*validator.ValidatedToken, error) {
	var name string
	if rctx := chi.RouteContext(ctx); rctx != nil {
		name = rctx.URLParam("name")
	}

	val, err := v.forName(name)
	if err != nil {
		return nil, err
	}
	return val.ValidateToken(ctx, token)
}

func (v *routeValidator) forName(name string) (*validator.Validator, error) {
	if cached, ok := v.validators.Load(name); ok {
		return cached.(*validator.Validator), nil
	}

	val, err := validator.New(v.registry.Source(name))
	if err != nil {
		return nil, err
	}
	actual, _ := v.validators.LoadOrStore(name, val)
	return actual.(*validator.Validator), nil
}
