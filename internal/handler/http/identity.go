package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/service"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
	"github.com/MichaelKMarwa/recupio/pkg/httputil"
	"github.com/MichaelKMarwa/recupio/pkg/middleware"
)

type identityKey struct{}

// identityHandlerFunc is a handler that receives the resolved caller
// explicitly instead of digging it out of the context.
type identityHandlerFunc func(w http.ResponseWriter, r *http.Request, id domain.Identity)

// withIdentity adapts fn to a plain handler. Routes mounted without any of
// the Require* middlewares see the Anonymous identity.
func withIdentity(fn identityHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, IdentityFromContext(r.Context()))
	}
}

// IdentityFromContext returns the identity attached by the authorization
// middleware, or Anonymous.
func IdentityFromContext(ctx context.Context) domain.Identity {
	if id, ok := ctx.Value(identityKey{}).(domain.Identity); ok {
		return id
	}
	return domain.Anonymous()
}

func contextWithIdentity(ctx context.Context, id domain.Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey{}, id)
	return middleware.WithPrincipal(ctx, id.Kind.String(), id.UserID)
}

// Authorizer runs the authorization pipeline: resolve credentials into an
// identity, then optionally gate on premium.
type Authorizer struct {
	identity *service.IdentityService
	logger   *slog.Logger
}

// NewAuthorizer creates the authorization middlewares.
func NewAuthorizer(identity *service.IdentityService, logger *slog.Logger) *Authorizer {
	return &Authorizer{identity: identity, logger: logger}
}

// RequireUser admits requests carrying a valid bearer token for an existing
// user.
func (a *Authorizer) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := middleware.BearerToken(r)
		if !ok {
			httputil.WriteError(w, r, apperrors.Unauthenticated("missing authorization header"), a.logger)
			return
		}
		a.serveUser(w, r, next, token)
	})
}

// RequireGuest admits requests carrying a valid guest session header.
func (a *Authorizer) RequireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := middleware.GuestSessionID(r)
		if !ok {
			httputil.WriteError(w, r, apperrors.Unauthenticated("missing guest session header"), a.logger)
			return
		}
		a.serveGuest(w, r, next, sessionID)
	})
}

// RequireUserOrGuest tries the bearer token first. A request that presents
// a token is judged on the token alone; the guest header is only consulted
// when no token is sent.
func (a *Authorizer) RequireUserOrGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := middleware.BearerToken(r); ok {
			a.serveUser(w, r, next, token)
			return
		}
		if sessionID, ok := middleware.GuestSessionID(r); ok {
			a.serveGuest(w, r, next, sessionID)
			return
		}
		httputil.WriteError(w, r, apperrors.Unauthenticated("authentication required"), a.logger)
	})
}

// RequirePremium admits authenticated users whose premium flag is currently
// set. Mount it after RequireUser.
func (a *Authorizer) RequirePremium(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.identity.RequirePremium(r.Context(), IdentityFromContext(r.Context())); err != nil {
			httputil.WriteError(w, r, err, a.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authorizer) serveUser(w http.ResponseWriter, r *http.Request, next http.Handler, token string) {
	id, err := a.identity.ResolveUser(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, err, a.logger)
		return
	}
	next.ServeHTTP(w, r.WithContext(contextWithIdentity(r.Context(), id)))
}

func (a *Authorizer) serveGuest(w http.ResponseWriter, r *http.Request, next http.Handler, sessionID string) {
	id, err := a.identity.ResolveGuest(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, a.logger)
		return
	}
	next.ServeHTTP(w, r.WithContext(contextWithIdentity(r.Context(), id)))
}
