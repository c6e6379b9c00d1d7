package httpapi

import (
	"errors"
	"net/http"

	"clinicdesk.org/internal/auth"
	"clinicdesk.org/internal/obs"
)

const authHeader = "Authorization"

// routePolicy says who may call a route. A public route skips the gate but
// still picks up a valid caller when one presents a token. An empty role set
// admits every authenticated caller.
type routePolicy struct {
	public bool
	roles  []auth.Role
}

// guard enforces p in front of next.
func (a *API) guard(p routePolicy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(authHeader)
		if p.public {
			if header != "" {
				if id, err := a.gate.Authenticate(r.Context(), header); err == nil {
					r = r.WithContext(auth.ContextWithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
			return
		}

		id, err := a.gate.Authenticate(r.Context(), header)
		if err != nil {
			a.reject(w, r, err)
			return
		}
		if err := auth.Authorize(p.roles, id); err != nil {
			a.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), id)))
	})
}

func (a *API) reject(w http.ResponseWriter, r *http.Request, err error) {
	code, reason, msg := rejection(err)
	obs.AuthRejections.WithLabelValues(reason).Inc()
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="clinic-api"`)
	}
	if code == http.StatusInternalServerError {
		a.logger.Error("authentication error", "request_id", RequestIDFromContext(r.Context()), "error", err)
	}
	writeError(w, r, code, msg)
}

func rejection(err error) (code int, reason, msg string) {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return http.StatusUnauthorized, "missing_credential", "authentication required"
	case errors.Is(err, auth.ErrExpired):
		return http.StatusUnauthorized, "expired", "token expired"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token", "invalid token"
	case errors.Is(err, auth.ErrUnknownIdentity):
		return http.StatusUnauthorized, "unknown_identity", "user no longer exists"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "forbidden", "insufficient permissions"
	default:
		return http.StatusInternalServerError, "error", "authentication error"
	}
}
