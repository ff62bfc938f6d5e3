package httpapi

import (
	"errors"
	"net/http"

	"konnekt.org/internal/auth"
	"konnekt.org/internal/obs"
)

// withSession resolves the session cookie into a principal on the request
// context. Requests without a cookie, or with an invalid one, pass through
// unauthenticated; the permission gates reject them later. A valid cookie is
// re-set on the response so a sliding-expiry extension reaches the client.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionTokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, user, err := a.auth.ValidateSessionToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidSession) {
				obs.ObserveSessionValidation("invalid")
				clearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication failed")
			return
		}
		obs.ObserveSessionValidation("ok")

		principal, err := a.roles.Principal(r.Context(), user)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "authentication failed")
			return
		}

		setSessionCookie(w, token, session.ExpiresAt)
		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithSession(ctx, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensurePermissions answers the generic 401 unless the request carries a
// principal holding every listed permission. The response never says which
// check failed.
func (a *API) ensurePermissions(w http.ResponseWriter, r *http.Request, perms ...string) bool {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok || !principal.HasAllPermissions(perms...) {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return false
	}
	return true
}

// RequirePermissions gates a handler behind a set of permissions. All listed
// permissions must be held.
func (a *API) RequirePermissions(next http.Handler, perms ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.ensurePermissions(w, r, perms...) {
			return
		}
		next.ServeHTTP(w, r)
	})
}
