package httpapi

import (
	"errors"
	"net/http"

	"konnekt.org/internal/audit"
	"konnekt.org/internal/auth"
	"konnekt.org/internal/obs"
)

type registerRequest struct {
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User  *auth.User `json:"user"`
	Roles []string   `json:"roles"`
}

func (a *API) userResponse(r *http.Request, user *auth.User) userResponse {
	resp := userResponse{User: user, Roles: []string{}}
	roles, err := a.roles.UserRoles(r.Context(), user.ID)
	if err != nil {
		return resp
	}
	for _, role := range roles {
		resp.Roles = append(resp.Roles, role.Name)
	}
	return resp
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.auth.Register(r.Context(), auth.Registration{
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		var fields auth.FieldErrors
		switch {
		case errors.As(err, &fields):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": fields,
			})
		case errors.Is(err, auth.ErrAlreadyExists):
			writeError(w, r, http.StatusBadRequest, "User already exists")
		default:
			writeError(w, r, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": result.User.ID,
	})
	setSessionCookie(w, result.Token, result.Session.ExpiresAt)
	writeJSON(w, http.StatusCreated, a.userResponse(r, result.User))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.auth.Login(r.Context(), auth.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			obs.ObserveLogin("denied")
			writeError(w, r, http.StatusUnauthorized, "User not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "login failed")
		return
	}

	// One session per login: the session presented on the way in is replaced
	// only once the credentials check out. A wrong password must leave it
	// untouched.
	if prior := sessionTokenFromRequest(r); prior != "" {
		_ = a.auth.InvalidateSession(r.Context(), auth.SessionIDFromToken(prior))
	}

	obs.ObserveLogin("ok")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": result.User.ID,
	})
	setSessionCookie(w, result.Token, result.Session.ExpiresAt)
	writeJSON(w, http.StatusOK, a.userResponse(r, result.User))
}

// handleSession reports the authenticated user behind the presented cookie.
func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	session, _ := auth.SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":       principal.User,
		"roles":      principal.RoleNames(),
		"expires_at": session.ExpiresAt,
	})
}

// handleLogout invalidates the presented session. Always answers 200 so a
// stale cookie does not strand the client in a logged-in UI state.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if token := sessionTokenFromRequest(r); token != "" {
		if err := a.auth.InvalidateSession(r.Context(), auth.SessionIDFromToken(token)); err != nil {
			writeError(w, r, http.StatusInternalServerError, "logout failed")
			return
		}
		_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}
