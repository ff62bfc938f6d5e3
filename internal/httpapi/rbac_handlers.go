package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"konnekt.org/internal/audit"
	"konnekt.org/internal/auth"
)

type assignRoleRequest struct {
	Role string `json:"role"`
}

type setPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// handleUserScoped serves /v1/users/{id}/roles.
func (a *API) handleUserScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "roles" {
		http.NotFound(w, r)
		return
	}
	userID := parts[0]

	if !a.ensurePermissions(w, r, auth.PermMemberManage) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		roles, err := a.roles.UserRoles(r.Context(), userID)
		if err != nil {
			a.writeRoleError(w, r, err)
			return
		}
		if roles == nil {
			roles = []auth.Role{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
	case http.MethodPost:
		var req assignRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.Role) == "" {
			writeError(w, r, http.StatusBadRequest, "role is required")
			return
		}
		if err := a.roles.AssignRole(r.Context(), userID, req.Role); err != nil {
			a.writeRoleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "rbac.assign_role", map[string]any{
			"target_user_id": userID,
			"role":           strings.ToLower(strings.TrimSpace(req.Role)),
		})
		writeJSON(w, http.StatusOK, map[string]any{"status": "assigned"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleRoleScoped serves /v1/roles/{id}/permissions.
func (a *API) handleRoleScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/roles/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "permissions" {
		http.NotFound(w, r)
		return
	}
	roleID := parts[0]

	if !a.ensurePermissions(w, r, auth.PermRoleManage) {
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}

	var req setPermissionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.roles.SetRolePermissions(r.Context(), roleID, req.Permissions); err != nil {
		a.writeRoleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.set_role_permissions", map[string]any{
		"role_id":     roleID,
		"permissions": req.Permissions,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

func (a *API) writeRoleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "role management failed")
	}
}
