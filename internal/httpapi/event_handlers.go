package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"konnekt.org/internal/audit"
	"konnekt.org/internal/auth"
	"konnekt.org/internal/events"
)

type createEventRequest struct {
	Title    string    `json:"title"`
	Genre    string    `json:"genre"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listEvents(w, r)
	case http.MethodPost:
		if !a.ensurePermissions(w, r, auth.PermEventCreate) {
			return
		}
		a.createEvent(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// listEvents is the public schedule; no session required.
func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	list, err := a.events.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "listing events failed")
		return
	}
	if list == nil {
		list = []events.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": list})
}

func (a *API) createEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ev, err := a.events.Create(r.Context(), events.NewEvent{
		Title:    req.Title,
		Genre:    req.Genre,
		Venue:    req.Venue,
		StartsAt: req.StartsAt,
	})
	if err != nil {
		if errors.Is(err, events.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "creating event failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "events.create", map[string]any{
		"event_id": ev.ID,
	})
	writeJSON(w, http.StatusCreated, ev)
}

// handleEventScoped serves /v1/events/{id}.
func (a *API) handleEventScoped(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/events/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		ev, err := a.events.Find(r.Context(), id)
		if err != nil {
			if errors.Is(err, events.ErrNotFound) {
				writeError(w, r, http.StatusNotFound, "event not found")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "loading event failed")
			return
		}
		writeJSON(w, http.StatusOK, ev)
	case http.MethodDelete:
		if !a.ensurePermissions(w, r, auth.PermEventDelete) {
			return
		}
		if err := a.events.Delete(r.Context(), id); err != nil {
			if errors.Is(err, events.ErrNotFound) {
				writeError(w, r, http.StatusNotFound, "event not found")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "deleting event failed")
			return
		}
		_ = audit.LogEvent(r.Context(), "events.delete", map[string]any{
			"event_id": id,
		})
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}
