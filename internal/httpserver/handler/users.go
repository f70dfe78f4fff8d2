package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jakechorley/activity-log/pkg/core/roster"
)

// ListUsers returns the active members
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Roster.Summaries()
	if err != nil {
		h.writeRosterError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []roster.UserSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// GetUser returns one member with every entry
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Roster.User(chi.URLParam(r, "uid"))
	if err != nil {
		h.writeRosterError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Detail())
}

// CreateEntries logs today's activities for a member. The body is a list of
// activity types; unknown values and non-string items are ignored.
func (h *Handlers) CreateEntries(w http.ResponseWriter, r *http.Request) {
	u, err := h.Roster.User(chi.URLParam(r, "uid"))
	if err != nil {
		h.writeRosterError(w, r, err)
		return
	}

	var items []interface{}
	if err := decodeJSON(r, &items); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a list of activity types")
		return
	}

	var requested []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			requested = append(requested, s)
		}
	}

	types := roster.FilterActivityTypes(requested)
	if len(types) == 0 {
		writeError(w, http.StatusBadRequest, "no valid activity type specified")
		return
	}

	if _, err := u.CreateEntries(r.Context(), types); err != nil {
		h.writeRosterError(w, r, err)
		return
	}
	writeSuccess(w)
}

// GetEntry returns one entry of a member
func (h *Handlers) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.lookupEntry(r)
	if err != nil {
		h.writeRosterError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e.View())
}

func (h *Handlers) lookupEntry(r *http.Request) (*roster.Entry, error) {
	u, err := h.Roster.User(chi.URLParam(r, "uid"))
	if err != nil {
		return nil, err
	}

	id, err := roster.ParseEntryID(chi.URLParam(r, "eid"))
	if err != nil {
		return nil, err
	}

	return u.Entry(id)
}
