package handler

import (
	"context"
	"net/http"

	"github.com/jakechorley/activity-log/pkg/core/roster"
)

type reviewRequest struct {
	Status string `json:"status"`
}

// ListPending returns every member with entries awaiting review
func (h *Handlers) ListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Roster.Pending()
	if err != nil {
		h.writeRosterError(w, r, err)
		return
	}
	if pending == nil {
		pending = []roster.UserDetail{}
	}
	writeJSON(w, http.StatusOK, pending)
}

// ReviewEntry accepts or rejects one entry and returns it
func (h *Handlers) ReviewEntry(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.lookupEntry(r)
	if err != nil {
		h.writeRosterError(w, r, err)
		return
	}

	switch req.Status {
	case "accept":
		err = e.Accept(r.Context())
	case "reject":
		err = e.Reject(r.Context())
	default:
		writeError(w, http.StatusBadRequest, `status must be "accept" or "reject"`)
		return
	}
	if err != nil {
		h.writeRosterError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, e.View())
}

// Resync reloads the roster from the row store. The reload runs to
// completion even if the client disconnects.
func (h *Handlers) Resync(w http.ResponseWriter, r *http.Request) {
	if err := h.Roster.Reload(context.WithoutCancel(r.Context())); err != nil {
		h.writeRosterError(w, r, err)
		return
	}
	writeSuccess(w)
}

// Health reports whether the roster is loaded
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Roster.Err(); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeSuccess(w)
}
