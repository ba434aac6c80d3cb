package rest

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/ewilliams-labs/nextsong/internal/core/domain"
)

// visitRequest defines what the tracking snippet sends on page load.
type visitRequest struct {
	Page string `json:"page"`
}

// RecordVisit handles POST /sessions/{id}/events/visit
func (h *Handler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req visitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Page == "" {
		writeError(w, http.StatusBadRequest, "page is required")
		return
	}

	if err := h.tracker.RecordVisit(r.Context(), sessionID, req.Page); err != nil {
		h.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type clickRequest struct {
	SongTitle string `json:"songTitle"`
}

// RecordClick handles POST /sessions/{id}/events/click
func (h *Handler) RecordClick(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req clickRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SongTitle == "" {
		writeError(w, http.StatusBadRequest, "songTitle is required")
		return
	}

	if err := h.tracker.RecordClick(r.Context(), sessionID, req.SongTitle); err != nil {
		h.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dwellRequest struct {
	Page    string `json:"page"`
	Seconds int    `json:"seconds"`
}

// RecordDwell handles POST /sessions/{id}/events/dwell
func (h *Handler) RecordDwell(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req dwellRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Page == "" {
		writeError(w, http.StatusBadRequest, "page is required")
		return
	}

	if err := h.tracker.RecordDwell(r.Context(), sessionID, req.Page, req.Seconds); err != nil {
		if errors.Is(err, domain.ErrNegativeDuration) {
			writeError(w, http.StatusBadRequest, "seconds must not be negative")
			return
		}
		h.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return "", false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) serviceError(w http.ResponseWriter, err error) {
	h.logger.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, err.Error())
}
