package rest

import (
	"errors"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/ewilliams-labs/nextsong/internal/core/domain"
	"github.com/ewilliams-labs/nextsong/internal/core/services"
)

const errCodeNotEligible = "NOT_ELIGIBLE"

// recommendationResponse carries everything the card UI needs to render.
type recommendationResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Genres       []string `json:"genres"`
	Needs        []string `json:"needs,omitempty"`
	URL          string   `json:"url"`
	PlaylistURL  string   `json:"playlistUrl,omitempty"`
	StreamingURL string   `json:"streamingUrl,omitempty"`
	CoverURL     string   `json:"coverUrl,omitempty"`
	Quote        string   `json:"quote,omitempty"`
}

// GetRecommendation handles GET /sessions/{id}/recommendation.
//
// Query parameters: "genres" is the comma-separated genre list detected on
// the current page, "current" the catalog id of the song page the visitor
// is on, if any. Gated, suppressed and empty results all map to 404 with a
// machine-readable code so the site snippet can simply skip rendering.
func (h *Handler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var pageGenres []string
	if raw := r.URL.Query().Get("genres"); raw != "" {
		pageGenres = strings.Split(raw, ",")
	}
	currentSongID := r.URL.Query().Get("current")

	song, err := h.tracker.Recommend(r.Context(), sessionID, pageGenres, currentSongID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotEligible),
			errors.Is(err, services.ErrSuppressed),
			errors.Is(err, services.ErrNoRecommendation):
			writeErrorWithCode(w, http.StatusNotFound, err.Error(), errCodeNotEligible)
		default:
			h.serviceError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, toRecommendationResponse(song))
}

type clickedRequest struct {
	SongID string `json:"songId"`
}

// RecommendationClicked handles POST /sessions/{id}/recommendation/clicked.
func (h *Handler) RecommendationClicked(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	var req clickedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SongID == "" {
		writeError(w, http.StatusBadRequest, "songId is required")
		return
	}

	if err := h.tracker.RecommendationClicked(r.Context(), sessionID, req.SongID); err != nil {
		if errors.Is(err, services.ErrUnknownSong) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func toRecommendationResponse(song domain.Song) recommendationResponse {
	return recommendationResponse{
		ID:           song.ID,
		Title:        song.Title,
		Genres:       song.Genres,
		Needs:        song.Needs,
		URL:          song.URL,
		PlaylistURL:  song.PlaylistURL,
		StreamingURL: song.StreamingURL,
		CoverURL:     song.CoverURL,
		Quote:        song.Quote,
	}
}
