package rest

import (
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/nextsong/internal/adapters/metadata"
	"github.com/ewilliams-labs/nextsong/internal/core/services"
)

// Handler manages the HTTP interface for our application.
type Handler struct {
	tracker   *services.Tracker   // Dependency on the Core Service
	extractor *metadata.Extractor // Page genre detection
	router    *http.ServeMux      // Standard library router
	logger    zerolog.Logger
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(tracker *services.Tracker, extractor *metadata.Extractor, logger zerolog.Logger) *Handler {
	h := &Handler{
		tracker:   tracker,
		extractor: extractor,
		router:    http.NewServeMux(),
		logger:    logger.With().Str("component", "rest").Logger(),
	}

	// Register Routes
	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
// It acts as a proxy, passing the request to our internal router.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	// Health Check
	h.router.HandleFunc("GET /health", h.HealthCheck)
	// Behavior tracking
	h.router.HandleFunc("POST /sessions/{id}/events/visit", h.RecordVisit)
	h.router.HandleFunc("POST /sessions/{id}/events/click", h.RecordClick)
	h.router.HandleFunc("POST /sessions/{id}/events/dwell", h.RecordDwell)
	// Recommendation
	h.router.HandleFunc("GET /sessions/{id}/recommendation", h.GetRecommendation)
	h.router.HandleFunc("POST /sessions/{id}/recommendation/clicked", h.RecommendationClicked)
	// Page metadata
	h.router.HandleFunc("POST /pages/genres", h.PageGenres)
}

// PageGenres handles POST /pages/genres. The tracking snippet posts the raw
// HTML of the page it runs on and gets back the genre tags found in its
// structured-data blocks, which it then echoes on recommendation requests.
func (h *Handler) PageGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.extractor.GenresFromHTML(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid HTML document")
		return
	}
	if genres == nil {
		genres = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"genres": genres})
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Shared helpers ---

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func isJSONContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), "application/json")
}
