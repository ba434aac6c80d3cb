package rest

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/nextsong/internal/adapters/catalog"
	"github.com/ewilliams-labs/nextsong/internal/adapters/memstore"
	"github.com/ewilliams-labs/nextsong/internal/adapters/metadata"
	"github.com/ewilliams-labs/nextsong/internal/core/ports"
	"github.com/ewilliams-labs/nextsong/internal/core/services"
)

const testCatalog = `
songs:
  - id: s1
    title: Song A
    genres: "praise, worship"
    needs: "joy"
    url: /songs/a
  - id: s2
    title: Song B
    genres: "praise"
    url: /songs/b
`

type captureSink struct {
	mu     sync.Mutex
	events []ports.ClickEvent
}

func (s *captureSink) Publish(ctx context.Context, ev ports.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func newTestHandler(t *testing.T, opts services.TrackerOptions, sink ports.AnalyticsSink) *Handler {
	t.Helper()
	cat, err := catalog.Parse(strings.NewReader(testCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	rec := services.NewRecommender(rand.New(rand.NewSource(1)))
	tracker := services.NewTracker(memstore.New(), cat, rec, sink, opts, zerolog.Nop())
	return NewHandler(tracker, metadata.NewExtractor(zerolog.Nop()), zerolog.Nop())
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandler(t, services.TrackerOptions{}, nil)
	rr := doJSON(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestRecordVisit(t *testing.T) {
	h := newTestHandler(t, services.TrackerOptions{}, nil)

	rr := doJSON(t, h, http.MethodPost, "/sessions/sess/events/visit", `{"page":"/songs/a"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204, body %s", rr.Code, rr.Body.String())
	}
}

func TestRecordVisit_Validation(t *testing.T) {
	h := newTestHandler(t, services.TrackerOptions{}, nil)

	tests := []struct {
		name       string
		body       string
		withJSON   bool
		wantStatus int
	}{
		{"missing page", `{}`, true, http.StatusBadRequest},
		{"invalid json", `{`, true, http.StatusBadRequest},
		{"wrong content type", `{"page":"/x"}`, false, http.StatusUnsupportedMediaType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sessions/sess/events/visit", strings.NewReader(tc.body))
			if tc.withJSON {
				req.Header.Set("Content-Type", "application/json")
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
		})
	}
}

func TestRecordDwell_NegativeSeconds(t *testing.T) {
	h := newTestHandler(t, services.TrackerOptions{}, nil)
	rr := doJSON(t, h, http.MethodPost, "/sessions/sess/events/dwell", `{"page":"/songs/a","seconds":-5}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestGetRecommendation_Gated(t *testing.T) {
	h := newTestHandler(t, services.TrackerOptions{MinVisits: 3, MinClicks: 2}, nil)

	rr := doJSON(t, h, http.MethodGet, "/sessions/sess/recommendation", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}

	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != errCodeNotEligible {
		t.Errorf("code = %q, want %q", resp.Code, errCodeNotEligible)
	}
}

func TestGetRecommendation_FullFlow(t *testing.T) {
	opts := services.TrackerOptions{MinVisits: 3, MinClicks: 2, SuppressFor: 24 * time.Hour}
	h := newTestHandler(t, opts, nil)

	for i := 0; i < 3; i++ {
		if rr := doJSON(t, h, http.MethodPost, "/sessions/sess/events/visit", `{"page":"/songs/a"}`); rr.Code != http.StatusNoContent {
			t.Fatalf("visit status = %d", rr.Code)
		}
	}
	for i := 0; i < 2; i++ {
		if rr := doJSON(t, h, http.MethodPost, "/sessions/sess/events/click", `{"songTitle":"Song A"}`); rr.Code != http.StatusNoContent {
			t.Fatalf("click status = %d", rr.Code)
		}
	}

	rr := doJSON(t, h, http.MethodGet, "/sessions/sess/recommendation?genres=praise&current=s2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp recommendationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "s1" || resp.Title != "Song A" {
		t.Errorf("recommended %+v, want Song A", resp)
	}

	// Second request inside the suppression window is held back.
	rr = doJSON(t, h, http.MethodGet, "/sessions/sess/recommendation", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("suppressed status = %d, want 404", rr.Code)
	}
}

func TestRecommendationClicked(t *testing.T) {
	sink := &captureSink{}
	h := newTestHandler(t, services.TrackerOptions{}, sink)

	rr := doJSON(t, h, http.MethodPost, "/sessions/sess/recommendation/clicked", `{"songId":"s1"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body %s", rr.Code, rr.Body.String())
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 1 {
		t.Fatalf("events = %d, want 1", len(sink.events))
	}
	if sink.events[0].SongID != "s1" || sink.events[0].Event != ports.EventRecommendationClicked {
		t.Errorf("unexpected event: %+v", sink.events[0])
	}
}

func TestPageGenres(t *testing.T) {
	h := newTestHandler(t, services.TrackerOptions{}, nil)

	page := `<html><head><script type="application/ld+json">
		{"@type":"MusicRecording","genre":["Praise","Worship"]}
	</script></head><body></body></html>`

	req := httptest.NewRequest(http.MethodPost, "/pages/genres", strings.NewReader(page))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Genres []string `json:"genres"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Genres) != 2 || resp.Genres[0] != "praise" || resp.Genres[1] != "worship" {
		t.Errorf("genres = %v, want [praise worship]", resp.Genres)
	}
}

func TestRecommendationClicked_UnknownSong(t *testing.T) {
	h := newTestHandler(t, services.TrackerOptions{}, nil)
	rr := doJSON(t, h, http.MethodPost, "/sessions/sess/recommendation/clicked", `{"songId":"nope"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}
