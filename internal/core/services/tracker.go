package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/nextsong/internal/core/domain"
	"github.com/ewilliams-labs/nextsong/internal/core/ports"
)

var (
	// ErrNotEligible indicates the session has not accumulated enough
	// behavior for a recommendation yet.
	ErrNotEligible = errors.New("service: session not eligible for recommendation")

	// ErrSuppressed indicates a recommendation was shown to the session
	// within the suppression window.
	ErrSuppressed = errors.New("service: recommendation recently shown")

	// ErrNoRecommendation indicates the scorer found nothing to suggest.
	ErrNoRecommendation = errors.New("service: no recommendation available")

	// ErrUnknownSong indicates a referenced song is not in the catalog.
	ErrUnknownSong = errors.New("service: unknown song")
)

// TrackerOptions tunes eligibility gating and display suppression.
type TrackerOptions struct {
	// MinVisits and MinClicks gate recommendations until the session has
	// accumulated that much behavior. Zero disables the gate.
	MinVisits int
	MinClicks int

	// SuppressFor holds back further recommendations after one was shown.
	// Zero disables suppression.
	SuppressFor time.Duration

	// SessionTTL is how long idle session state is retained.
	SessionTTL time.Duration
}

// Tracker owns the behavior-record lifecycle for visitor sessions: it loads
// a session's record, applies mutations, writes it back after every change,
// and decides when the session may be shown a recommendation.
type Tracker struct {
	store     ports.BehaviorStore
	catalog   ports.SongCatalog
	rec       *Recommender
	analytics ports.AnalyticsSink
	opts      TrackerOptions
	logger    zerolog.Logger

	now func() time.Time // swapped out in tests
}

// NewTracker constructs a Tracker. The analytics sink may be nil, in which
// case click-throughs are tracked but not forwarded.
func NewTracker(store ports.BehaviorStore, catalog ports.SongCatalog, rec *Recommender, analytics ports.AnalyticsSink, opts TrackerOptions, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:     store,
		catalog:   catalog,
		rec:       rec,
		analytics: analytics,
		opts:      opts,
		logger:    logger.With().Str("component", "tracker").Logger(),
		now:       time.Now,
	}
}

// RecordVisit tallies a page visit for the session.
func (t *Tracker) RecordVisit(ctx context.Context, sessionID, page string) error {
	return t.mutate(ctx, sessionID, func(rec *domain.BehaviorRecord) error {
		return rec.RecordVisit(page)
	})
}

// RecordClick tallies a song click for the session.
func (t *Tracker) RecordClick(ctx context.Context, sessionID, songTitle string) error {
	return t.mutate(ctx, sessionID, func(rec *domain.BehaviorRecord) error {
		return rec.RecordClick(songTitle)
	})
}

// RecordDwell adds dwell seconds on a page for the session.
func (t *Tracker) RecordDwell(ctx context.Context, sessionID, page string, seconds int) error {
	return t.mutate(ctx, sessionID, func(rec *domain.BehaviorRecord) error {
		return rec.AddTime(page, seconds)
	})
}

// Behavior returns the session's accumulated record. Sessions without any
// recorded behavior yield an empty record, not an error.
func (t *Tracker) Behavior(ctx context.Context, sessionID string) (domain.BehaviorRecord, error) {
	return t.load(ctx, sessionID)
}

// Recommend runs eligibility gating and display suppression, then asks the
// scorer for a song. On success the display timestamp is recorded so the
// session is not shown another card within the suppression window.
func (t *Tracker) Recommend(ctx context.Context, sessionID string, pageGenres []string, currentSongID string) (domain.Song, error) {
	rec, err := t.load(ctx, sessionID)
	if err != nil {
		return domain.Song{}, err
	}

	if t.opts.MinVisits > 0 && rec.TotalVisits() < t.opts.MinVisits {
		return domain.Song{}, ErrNotEligible
	}
	if t.opts.MinClicks > 0 && rec.TotalClicks() < t.opts.MinClicks {
		return domain.Song{}, ErrNotEligible
	}

	if t.opts.SuppressFor > 0 {
		last, err := t.store.LastShown(ctx, sessionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.Song{}, fmt.Errorf("service: load suppression state: %w", err)
		}
		if !last.IsZero() && t.now().Sub(last) < t.opts.SuppressFor {
			return domain.Song{}, ErrSuppressed
		}
	}

	catalog, err := t.catalog.Songs(ctx)
	if err != nil {
		return domain.Song{}, fmt.Errorf("service: load catalog: %w", err)
	}

	var current *domain.Song
	if currentSongID != "" {
		for i := range catalog {
			if catalog[i].ID == currentSongID {
				current = &catalog[i]
				break
			}
		}
	}

	song, ok := t.rec.Recommend(rec, catalog, pageGenres, current)
	if !ok {
		return domain.Song{}, ErrNoRecommendation
	}

	if err := t.store.MarkShown(ctx, sessionID, t.now()); err != nil {
		return domain.Song{}, fmt.Errorf("service: mark shown: %w", err)
	}

	t.logger.Debug().
		Str("session", sessionID).
		Str("song", song.Title).
		Msg("recommendation selected")
	return song, nil
}

// RecommendationClicked records a card click-through and forwards it to the
// analytics sink. Delivery failures are logged, never surfaced: analytics
// must not break the visitor-facing path.
func (t *Tracker) RecommendationClicked(ctx context.Context, sessionID, songID string) error {
	catalog, err := t.catalog.Songs(ctx)
	if err != nil {
		return fmt.Errorf("service: load catalog: %w", err)
	}

	var song *domain.Song
	for i := range catalog {
		if catalog[i].ID == songID {
			song = &catalog[i]
			break
		}
	}
	if song == nil {
		return ErrUnknownSong
	}

	if err := t.RecordClick(ctx, sessionID, song.Title); err != nil {
		return err
	}

	if t.analytics == nil {
		return nil
	}
	ev := ports.ClickEvent{
		Event:     ports.EventRecommendationClicked,
		SongTitle: song.Title,
		SongGenre: strings.Join(song.Genres, ", "),
		SongID:    song.ID,
	}
	if err := t.analytics.Publish(ctx, ev); err != nil {
		t.logger.Warn().Err(err).Str("song", song.Title).Msg("analytics publish failed")
	}
	return nil
}

// PurgeExpired drops session state idle for longer than the session TTL.
// Intended to run on a schedule.
func (t *Tracker) PurgeExpired(ctx context.Context) error {
	if t.opts.SessionTTL <= 0 {
		return nil
	}
	n, err := t.store.PurgeExpired(ctx, t.now().Add(-t.opts.SessionTTL))
	if err != nil {
		return fmt.Errorf("service: purge sessions: %w", err)
	}
	if n > 0 {
		t.logger.Info().Int("sessions", n).Msg("purged expired session state")
	}
	return nil
}

func (t *Tracker) load(ctx context.Context, sessionID string) (domain.BehaviorRecord, error) {
	rec, err := t.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewBehaviorRecord(), nil
		}
		return domain.BehaviorRecord{}, fmt.Errorf("service: load behavior: %w", err)
	}
	return rec, nil
}

func (t *Tracker) mutate(ctx context.Context, sessionID string, fn func(*domain.BehaviorRecord) error) error {
	if sessionID == "" {
		return fmt.Errorf("service: session id is required")
	}

	rec, err := t.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(&rec); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	if err := t.store.Save(ctx, sessionID, rec); err != nil {
		return fmt.Errorf("service: save behavior: %w", err)
	}
	return nil
}
