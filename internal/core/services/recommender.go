package services

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/ewilliams-labs/nextsong/internal/core/domain"
)

const (
	// Genre weight per recorded click on a song.
	clickGenreWeight = 2
	// Need weight per recorded click on a song.
	clickNeedWeight = 1
	// Flat boost for genres detected on the page the visitor is reading.
	currentPageBoost = 3
)

// tally accumulates integer scores per tag, remembering first-seen order so
// tie-breaks are deterministic: on equal scores the earliest-seen tag wins.
type tally struct {
	order  []string
	scores map[string]int
}

func newTally() *tally {
	return &tally{scores: make(map[string]int)}
}

func (t *tally) add(tag string, n int) {
	if _, seen := t.scores[tag]; !seen {
		t.order = append(t.order, tag)
	}
	t.scores[tag] += n
}

func (t *tally) get(tag string) int {
	return t.scores[tag]
}

// top returns the tag with the highest score, or false if the tally is empty.
func (t *tally) top() (string, bool) {
	if len(t.order) == 0 {
		return "", false
	}
	best := t.order[0]
	for _, tag := range t.order[1:] {
		if t.scores[tag] > t.scores[best] {
			best = tag
		}
	}
	return best, true
}

// Recommender selects the next song to suggest from accumulated visitor
// behavior. Apart from the random draw in its fallback paths it is a pure
// function over its inputs. Safe for concurrent use.
type Recommender struct {
	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewRecommender constructs a Recommender. A nil rng gets a time-seeded one.
func NewRecommender(rng *rand.Rand) *Recommender {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Recommender{rng: rng}
}

// Recommend picks one published song for the visitor, or reports false when
// the catalog offers nothing.
//
// Selection works in three stages: build genre and need tallies from the
// behavior record and the current page's genres, pick the top-scoring genre,
// then pick the song with the highest combined tally among songs carrying
// that genre. Whenever a stage has nothing to offer it falls back to a
// uniform random draw over the widest applicable pool. The song whose page
// the visitor is currently on is excluded unless that would leave nothing
// to suggest.
func (r *Recommender) Recommend(behavior domain.BehaviorRecord, catalog []domain.Song, currentPageGenres []string, current *domain.Song) (domain.Song, bool) {
	published := publishedSongs(catalog)
	if len(published) == 0 {
		return domain.Song{}, false
	}

	genres, needs := buildTallies(behavior, published, currentPageGenres)

	pool := published
	if top, ok := genres.top(); ok {
		matching := songsWithGenre(published, top)
		if len(matching) > 0 {
			if best, ok := pickBest(matching, genres, needs, current); ok {
				return best, true
			}
			// Every candidate was the current song; draw from the
			// matching pool instead of the full catalog.
			pool = matching
		}
	}

	return r.randomPick(pool, current)
}

// buildTallies aggregates the three behavior signals into per-tag scores.
// Behavior maps are walked in sorted-key order so the first-seen tie-break
// does not depend on map iteration order.
func buildTallies(behavior domain.BehaviorRecord, published []domain.Song, currentPageGenres []string) (*tally, *tally) {
	genres := newTally()
	needs := newTally()

	for _, title := range sortedKeys(behavior.Clicks) {
		song, ok := songByTitle(published, title)
		if !ok {
			continue
		}
		count := behavior.Clicks[title]
		for _, g := range song.Genres {
			genres.add(g, count*clickGenreWeight)
		}
		for _, n := range song.Needs {
			needs.add(n, count*clickNeedWeight)
		}
	}

	for _, page := range sortedKeys(behavior.TimeSpent) {
		minutes := behavior.TimeSpent[page] / 60
		for _, song := range published {
			if !domain.SamePage(song.URL, page) {
				continue
			}
			for _, g := range song.Genres {
				genres.add(g, minutes)
			}
		}
	}

	for _, raw := range currentPageGenres {
		if tag := domain.NormalizeTag(raw); tag != "" {
			genres.add(tag, currentPageBoost)
		}
	}

	return genres, needs
}

// pickBest returns the candidate with the highest combined genre and need
// score, skipping the current song. The second return is false when every
// candidate was skipped. Ties go to the earliest candidate.
func pickBest(candidates []domain.Song, genres, needs *tally, current *domain.Song) (domain.Song, bool) {
	var best domain.Song
	bestTotal := -1
	evaluated := false

	for _, song := range candidates {
		if current != nil && sameSong(song, *current) {
			continue
		}
		total := 0
		for _, g := range song.Genres {
			total += genres.get(g)
		}
		for _, n := range song.Needs {
			total += needs.get(n)
		}
		if !evaluated || total > bestTotal {
			best = song
			bestTotal = total
			evaluated = true
		}
	}

	return best, evaluated
}

func (r *Recommender) randomPick(pool []domain.Song, current *domain.Song) (domain.Song, bool) {
	if len(pool) == 0 {
		return domain.Song{}, false
	}

	candidates := pool
	if current != nil {
		trimmed := make([]domain.Song, 0, len(pool))
		for _, song := range pool {
			if !sameSong(song, *current) {
				trimmed = append(trimmed, song)
			}
		}
		if len(trimmed) > 0 {
			candidates = trimmed
		}
	}

	r.rngMu.Lock()
	idx := r.rng.Intn(len(candidates))
	r.rngMu.Unlock()
	return candidates[idx], true
}

func publishedSongs(catalog []domain.Song) []domain.Song {
	out := make([]domain.Song, 0, len(catalog))
	for _, song := range catalog {
		if song.Published() {
			out = append(out, song)
		}
	}
	return out
}

func songsWithGenre(songs []domain.Song, tag string) []domain.Song {
	var out []domain.Song
	for _, song := range songs {
		if song.HasGenre(tag) {
			out = append(out, song)
		}
	}
	return out
}

func songByTitle(songs []domain.Song, title string) (domain.Song, bool) {
	for _, song := range songs {
		if song.Title == title {
			return song, true
		}
	}
	return domain.Song{}, false
}

func sameSong(a, b domain.Song) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return a.Title == b.Title
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
