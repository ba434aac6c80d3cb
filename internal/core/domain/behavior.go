package domain

import "errors"

var (
	// ErrNotFound indicates a requested record does not exist in storage.
	ErrNotFound = errors.New("domain: not found")

	// ErrNegativeDuration indicates an attempt to record negative dwell time.
	ErrNegativeDuration = errors.New("domain: negative duration")

	errInvalidArgument = errors.New("domain: invalid argument")
)

// BehaviorRecord accumulates a visitor session's page visits, song clicks
// and dwell time. Counts only ever grow within a session; mutators reject
// input that would violate that.
type BehaviorRecord struct {
	PagesVisited map[string]int `json:"pagesVisited"`
	Clicks       map[string]int `json:"clicks"`
	TimeSpent    map[string]int `json:"timeSpent"` // cumulative seconds per page
}

// NewBehaviorRecord returns an empty record with all tallies initialized.
func NewBehaviorRecord() BehaviorRecord {
	return BehaviorRecord{
		PagesVisited: map[string]int{},
		Clicks:       map[string]int{},
		TimeSpent:    map[string]int{},
	}
}

// init backfills nil maps so records decoded from storage are safe to mutate.
func (r *BehaviorRecord) init() {
	if r.PagesVisited == nil {
		r.PagesVisited = map[string]int{}
	}
	if r.Clicks == nil {
		r.Clicks = map[string]int{}
	}
	if r.TimeSpent == nil {
		r.TimeSpent = map[string]int{}
	}
}

// RecordVisit increments the visit count for a page path.
func (r *BehaviorRecord) RecordVisit(page string) error {
	if page == "" {
		return errInvalidArgument
	}
	r.init()
	r.PagesVisited[page]++
	return nil
}

// RecordClick increments the click count for a song title.
func (r *BehaviorRecord) RecordClick(songTitle string) error {
	if songTitle == "" {
		return errInvalidArgument
	}
	r.init()
	r.Clicks[songTitle]++
	return nil
}

// AddTime adds dwell seconds for a page path.
func (r *BehaviorRecord) AddTime(page string, seconds int) error {
	if page == "" {
		return errInvalidArgument
	}
	if seconds < 0 {
		return ErrNegativeDuration
	}
	r.init()
	r.TimeSpent[page] += seconds
	return nil
}

// Merge overlays other onto r, overwriting on key collision. Used when a
// stored record is folded into a fresh session.
func (r *BehaviorRecord) Merge(other BehaviorRecord) {
	r.init()
	for page, n := range other.PagesVisited {
		r.PagesVisited[page] = n
	}
	for title, n := range other.Clicks {
		r.Clicks[title] = n
	}
	for page, s := range other.TimeSpent {
		r.TimeSpent[page] = s
	}
}

// TotalVisits returns the sum of all page visit counts.
func (r BehaviorRecord) TotalVisits() int {
	total := 0
	for _, n := range r.PagesVisited {
		total += n
	}
	return total
}

// TotalClicks returns the sum of all song click counts.
func (r BehaviorRecord) TotalClicks() int {
	total := 0
	for _, n := range r.Clicks {
		total += n
	}
	return total
}

// Clone returns a deep copy so callers cannot alias stored state.
func (r BehaviorRecord) Clone() BehaviorRecord {
	out := NewBehaviorRecord()
	out.Merge(r)
	return out
}
