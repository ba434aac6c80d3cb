package ports

import (
	"context"
	"time"

	"github.com/ewilliams-labs/nextsong/internal/core/domain"
)

// BehaviorStore persists per-session behavior records and the
// display-suppression state. Implementations return domain.ErrNotFound
// for sessions that have no stored record yet.
type BehaviorStore interface {
	// Load returns the stored behavior record for a session.
	Load(ctx context.Context, sessionID string) (domain.BehaviorRecord, error)

	// Save replaces the stored behavior record for a session.
	Save(ctx context.Context, sessionID string, rec domain.BehaviorRecord) error

	// LastShown returns when a recommendation was last displayed to the
	// session, or the zero time if none was.
	LastShown(ctx context.Context, sessionID string) (time.Time, error)

	// MarkShown records that a recommendation was displayed at the given time.
	MarkShown(ctx context.Context, sessionID string, at time.Time) error

	// PurgeExpired removes all session state last touched before cutoff and
	// reports how many sessions were removed.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
}
