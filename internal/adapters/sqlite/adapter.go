// Package sqlite provides a SQLite-backed implementation of the behavior
// store port. It backs the persistent variant: session state survives
// restarts and is expired by the purge sweep.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/nextsong/internal/core/domain"
	"github.com/ewilliams-labs/nextsong/internal/core/ports"
)

// Adapter implements the behavior store port for SQLite.
type Adapter struct {
	db     *sql.DB
	logger zerolog.Logger
}

// compile-time interface assertion
var _ ports.BehaviorStore = (*Adapter)(nil)

// NewAdapter creates a connection and runs the schema migration.
func NewAdapter(storagePath string, logger zerolog.Logger) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{
		db:     db,
		logger: logger.With().Str("component", "sqlite").Logger(),
	}

	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Load returns the stored behavior record for a session. A corrupt stored
// blob is treated as absent rather than failing the request: the session
// simply starts over with an empty record.
func (a *Adapter) Load(ctx context.Context, sessionID string) (domain.BehaviorRecord, error) {
	row := a.db.QueryRowContext(ctx, "SELECT behavior FROM sessions WHERE id = ?", sessionID)

	var blob sql.NullString
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return domain.BehaviorRecord{}, domain.ErrNotFound
		}
		return domain.BehaviorRecord{}, fmt.Errorf("failed to load behavior record: %w", err)
	}
	if !blob.Valid || blob.String == "" {
		return domain.BehaviorRecord{}, domain.ErrNotFound
	}

	var rec domain.BehaviorRecord
	if err := json.Unmarshal([]byte(blob.String), &rec); err != nil {
		a.logger.Warn().Err(err).Str("session", sessionID).Msg("corrupt behavior record, resetting")
		return domain.BehaviorRecord{}, domain.ErrNotFound
	}

	return rec, nil
}

// Save upserts the behavior record for a session.
func (a *Adapter) Save(ctx context.Context, sessionID string, rec domain.BehaviorRecord) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode behavior record: %w", err)
	}

	query := `
		INSERT INTO sessions (id, behavior, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET behavior=excluded.behavior, updated_at=excluded.updated_at;
	`
	if _, err := a.db.ExecContext(ctx, query, sessionID, string(blob), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to save behavior record: %w", err)
	}
	return nil
}

// LastShown returns when a recommendation was last displayed to the session.
func (a *Adapter) LastShown(ctx context.Context, sessionID string) (time.Time, error) {
	row := a.db.QueryRowContext(ctx, "SELECT last_shown FROM sessions WHERE id = ?", sessionID)

	var shown sql.NullInt64
	if err := row.Scan(&shown); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("failed to load shown state: %w", err)
	}
	if !shown.Valid || shown.Int64 == 0 {
		return time.Time{}, domain.ErrNotFound
	}

	return time.Unix(shown.Int64, 0), nil
}

// MarkShown records the display timestamp for a session.
func (a *Adapter) MarkShown(ctx context.Context, sessionID string, at time.Time) error {
	query := `
		INSERT INTO sessions (id, last_shown, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_shown=excluded.last_shown, updated_at=excluded.updated_at;
	`
	if _, err := a.db.ExecContext(ctx, query, sessionID, at.Unix(), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to mark shown: %w", err)
	}
	return nil
}

// PurgeExpired deletes sessions last touched before cutoff.
func (a *Adapter) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := a.db.ExecContext(ctx, "DELETE FROM sessions WHERE updated_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged sessions: %w", err)
	}
	return int(n), nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		behavior TEXT,
		last_shown INTEGER,
		updated_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}
	return nil
}
