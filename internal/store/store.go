// Package store persists the weekly record as a single JSON blob per
// storage key. The whole record is re-serialized on every accepted
// transition; there are no partial writes. Loads never block the caller:
// a missing, unparsable, or incompatible record yields the default
// record, and the running session's in-memory state stays authoritative
// when a write fails.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"focusline/internal/domain"
)

// DefaultKey is the storage key used unless configured otherwise.
const DefaultKey = "weekly-plan"

type Store struct {
	DB  *sql.DB
	Now func() time.Time
}

func (s Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Load returns the record stored under key. A missing row, invalid JSON,
// or a schema-version mismatch falls back to the default record; found
// reports whether a stored record was actually used. The error is nil
// unless a row existed and was discarded, so callers can warn about a
// thrown-away record while a first run stays quiet.
func (s Store) Load(ctx context.Context, key string) (rec domain.UserData, found bool, _ error) {
	var raw string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM records WHERE key=?`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Default(), false, nil
		}
		return domain.Default(), false, fmt.Errorf("read record %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.Default(), false, fmt.Errorf("record %s discarded: %w", key, err)
	}
	if rec.SchemaVersion != domain.SchemaVersion {
		return domain.Default(), false, fmt.Errorf("record %s discarded: schema version %d, want %d", key, rec.SchemaVersion, domain.SchemaVersion)
	}
	if rec.Priorities == nil {
		rec.Priorities = []domain.Priority{}
	}
	return rec, true, nil
}

// Save upserts the full record under key.
func (s Store) Save(ctx context.Context, key string, rec domain.UserData) error {
	rec.SchemaVersion = domain.SchemaVersion
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO records(key, value, updated_at) VALUES (?,?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, string(data), s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save record %s: %w", key, err)
	}
	return nil
}

// Delete removes the record under key. Missing keys are not an error.
func (s Store) Delete(ctx context.Context, key string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM records WHERE key=?`, key)
	return err
}
