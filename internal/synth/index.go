package synth

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const indexSchemaVersion = 1

// ErrIndexSchemaMismatch means the index was written by an incompatible version.
var ErrIndexSchemaMismatch = errors.New("cache index schema version mismatch")

// Index records cache entries in SQLite for stats and least-recently-used
// pruning.
type Index struct {
	db *sql.DB
}

// IndexEntry is one indexed clip.
type IndexEntry struct {
	Key        Key
	SizeBytes  int64
	Duration   float64
	SampleRate int
	CreatedAt  time.Time
	LastAccess time.Time
	Hits       int64
}

// OpenIndex opens or creates the index database at path.
func OpenIndex(ctx context.Context, path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	idx := &Index{db: db}
	if err := idx.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) initSchema(ctx context.Context) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create cache index schema: %w", err)
	}
	var version int
	err = tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", indexSchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != indexSchemaVersion:
		return fmt.Errorf("%w: index has version %d, expected %d (run 'dubber cache clear')",
			ErrIndexSchemaMismatch, version, indexSchemaVersion)
	}
	return tx.Commit()
}

// Close closes the database.
func (i *Index) Close() error {
	if i == nil || i.db == nil {
		return nil
	}
	return i.db.Close()
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func timestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Record inserts or replaces an entry, resetting its access time.
func (i *Index) Record(ctx context.Context, key Key, sizeBytes int64, duration float64, sampleRate int) error {
	now := timestamp(time.Now())
	_, err := i.db.ExecContext(ctx, `
        INSERT INTO tts_entries (cache_key, size_bytes, duration_seconds, sample_rate, created_at, last_access, hits)
        VALUES (?, ?, ?, ?, ?, ?, 0)
        ON CONFLICT(cache_key) DO UPDATE SET
            size_bytes = excluded.size_bytes,
            duration_seconds = excluded.duration_seconds,
            sample_rate = excluded.sample_rate,
            last_access = excluded.last_access`,
		string(key), sizeBytes, duration, sampleRate, now, now)
	if err != nil {
		return fmt.Errorf("record cache entry: %w", err)
	}
	return nil
}

// Touch bumps the access time and hit count of key.
func (i *Index) Touch(ctx context.Context, key Key) error {
	_, err := i.db.ExecContext(ctx,
		"UPDATE tts_entries SET last_access = ?, hits = hits + 1 WHERE cache_key = ?",
		timestamp(time.Now()), string(key))
	if err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}
	return nil
}

// Remove deletes key from the index.
func (i *Index) Remove(ctx context.Context, key Key) error {
	if _, err := i.db.ExecContext(ctx, "DELETE FROM tts_entries WHERE cache_key = ?", string(key)); err != nil {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}

// Clear deletes every entry.
func (i *Index) Clear(ctx context.Context) error {
	if _, err := i.db.ExecContext(ctx, "DELETE FROM tts_entries"); err != nil {
		return fmt.Errorf("clear cache index: %w", err)
	}
	return nil
}

// Entries lists entries from least to most recently used.
func (i *Index) Entries(ctx context.Context) ([]IndexEntry, error) {
	rows, err := i.db.QueryContext(ctx, `
        SELECT cache_key, size_bytes, duration_seconds, sample_rate, created_at, last_access, hits
        FROM tts_entries ORDER BY last_access ASC, cache_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close()
	var out []IndexEntry
	for rows.Next() {
		var (
			e                 IndexEntry
			key               string
			created, accessed string
		)
		if err := rows.Scan(&key, &e.SizeBytes, &e.Duration, &e.SampleRate, &created, &accessed, &e.Hits); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		e.Key = Key(key)
		e.CreatedAt, _ = time.Parse(timeLayout, created)
		e.LastAccess, _ = time.Parse(timeLayout, accessed)
		out = append(out, e)
	}
	return out, rows.Err()
}

// TotalHits sums hit counts across entries.
func (i *Index) TotalHits(ctx context.Context) (int64, error) {
	var hits sql.NullInt64
	if err := i.db.QueryRowContext(ctx, "SELECT SUM(hits) FROM tts_entries").Scan(&hits); err != nil {
		return 0, fmt.Errorf("sum cache hits: %w", err)
	}
	return hits.Int64, nil
}
