package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"scrollsafe/internal/config"
	"scrollsafe/internal/media"
)

// History persists the bounded recent-observation trail backed by SQLite.
// The trail is deduplicated by (platform, video_id), keeping the most recent
// observation, and trimmed to a fixed size on every append.
type History struct {
	db         *sql.DB
	path       string
	maxEntries int
}

// OpenHistory initializes or connects to the history database.
func OpenHistory(cfg *config.Config) (*History, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &History{db: db, path: dbPath, maxEntries: cfg.History.MaxEntries}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (h *History) applySchema(ctx context.Context) error {
	schema := `CREATE TABLE IF NOT EXISTS history (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        platform TEXT NOT NULL,
        video_id TEXT NOT NULL,
        title TEXT,
        label TEXT NOT NULL,
        confidence REAL,
        source TEXT NOT NULL,
        observed_at TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_history_identity ON history (platform, video_id);`
	if _, err := h.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply history schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Append records an observation, replacing any earlier entry for the same
// identity and trimming the trail to its configured bound.
func (h *History) Append(ctx context.Context, entry media.HistoryEntry) error {
	observedAt := entry.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM history WHERE platform = ? AND video_id = ?`,
		entry.Platform, entry.VideoID,
	); err != nil {
		return fmt.Errorf("dedup history: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history (platform, video_id, title, label, confidence, source, observed_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Platform,
		entry.VideoID,
		nullableString(entry.Title),
		string(entry.Label),
		nullableFloat(entry.Confidence),
		entry.Source,
		observedAt.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM history WHERE id NOT IN (
            SELECT id FROM history ORDER BY id DESC LIMIT ?
        )`,
		h.maxEntries,
	); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// Recent returns the trail, newest first.
func (h *History) Recent(ctx context.Context) ([]media.HistoryEntry, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT platform, video_id, title, label, confidence, source, observed_at
         FROM history ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []media.HistoryEntry
	for rows.Next() {
		entry, err := scanHistoryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func scanHistoryRow(rows *sql.Rows) (media.HistoryEntry, error) {
	var (
		entry      media.HistoryEntry
		title      sql.NullString
		confidence sql.NullFloat64
		label      string
		observedAt string
	)
	if err := rows.Scan(&entry.Platform, &entry.VideoID, &title, &label, &confidence, &entry.Source, &observedAt); err != nil {
		return media.HistoryEntry{}, fmt.Errorf("scan history row: %w", err)
	}
	entry.Label = media.Label(label)
	if title.Valid {
		entry.Title = title.String
	}
	if confidence.Valid {
		value := confidence.Float64
		entry.Confidence = &value
	}
	parsed, err := time.Parse(time.RFC3339Nano, observedAt)
	if err != nil {
		return media.HistoryEntry{}, fmt.Errorf("parse observed_at: %w", err)
	}
	entry.ObservedAt = parsed
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}
