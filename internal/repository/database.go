// Package repository implements the data sources and persistence declared by
// the service layer: the sqlite snapshot store and the upstream scrapers.
package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// OpenDatabase opens (creating if needed) the sqlite database at path and
// applies the schema. The special path ":memory:" is honored for tests.
func OpenDatabase(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent access.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func applySchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			week_end      TEXT    NOT NULL UNIQUE,
			window_start  TEXT    NOT NULL,
			window_end    TEXT    NOT NULL,
			generated_at  TEXT    NOT NULL,
			total_revenue REAL    NOT NULL DEFAULT 0,
			total_tokens  INTEGER NOT NULL DEFAULT 0,
			model_count   INTEGER NOT NULL DEFAULT 0,
			paid_models   INTEGER NOT NULL DEFAULT 0,
			free_models   INTEGER NOT NULL DEFAULT 0,
			prompt_tokens     INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			reasoning_tokens  INTEGER NOT NULL DEFAULT 0,
			cached_tokens     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_models (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			snapshot_id     INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
			position        INTEGER NOT NULL,
			rank            INTEGER NOT NULL,
			slug            TEXT    NOT NULL,
			name            TEXT    NOT NULL,
			author          TEXT    NOT NULL DEFAULT '',
			weekly_tokens   INTEGER NOT NULL DEFAULT 0,
			weekly_change_pct REAL  NOT NULL DEFAULT 0,
			prompt_tokens     INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			reasoning_tokens  INTEGER NOT NULL DEFAULT 0,
			cached_tokens     INTEGER NOT NULL DEFAULT 0,
			requests          INTEGER NOT NULL DEFAULT 0,
			prompt_ratio      REAL    NOT NULL DEFAULT 0,
			completion_ratio  REAL    NOT NULL DEFAULT 0,
			reasoning_ratio   REAL    NOT NULL DEFAULT 0,
			prompt_price      REAL    NOT NULL DEFAULT 0,
			completion_price  REAL    NOT NULL DEFAULT 0,
			reasoning_price   REAL    NOT NULL DEFAULT 0,
			cache_read_price  REAL    NOT NULL DEFAULT 0,
			revenue           REAL    NOT NULL DEFAULT 0,
			is_free           INTEGER NOT NULL DEFAULT 0,
			pricing_matched   INTEGER NOT NULL DEFAULT 0,
			has_analytics     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_models_snapshot
			ON snapshot_models(snapshot_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_week_end
			ON snapshots(week_end)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
