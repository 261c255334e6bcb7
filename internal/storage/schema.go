package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		// One row per directory table: column order and load metadata.
		`CREATE TABLE IF NOT EXISTS directory_tables (
			kind TEXT PRIMARY KEY,
			columns TEXT NOT NULL,
			skipped INTEGER NOT NULL DEFAULT 0,
			loaded_at INTEGER NOT NULL,
			cached_at INTEGER NOT NULL
		)`,
		// Rows keep their source order through position.
		`CREATE TABLE IF NOT EXISTS directory_rows (
			kind TEXT NOT NULL REFERENCES directory_tables(kind) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			record TEXT NOT NULL,
			cached_at INTEGER NOT NULL,
			PRIMARY KEY (kind, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_directory_rows_cached_at ON directory_rows(cached_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
