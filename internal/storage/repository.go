package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garyellow/campus-assist-go/internal/directory"
)

// SaveTable replaces every persisted row of t.Kind in one transaction.
func (db *DB) SaveTable(ctx context.Context, t *directory.Table) error {
	if t == nil {
		return errors.New("nil table")
	}

	columns, err := json.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("failed to encode columns: %w", err)
	}

	loadedAt := t.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = db.now()
	}
	cachedAt := db.now().Unix()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// foreign_keys is per connection, so rows are cleared explicitly.
	if _, err := tx.ExecContext(ctx, `DELETE FROM directory_rows WHERE kind = ?`, string(t.Kind)); err != nil {
		return fmt.Errorf("failed to clear rows of %s: %w", t.Kind, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM directory_tables WHERE kind = ?`, string(t.Kind)); err != nil {
		return fmt.Errorf("failed to clear table %s: %w", t.Kind, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO directory_tables (kind, columns, skipped, loaded_at, cached_at) VALUES (?, ?, ?, ?, ?)`,
		string(t.Kind), string(columns), t.Skipped, loadedAt.Unix(), cachedAt,
	); err != nil {
		return fmt.Errorf("failed to save table %s: %w", t.Kind, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO directory_rows (kind, position, record, cached_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, rec := range t.Rows {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, string(t.Kind), i, string(data), cachedAt); err != nil {
			return fmt.Errorf("failed to save row %d of %s: %w", i, t.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table %s: %w", t.Kind, err)
	}
	return nil
}

// LoadTable returns the persisted copy of kind if it was cached within
// maxAge (the DB TTL when maxAge <= 0). It returns (nil, nil) when no such
// copy exists.
func (db *DB) LoadTable(ctx context.Context, kind directory.Kind, maxAge time.Duration) (*directory.Table, error) {
	if maxAge <= 0 {
		maxAge = db.cacheTTL
	}

	var (
		columns  string
		skipped  int
		loadedAt int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT columns, skipped, loaded_at FROM directory_tables WHERE kind = ? AND cached_at > ?`,
		string(kind), db.ttlCutoff(maxAge),
	).Scan(&columns, &skipped, &loadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", kind, err)
	}

	t := &directory.Table{
		Kind:     kind,
		Skipped:  skipped,
		LoadedAt: time.Unix(loadedAt, 0),
	}
	if err := json.Unmarshal([]byte(columns), &t.Columns); err != nil {
		return nil, fmt.Errorf("failed to decode columns of %s: %w", kind, err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT record FROM directory_rows WHERE kind = ? ORDER BY position`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query rows of %s: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", kind, err)
		}
		var rec directory.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode row of %s: %w", kind, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows of %s: %w", kind, err)
	}

	return t, nil
}

// LoadAll returns every fresh persisted table, keyed by kind.
func (db *DB) LoadAll(ctx context.Context) ([]*directory.Table, error) {
	var tables []*directory.Table
	for _, kind := range directory.Kinds {
		t, err := db.LoadTable(ctx, kind, 0)
		if err != nil {
			return nil, err
		}
		if t != nil {
			tables = append(tables, t)
		}
	}
	return tables, nil
}

// DeleteExpired removes tables cached before the TTL cutoff and returns the
// number of rows deleted.
func (db *DB) DeleteExpired(ctx context.Context) (int64, error) {
	cutoff := db.ttlCutoff(db.cacheTTL)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM directory_rows WHERE cached_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired rows: %w", err)
	}
	n, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `DELETE FROM directory_tables WHERE cached_at <= ?`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to delete expired tables: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cleanup: %w", err)
	}
	return n, nil
}

// CountRows returns the number of persisted rows of kind, fresh or not.
func (db *DB) CountRows(ctx context.Context, kind directory.Kind) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM directory_rows WHERE kind = ?`, string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", kind, err)
	}
	return n, nil
}
