package storage

import (
	"context"
	"testing"
	"time"

	"github.com/garyellow/campus-assist-go/internal/directory"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveAndLoadTable(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	want := sampleFaculty()

	if err := db.SaveTable(ctx, want); err != nil {
		t.Fatalf("SaveTable failed: %v", err)
	}

	got, err := db.LoadTable(ctx, directory.KindFaculty, time.Hour)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected table, got nil")
	}

	if got.Kind != directory.KindFaculty {
		t.Errorf("Kind = %q", got.Kind)
	}
	if len(got.Columns) != 5 || got.Columns[4] != "Room" {
		t.Errorf("Columns = %v", got.Columns)
	}
	if got.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", got.Skipped)
	}
	if !got.LoadedAt.Equal(want.LoadedAt) {
		t.Errorf("LoadedAt = %v, want %v", got.LoadedAt, want.LoadedAt)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("Rows = %d, want 2", len(got.Rows))
	}
	// Source order is kept.
	if got.Rows[0]["Name"] != "Jane Doe" || got.Rows[1]["Name"] != "Ravi Kumar" {
		t.Errorf("row order not preserved: %v", got.Rows)
	}
}

func TestSaveTable_ReplacesPreviousCopy(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.SaveTable(ctx, sampleFaculty()); err != nil {
		t.Fatalf("SaveTable failed: %v", err)
	}

	smaller := sampleFaculty()
	smaller.Rows = smaller.Rows[:1]
	if err := db.SaveTable(ctx, smaller); err != nil {
		t.Fatalf("second SaveTable failed: %v", err)
	}

	n, err := db.CountRows(ctx, directory.KindFaculty)
	if err != nil {
		t.Fatalf("CountRows failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CountRows = %d, want 1", n)
	}
}

func TestLoadTable_Missing(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.LoadTable(context.Background(), directory.KindLabs, time.Hour)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing table, got %v", got)
	}
}

func TestLoadTable_RespectsMaxAge(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	saved := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return saved }
	if err := db.SaveTable(ctx, sampleFaculty()); err != nil {
		t.Fatalf("SaveTable failed: %v", err)
	}

	db.now = func() time.Time { return saved.Add(10 * time.Minute) }

	if got, _ := db.LoadTable(ctx, directory.KindFaculty, 5*time.Minute); got != nil {
		t.Error("copy older than maxAge should not be returned")
	}
	if got, _ := db.LoadTable(ctx, directory.KindFaculty, 15*time.Minute); got == nil {
		t.Error("copy younger than maxAge should be returned")
	}
}

func TestDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	saved := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return saved }
	if err := db.SaveTable(ctx, sampleFaculty()); err != nil {
		t.Fatalf("SaveTable failed: %v", err)
	}

	db.now = func() time.Time { return saved.Add(45 * time.Minute) }
	labs := &directory.Table{
		Kind:    directory.KindLabs,
		Columns: []string{"Lab Name", "Room"},
		Rows:    []directory.Record{{"Lab Name": "Robotics", "Room": "C-12"}},
	}
	if err := db.SaveTable(ctx, labs); err != nil {
		t.Fatalf("SaveTable failed: %v", err)
	}

	// Faculty is now 90 minutes old, labs 45 minutes.
	db.now = func() time.Time { return saved.Add(90 * time.Minute) }
	deleted, err := db.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	if n, _ := db.CountRows(ctx, directory.KindFaculty); n != 0 {
		t.Errorf("faculty rows = %d, want 0", n)
	}
	if n, _ := db.CountRows(ctx, directory.KindLabs); n != 1 {
		t.Errorf("labs rows = %d, want 1", n)
	}
}

func TestLoadAll(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.SaveTable(ctx, sampleFaculty()); err != nil {
		t.Fatalf("SaveTable failed: %v", err)
	}

	tables, err := db.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(tables) != 1 || tables[0].Kind != directory.KindFaculty {
		t.Errorf("LoadAll = %v, want only faculty", tables)
	}
}

func TestSaveTable_Nil(t *testing.T) {
	db := setupTestDB(t)
	if err := db.SaveTable(context.Background(), nil); err == nil {
		t.Error("expected error for nil table")
	}
}
