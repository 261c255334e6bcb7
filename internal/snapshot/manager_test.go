package snapshot

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/campus-assist-go/internal/directory"
	"github.com/garyellow/campus-assist-go/internal/objectstore"
	"github.com/garyellow/campus-assist-go/internal/objectstore/objectstoretest"
	"github.com/garyellow/campus-assist-go/internal/storage"
)

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleLabs() *directory.Table {
	return &directory.Table{
		Kind:     directory.KindLabs,
		Columns:  []string{"Lab Name", "Department", "Room"},
		Rows:     []directory.Record{{"Lab Name": "Robotics", "Department": "Mechanical", "Room": "C-12"}},
		Skipped:  2,
		LoadedAt: time.Now().Add(-time.Minute).Truncate(time.Second),
	}
}

func testConfig() Config {
	return Config{Key: "snapshots/directory.json.zst", LockTTL: time.Minute}
}

func TestUploadAndRestore(t *testing.T) {
	ctx := context.Background()
	client := objectstore.NewWithAPI(objectstoretest.NewMemoryAPI(), "campus-test")

	src := newTestDB(t)
	require.NoError(t, src.SaveTable(ctx, sampleLabs()))

	etag, err := New(client, src, testConfig()).Upload(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, etag)

	dst := newTestDB(t)
	n, err := New(client, dst, testConfig()).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := dst.LoadTable(ctx, directory.KindLabs, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"Lab Name", "Department", "Room"}, got.Columns)
	assert.Equal(t, 2, got.Skipped)
	assert.Equal(t, "Robotics", got.Rows[0]["Lab Name"])
	assert.True(t, got.LoadedAt.Equal(sampleLabs().LoadedAt))

	// The lock is released after upload.
	_, _, err = client.Download(ctx, "snapshots/directory.json.zst.lock")
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
}

func TestUpload_Locked(t *testing.T) {
	ctx := context.Background()
	client := objectstore.NewWithAPI(objectstoretest.NewMemoryAPI(), "campus-test")
	db := newTestDB(t)
	require.NoError(t, db.SaveTable(ctx, sampleLabs()))

	other := objectstore.NewLock(client, "snapshots/directory.json.zst.lock", time.Minute)
	ok, err := other.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = New(client, db, testConfig()).Upload(ctx)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestUpload_EmptyStore(t *testing.T) {
	client := objectstore.NewWithAPI(objectstoretest.NewMemoryAPI(), "campus-test")
	_, err := New(client, newTestDB(t), testConfig()).Upload(context.Background())
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRestore_NotFound(t *testing.T) {
	client := objectstore.NewWithAPI(objectstoretest.NewMemoryAPI(), "campus-test")
	_, err := New(client, newTestDB(t), testConfig()).Restore(context.Background())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRestore_RejectsUnknownVersion(t *testing.T) {
	ctx := context.Background()
	client := objectstore.NewWithAPI(objectstoretest.NewMemoryAPI(), "campus-test")

	compressed, err := objectstore.Compress([]byte(`{"version": 99, "tables": []}`))
	require.NoError(t, err)
	_, err = client.Upload(ctx, testConfig().Key, bytes.NewReader(compressed), "")
	require.NoError(t, err)

	_, err = New(client, newTestDB(t), testConfig()).Restore(ctx)
	assert.Error(t, err)
}

func TestRestoreIfEmpty(t *testing.T) {
	ctx := context.Background()
	client := objectstore.NewWithAPI(objectstoretest.NewMemoryAPI(), "campus-test")

	// Nothing uploaded yet: no error, nothing restored.
	db := newTestDB(t)
	n, err := New(client, db, testConfig()).RestoreIfEmpty(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	src := newTestDB(t)
	require.NoError(t, src.SaveTable(ctx, sampleLabs()))
	_, err = New(client, src, testConfig()).Upload(ctx)
	require.NoError(t, err)

	n, err = New(client, db, testConfig()).RestoreIfEmpty(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A store that already has data is left alone.
	n, err = New(client, db, testConfig()).RestoreIfEmpty(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// hookStore runs onLoad before reading tables from the embedded store.
type hookStore struct {
	*storage.DB
	onLoad func(ctx context.Context) error
}

func (s *hookStore) LoadAll(ctx context.Context) ([]*directory.Table, error) {
	if err := s.onLoad(ctx); err != nil {
		return nil, err
	}
	return s.DB.LoadAll(ctx)
}

func TestUpload_RenewsLeaseWhileRunning(t *testing.T) {
	ctx := context.Background()
	client := objectstore.NewWithAPI(objectstoretest.NewMemoryAPI(), "campus-test")
	cfg := testConfig()
	cfg.Renew = 5 * time.Millisecond
	lockKey := cfg.Key + ".lock"

	db := newTestDB(t)
	require.NoError(t, db.SaveTable(ctx, sampleLabs()))

	var before, after string
	store := &hookStore{DB: db, onLoad: func(ctx context.Context) error {
		var err error
		if before, err = client.Head(ctx, lockKey); err != nil {
			return err
		}
		time.Sleep(50 * time.Millisecond)
		after, err = client.Head(ctx, lockKey)
		return err
	}}

	etag, err := New(client, store, cfg).Upload(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, etag)
	assert.NotEqual(t, before, after, "lease should be rewritten during the upload")

	_, _, err = client.Download(ctx, lockKey)
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
}

func TestUpload_AbortsWhenLeaseIsLost(t *testing.T) {
	ctx := context.Background()
	client := objectstore.NewWithAPI(objectstoretest.NewMemoryAPI(), "campus-test")
	cfg := testConfig()
	cfg.Renew = 5 * time.Millisecond
	lockKey := cfg.Key + ".lock"

	db := newTestDB(t)
	require.NoError(t, db.SaveTable(ctx, sampleLabs()))

	store := &hookStore{DB: db, onLoad: func(ctx context.Context) error {
		// Another replica overwrites the lease.
		if _, err := client.Upload(context.Background(), lockKey,
			strings.NewReader(`{"owner":"other","expires_at":"2999-01-01T00:00:00Z"}`), "application/json"); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("upload was not cancelled")
		}
	}}

	_, err := New(client, store, cfg).Upload(ctx)
	assert.ErrorIs(t, err, ErrLockLost)

	// No snapshot was written and the other holder keeps the lock.
	_, _, err = client.Download(ctx, cfg.Key)
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
	_, err = client.Head(ctx, lockKey)
	assert.NoError(t, err)
}
