// Package snapshot backs up the persisted directory tables to object
// storage and restores them into a fresh process.
//
// A snapshot is one zstd-compressed JSON document holding every table.
// Uploads are serialized across replicas by a lease lock so that only one
// writer replaces the object at a time.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garyellow/campus-assist-go/internal/directory"
	"github.com/garyellow/campus-assist-go/internal/objectstore"
)

// FormatVersion is written into every snapshot.
const FormatVersion = 1

// DefaultMaxSize caps the decompressed size of a snapshot.
const DefaultMaxSize = 64 << 20

var (
	// ErrNotFound indicates no snapshot exists yet.
	ErrNotFound = errors.New("snapshot: not found")

	// ErrLocked indicates another replica is uploading.
	ErrLocked = errors.New("snapshot: lock held by another replica")

	// ErrEmpty indicates the store has no table to upload.
	ErrEmpty = errors.New("snapshot: nothing to upload")

	// ErrLockLost indicates the upload lock was taken over mid-upload.
	ErrLockLost = errors.New("snapshot: upload lock lost")
)

// Store is the local table store. *storage.DB satisfies it.
type Store interface {
	LoadAll(ctx context.Context) ([]*directory.Table, error)
	SaveTable(ctx context.Context, t *directory.Table) error
}

// Config holds snapshot settings.
type Config struct {
	Key     string        // object key of the snapshot, e.g. "snapshots/directory.json.zst"
	LockKey string        // object key of the upload lock
	LockTTL time.Duration // lease length of the upload lock
	Renew   time.Duration // lease renewal interval, LockTTL/2 when <= 0
	MaxSize int64         // DefaultMaxSize when <= 0
}

// Document is the decompressed snapshot body.
type Document struct {
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	Tables    []TableDoc `json:"tables"`
}

// TableDoc is one table inside a Document.
type TableDoc struct {
	Kind     directory.Kind     `json:"kind"`
	Columns  []string           `json:"columns"`
	Rows     []directory.Record `json:"rows"`
	Skipped  int                `json:"skipped"`
	LoadedAt time.Time          `json:"loaded_at"`
}

// Manager uploads and restores snapshots.
type Manager struct {
	client *objectstore.Client
	store  Store
	cfg    Config
	now    func() time.Time
}

// New creates a manager.
func New(client *objectstore.Client, store Store, cfg Config) *Manager {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.Renew <= 0 {
		cfg.Renew = cfg.LockTTL / 2
	}
	if cfg.LockKey == "" {
		cfg.LockKey = cfg.Key + ".lock"
	}
	return &Manager{client: client, store: store, cfg: cfg, now: time.Now}
}

// Upload writes every persisted table as a new snapshot and returns its
// ETag. It returns ErrLocked when another replica holds the upload lock
// and ErrLockLost when the lease is taken over before the write finishes.
func (m *Manager) Upload(ctx context.Context) (string, error) {
	lock := objectstore.NewLock(m.client, m.cfg.LockKey, m.cfg.LockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	if !acquired {
		return "", ErrLocked
	}
	defer func() {
		// Release even when ctx is already done.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			slog.WarnContext(ctx, "Failed to release snapshot lock", "error", err)
		}
	}()

	ctx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.keepLease(ctx, lock, cancel)
	}()
	defer func() {
		cancel(nil)
		<-done
	}()

	etag, err := m.upload(ctx)
	if err != nil && errors.Is(context.Cause(ctx), ErrLockLost) {
		return "", ErrLockLost
	}
	return etag, err
}

// keepLease renews lock every Renew interval until ctx is done. A lost
// lease cancels ctx with ErrLockLost.
func (m *Manager) keepLease(ctx context.Context, lock *objectstore.Lock, cancel context.CancelCauseFunc) {
	ticker := time.NewTicker(m.cfg.Renew)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		ok, err := lock.Renew(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.WarnContext(ctx, "Failed to renew snapshot lock", "error", err)
			}
			continue
		}
		if !ok {
			cancel(ErrLockLost)
			return
		}
	}
}

func (m *Manager) upload(ctx context.Context) (string, error) {
	tables, err := m.store.LoadAll(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot: read tables: %w", err)
	}
	if len(tables) == 0 {
		return "", ErrEmpty
	}

	doc := Document{Version: FormatVersion, CreatedAt: m.now().UTC()}
	rows := 0
	for _, t := range tables {
		doc.Tables = append(doc.Tables, TableDoc{
			Kind:     t.Kind,
			Columns:  t.Columns,
			Rows:     t.Rows,
			Skipped:  t.Skipped,
			LoadedAt: t.LoadedAt.UTC(),
		})
		rows += len(t.Rows)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("snapshot: encode: %w", err)
	}
	compressed, err := objectstore.Compress(data)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	etag, err := m.client.Upload(ctx, m.cfg.Key, bytes.NewReader(compressed), "application/zstd")
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot uploaded",
		"key", m.cfg.Key,
		"tables", len(doc.Tables),
		"rows", rows,
		"bytes", len(compressed),
		"etag", etag)
	return etag, nil
}

// Restore downloads the snapshot and saves its tables into the store.
// It returns the number of tables restored, or ErrNotFound.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	body, etag, err := m.client.Download(ctx, m.cfg.Key)
	if errors.Is(err, objectstore.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("snapshot: %w", err)
	}
	defer func() { _ = body.Close() }()

	data, err := objectstore.Decompress(body, m.cfg.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("snapshot: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("snapshot: decode: %w", err)
	}
	if doc.Version != FormatVersion {
		return 0, fmt.Errorf("snapshot: unsupported version %d", doc.Version)
	}

	restored := 0
	for _, td := range doc.Tables {
		if _, err := directory.ParseKind(string(td.Kind)); err != nil {
			slog.WarnContext(ctx, "Skipping unknown table in snapshot", "table", td.Kind)
			continue
		}
		t := &directory.Table{
			Kind:     td.Kind,
			Columns:  td.Columns,
			Rows:     td.Rows,
			Skipped:  td.Skipped,
			LoadedAt: td.LoadedAt,
		}
		if err := m.store.SaveTable(ctx, t); err != nil {
			return restored, fmt.Errorf("snapshot: save %s: %w", td.Kind, err)
		}
		restored++
	}

	slog.InfoContext(ctx, "Snapshot restored",
		"key", m.cfg.Key,
		"etag", etag,
		"created_at", doc.CreatedAt,
		"tables", restored)
	return restored, nil
}

// RestoreIfEmpty restores only when the store holds no fresh table.
// A missing snapshot is not an error.
func (m *Manager) RestoreIfEmpty(ctx context.Context) (int, error) {
	tables, err := m.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("snapshot: read tables: %w", err)
	}
	if len(tables) > 0 {
		return 0, nil
	}

	n, err := m.Restore(ctx)
	if errors.Is(err, ErrNotFound) {
		slog.InfoContext(ctx, "No snapshot to restore", "key", m.cfg.Key)
		return 0, nil
	}
	return n, err
}
