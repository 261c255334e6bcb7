package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// LockInfo is the JSON body of a lock object.
type LockInfo struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Lock is a lease held as an object. Creating the object takes the lock;
// an expired lease may be taken over with an ETag-conditional write.
type Lock struct {
	client *Client
	key    string
	ttl    time.Duration
	owner  string
	etag   string
	now    func() time.Time
}

// NewLock returns a lock on key with a fresh owner id.
func NewLock(client *Client, key string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    key,
		ttl:    ttl,
		owner:  uuid.NewString(),
		now:    time.Now,
	}
}

// Owner returns this holder's id.
func (l *Lock) Owner() string {
	return l.owner
}

// TTL returns the lease length.
func (l *Lock) TTL() time.Duration {
	return l.ttl
}

// Acquire takes the lock. It returns false without error when another
// holder's lease is still valid.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	data, err := l.lease()
	if err != nil {
		return false, err
	}

	created, etag, err := l.client.PutIfNotExists(ctx, l.key, bytes.NewReader(data), "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if created {
		l.etag = etag
		return true, nil
	}

	info, current, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		// Released between our write and read; the next attempt will win.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if info != nil && l.now().Before(info.ExpiresAt) {
		return false, nil
	}

	taken, etag, err := l.client.PutIfMatch(ctx, l.key, bytes.NewReader(data), current, "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: take over: %w", err)
	}
	if taken {
		l.etag = etag
	}
	return taken, nil
}

// Renew extends the lease. It returns false when the lock was lost.
func (l *Lock) Renew(ctx context.Context) (bool, error) {
	if l.etag == "" {
		return false, nil
	}
	data, err := l.lease()
	if err != nil {
		return false, err
	}

	updated, etag, err := l.client.PutIfMatch(ctx, l.key, bytes.NewReader(data), l.etag, "application/json")
	if err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	if !updated {
		l.etag = ""
		return false, nil
	}
	l.etag = etag
	return true, nil
}

// Release deletes the lock object if this holder still owns it.
func (l *Lock) Release(ctx context.Context) error {
	defer func() { l.etag = "" }()

	info, _, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if info != nil && info.Owner != l.owner {
		return nil
	}
	return l.client.Delete(ctx, l.key)
}

func (l *Lock) lease() ([]byte, error) {
	data, err := json.Marshal(LockInfo{Owner: l.owner, ExpiresAt: l.now().Add(l.ttl)})
	if err != nil {
		return nil, fmt.Errorf("marshal lock: %w", err)
	}
	return data, nil
}

// read returns the current lease and its ETag. A body that does not
// decode yields a nil LockInfo, which callers treat as expired.
func (l *Lock) read(ctx context.Context) (*LockInfo, string, error) {
	body, etag, err := l.client.Download(ctx, l.key)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read lock: %w", err)
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, etag, nil
	}
	return &info, etag, nil
}
