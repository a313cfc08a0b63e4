// Package redisstore keeps snapshots and photos in Redis, for deployments
// where several server processes share one inventory.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

const (
	snapshotKeyPrefix = "popis:snapshot:"
	photoKeyPrefix    = "popis:photo:"
)

// Store is a snapshot and photo store backed by Redis. One scope is one JSON
// document; one photo is one hash.
type Store struct {
	client *redis.Client
	// QuotaBytes bounds the encoded size of one scope's snapshot.
	// Zero disables the check.
	QuotaBytes int64
}

// New returns a Store using an existing client.
func New(client *redis.Client, quota int64) *Store {
	return &Store{client: client, QuotaBytes: quota}
}

// Connect parses url, applies pool settings and verifies connectivity.
func Connect(ctx context.Context, url string, quota int64) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return New(client, quota), nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close shuts down the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// LoadSnapshot returns the stored snapshot of a scope, or an empty one.
func (s *Store) LoadSnapshot(ctx context.Context, scope string) (model.Snapshot, error) {
	data, err := s.client.Get(ctx, snapshotKeyPrefix+scope).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap == nil {
		snap = model.Snapshot{}
	}
	return snap, nil
}

// SaveSnapshot replaces the stored snapshot of a scope with a single SET.
func (s *Store) SaveSnapshot(ctx context.Context, scope string, snap model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	size := int64(len(data))
	if s.QuotaBytes > 0 && size > s.QuotaBytes {
		return &model.CapacityExceededError{Scope: scope, Size: size, Limit: s.QuotaBytes}
	}

	err = s.client.Set(ctx, snapshotKeyPrefix+scope, data, 0).Err()
	if isOOM(err) {
		return &model.CapacityExceededError{Scope: scope, Size: size, Err: err}
	}
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// PutPhoto stores data under its content key and returns its URL.
func (s *Store) PutPhoto(ctx context.Context, data []byte, mime string) (string, error) {
	key := store.PhotoKey(data)
	hkey := photoKeyPrefix + key

	// HSETNX on the data field keeps the first copy of identical content.
	pipe := s.client.TxPipeline()
	pipe.HSetNX(ctx, hkey, "data", data)
	pipe.HSetNX(ctx, hkey, "mime", mime)
	pipe.HSetNX(ctx, hkey, "created_at", time.Now().UTC().Format(time.RFC3339Nano))
	_, err := pipe.Exec(ctx)
	if isOOM(err) {
		return "", &model.CapacityExceededError{Scope: "photos", Size: int64(len(data)), Err: err}
	}
	if err != nil {
		return "", fmt.Errorf("storing photo: %w", err)
	}
	return store.PhotoURL(key), nil
}

// GetPhoto returns the photo stored under key, or nil if there is none.
func (s *Store) GetPhoto(ctx context.Context, key string) (*store.Blob, error) {
	vals, err := s.client.HGetAll(ctx, photoKeyPrefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("getting photo: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	b := &store.Blob{Key: key, MIME: vals["mime"], Data: []byte(vals["data"])}
	if ts, err := time.Parse(time.RFC3339Nano, vals["created_at"]); err == nil {
		b.CreatedAt = ts
	}
	return b, nil
}

// isOOM reports whether Redis refused a write because maxmemory is reached.
func isOOM(err error) bool {
	var rerr redis.Error
	return errors.As(err, &rerr) && strings.HasPrefix(rerr.Error(), "OOM")
}
