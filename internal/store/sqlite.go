package store

import (
	"context"
	"database/sql"

	"github.com/erazemk/popis/internal/model"
)

// SQLite keeps snapshots and photos in the local database.
type SQLite struct {
	DB *sql.DB
	// QuotaBytes bounds the encoded size of one scope's snapshot.
	// Zero disables the check.
	QuotaBytes int64
}

// NewSQLite returns a store over database.
func NewSQLite(database *sql.DB, quota int64) *SQLite {
	return &SQLite{DB: database, QuotaBytes: quota}
}

func (s *SQLite) LoadSnapshot(ctx context.Context, scope string) (model.Snapshot, error) {
	return LoadSnapshot(ctx, s.DB, scope)
}

func (s *SQLite) SaveSnapshot(ctx context.Context, scope string, snap model.Snapshot) error {
	return SaveSnapshot(ctx, s.DB, scope, snap, s.QuotaBytes)
}

// PutPhoto stores data and returns its URL.
func (s *SQLite) PutPhoto(ctx context.Context, data []byte, mime string) (string, error) {
	key, err := PutPhoto(ctx, s.DB, data, mime)
	if err != nil {
		return "", err
	}
	return PhotoURL(key), nil
}

func (s *SQLite) GetPhoto(ctx context.Context, key string) (*Blob, error) {
	return GetPhoto(ctx, s.DB, key)
}
