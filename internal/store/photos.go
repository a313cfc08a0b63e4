package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/erazemk/popis/internal/db"
	"github.com/erazemk/popis/internal/model"
)

// PhotoURLPrefix prefixes the URL of every photo kept in the blob store.
const PhotoURLPrefix = "/api/photos/"

// Blob is an encoded photo held in the blob store.
type Blob struct {
	Key       string
	MIME      string
	Data      []byte
	CreatedAt time.Time
}

// PhotoKey returns the content key of data: the hex BLAKE2b-256 digest.
func PhotoKey(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PhotoURL returns the URL under which the API serves a stored photo.
func PhotoURL(key string) string {
	return PhotoURLPrefix + key
}

// KeyFromURL extracts the content key from a photo URL returned by PhotoURL.
func KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, PhotoURLPrefix)
	if !ok || !ValidKey(key) {
		return "", false
	}
	return key, true
}

// ValidKey reports whether key has the shape of a content key.
func ValidKey(key string) bool {
	if len(key) != 2*blake2b.Size256 {
		return false
	}
	_, err := hex.DecodeString(key)
	return err == nil
}

// PutPhoto stores data under its content key and returns the key. Storing
// the same bytes twice keeps one copy.
func PutPhoto(ctx context.Context, database *sql.DB, data []byte, mime string) (string, error) {
	key := PhotoKey(data)
	_, err := database.ExecContext(ctx,
		`INSERT OR IGNORE INTO photos (key, mime, data, size) VALUES (?, ?, ?, ?)`,
		key, mime, data, len(data),
	)
	if db.IsFull(err) {
		return "", &model.CapacityExceededError{Scope: "photos", Size: int64(len(data)), Err: err}
	}
	if err != nil {
		return "", fmt.Errorf("storing photo: %w", err)
	}
	return key, nil
}

// GetPhoto returns the photo stored under key, or nil if there is none.
func GetPhoto(ctx context.Context, database *sql.DB, key string) (*Blob, error) {
	b := &Blob{Key: key}
	err := database.QueryRowContext(ctx,
		`SELECT mime, data, created_at FROM photos WHERE key = ?`, key,
	).Scan(&b.MIME, &b.Data, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting photo: %w", err)
	}
	return b, nil
}
