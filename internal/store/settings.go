package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// Setting keys.
const (
	SettingJWTSecret = "jwt_secret"
)

// GetSecret returns the random secret stored under name, generating and
// storing one on first use. Uses INSERT OR IGNORE + re-SELECT so concurrent
// first calls agree on one value.
func GetSecret(ctx context.Context, db *sql.DB, name string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating %s: %w", name, err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		name, hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", name, err)
	}

	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, name,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", name, err)
	}

	return secret, nil
}
