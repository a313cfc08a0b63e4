package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// A snapshot is stored one row per item so a single category can be read
// without decoding the whole scope. record holds the item as JSON.
const schema = `
CREATE TABLE IF NOT EXISTS snapshot_items (
    scope    TEXT NOT NULL,
    category TEXT NOT NULL,
    position INTEGER NOT NULL,
    id       TEXT NOT NULL,
    record   TEXT NOT NULL,
    PRIMARY KEY (scope, category, position)
);

CREATE TABLE IF NOT EXISTS snapshot_scopes (
    scope    TEXT PRIMARY KEY,
    size     INTEGER NOT NULL,
    saved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS photos (
    key        TEXT PRIMARY KEY,
    mime       TEXT NOT NULL,
    data       BLOB NOT NULL,
    size       INTEGER NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: item ids are unique within a scope regardless of category.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshot_items_id
	     ON snapshot_items(scope, id)`,
}

// Migrate runs the database schema migrations.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
