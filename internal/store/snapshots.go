package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/erazemk/popis/internal/db"
	"github.com/erazemk/popis/internal/model"
)

// LoadSnapshot returns the stored snapshot of a scope. A scope that was never
// saved yields an empty snapshot.
func LoadSnapshot(ctx context.Context, database *sql.DB, scope string) (model.Snapshot, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT category, record FROM snapshot_items
		 WHERE scope = ? ORDER BY category, position`, scope,
	)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	defer rows.Close()

	snap := model.Snapshot{}
	for rows.Next() {
		var category string
		var record []byte
		if err := rows.Scan(&category, &record); err != nil {
			return nil, fmt.Errorf("scanning snapshot item: %w", err)
		}
		var item model.Item
		if err := json.Unmarshal(record, &item); err != nil {
			return nil, fmt.Errorf("decoding item in %q: %w", category, err)
		}
		cat := model.Category(category)
		snap[cat] = append(snap[cat], item)
	}
	return snap, rows.Err()
}

// SaveSnapshot replaces the stored snapshot of a scope in one transaction.
// If quota is positive and the encoded snapshot exceeds it, nothing is
// written and a *model.CapacityExceededError is returned. A full database
// is reported the same way.
func SaveSnapshot(ctx context.Context, database *sql.DB, scope string, snap model.Snapshot, quota int64) error {
	type row struct {
		category model.Category
		position int
		id       string
		record   []byte
	}

	var rows []row
	var size int64
	for cat, items := range snap {
		for i := range items {
			record, err := json.Marshal(&items[i])
			if err != nil {
				return fmt.Errorf("encoding item %q: %w", items[i].ID, err)
			}
			size += int64(len(record))
			rows = append(rows, row{cat, i, items[i].ID, record})
		}
	}

	if quota > 0 && size > quota {
		return &model.CapacityExceededError{Scope: scope, Size: size, Limit: quota}
	}

	err := db.RunTx(ctx, database, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_items WHERE scope = ?`, scope); err != nil {
			return fmt.Errorf("clearing snapshot: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO snapshot_items (scope, category, position, id, record) VALUES (?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, scope, string(r.category), r.position, r.id, r.record); err != nil {
				return fmt.Errorf("inserting item %q: %w", r.id, err)
			}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO snapshot_scopes (scope, size, saved_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(scope) DO UPDATE SET size = excluded.size, saved_at = excluded.saved_at`,
			scope, size,
		)
		if err != nil {
			return fmt.Errorf("recording scope: %w", err)
		}
		return nil
	})
	if db.IsFull(err) {
		return &model.CapacityExceededError{Scope: scope, Size: size, Err: err}
	}
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// ScopeInfo describes a stored scope.
type ScopeInfo struct {
	Scope string `json:"scope"`
	Size  int64  `json:"size"`
	Items int    `json:"items"`
}

// ListScopes returns every saved scope ordered by name.
func ListScopes(ctx context.Context, database *sql.DB) ([]ScopeInfo, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT s.scope, s.size, COUNT(i.id)
		 FROM snapshot_scopes s LEFT JOIN snapshot_items i ON i.scope = s.scope
		 GROUP BY s.scope ORDER BY s.scope`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing scopes: %w", err)
	}
	defer rows.Close()

	var scopes []ScopeInfo
	for rows.Next() {
		var s ScopeInfo
		if err := rows.Scan(&s.Scope, &s.Size, &s.Items); err != nil {
			return nil, fmt.Errorf("scanning scope: %w", err)
		}
		scopes = append(scopes, s)
	}
	return scopes, rows.Err()
}
