package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/erazemk/popis/internal/config"
	"github.com/erazemk/popis/internal/db"
	"github.com/erazemk/popis/internal/inventory"
	"github.com/erazemk/popis/internal/store"
	"github.com/erazemk/popis/internal/store/redisstore"
)

// backend is an opened snapshot store with the service on top of it.
type backend struct {
	svc *inventory.Service

	// db is set for the sqlite backend only.
	db    *sql.DB
	close func()
}

// openBackend opens the configured store and builds the service.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{}

	var (
		snapshots inventory.SnapshotStore
		photos    inventory.PhotoStore
	)

	switch cfg.Backend {
	case config.BackendRedis:
		rs, err := redisstore.Connect(ctx, cfg.RedisURL, cfg.QuotaBytes)
		if err != nil {
			return nil, err
		}
		b.close = func() { rs.Close() }
		snapshots = rs
		if cfg.PhotoMode == config.PhotosBlob {
			photos = rs
		}
		slog.Info("redis ready")

	default:
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(database); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		b.db = database
		b.close = func() { database.Close() }
		st := store.NewSQLite(database, cfg.QuotaBytes)
		snapshots = st
		if cfg.PhotoMode == config.PhotosBlob {
			photos = st
		}
		slog.Info("database ready", "path", cfg.DBPath)
	}

	b.svc = inventory.New(inventory.Config{
		Store:   snapshots,
		Photos:  photos,
		Catalog: cfg.Catalog(),
		Imaging: cfg.Imaging(),

		RemoteHosts: cfg.RemotePhotoHosts,
	})
	return b, nil
}

// jwtSecret returns the configured secret, or the one stored in the sqlite
// database (generated on first use).
func (b *backend) jwtSecret(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}
	if b.db == nil {
		return "", errors.New("POPIS_JWT_SECRET is required with the redis backend")
	}
	return store.GetSecret(ctx, b.db, store.SettingJWTSecret)
}
