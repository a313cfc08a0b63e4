// Package config loads process configuration from POPIS_* environment
// variables, optionally read from a .env file first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/erazemk/popis/internal/auth"
	"github.com/erazemk/popis/internal/imaging"
	"github.com/erazemk/popis/internal/model"
)

// Prefix is the environment variable prefix.
const Prefix = "POPIS"

// Backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Photo modes.
const (
	PhotosInline = "inline"
	PhotosBlob   = "blob"
)

// Config holds the configuration of every popis command.
type Config struct {
	DBPath  string `envconfig:"DB" default:"popis.db"`
	Addr    string `envconfig:"ADDR" default:":8080"`
	LogPath string `envconfig:"LOG" default:""`

	Backend  string `envconfig:"BACKEND" default:"sqlite"`
	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	// QuotaBytes bounds one scope's snapshot. Zero disables the check.
	QuotaBytes int64  `envconfig:"QUOTA_BYTES" default:"0"`
	PhotoMode  string `envconfig:"PHOTO_MODE" default:"blob"`

	MaxDimension int     `envconfig:"MAX_DIMENSION" default:"1024"`
	Quality      float64 `envconfig:"QUALITY" default:"0.8"`
	MaxPixels    int64   `envconfig:"MAX_PIXELS" default:"50000000"`

	// RemotePhotoHosts lists the hosts whose http(s) photo URLs archive
	// export may fetch. Empty disables remote fetching.
	RemotePhotoHosts []string `envconfig:"REMOTE_PHOTO_HOSTS" default:""`

	// PartsCategories lists the categories whose photos carry a part label.
	PartsCategories []string `envconfig:"PARTS_CATEGORIES" default:"IT EQUIPMENT"`

	JWTSecret string `envconfig:"JWT_SECRET" default:""`
	Scope     string `envconfig:"SCOPE" default:"default"`
}

// Load reads a .env file if present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ignoring .env file", "error", err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendSQLite, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("backend must be %q or %q, got %q", BackendSQLite, BackendRedis, c.Backend))
	}
	switch c.PhotoMode {
	case PhotosInline, PhotosBlob:
	default:
		errs = append(errs, fmt.Errorf("photo mode must be %q or %q, got %q", PhotosInline, PhotosBlob, c.PhotoMode))
	}
	if !auth.ValidScope(c.Scope) {
		errs = append(errs, fmt.Errorf("%w: %q", auth.ErrInvalidScope, c.Scope))
	}
	if c.QuotaBytes < 0 {
		errs = append(errs, fmt.Errorf("quota must not be negative, got %d", c.QuotaBytes))
	}
	if err := c.Imaging().Validate(); err != nil {
		errs = append(errs, err)
	}

	known := model.DefaultCatalog()
	for _, name := range c.PartsCategories {
		if _, err := known.Lookup(strings.TrimSpace(name)); err != nil {
			errs = append(errs, fmt.Errorf("parts categories: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Imaging returns the photo ingestion options.
func (c *Config) Imaging() imaging.Options {
	return imaging.Options{MaxDimension: c.MaxDimension, Quality: c.Quality, MaxPixels: c.MaxPixels}
}

// Catalog builds the category catalog with the configured parts categories.
func (c *Config) Catalog() *model.Catalog {
	parts := make([]model.Category, 0, len(c.PartsCategories))
	for _, name := range c.PartsCategories {
		parts = append(parts, model.Category(strings.TrimSpace(name)))
	}
	if len(parts) == 0 {
		return model.NewCatalog(model.DefaultCategories(model.CategoryITEquipment))
	}
	return model.NewCatalog(model.DefaultCategories(parts...))
}
