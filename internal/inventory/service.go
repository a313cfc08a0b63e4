// Package inventory implements the inventory operations on top of a
// snapshot store: adding photographed items, editing them, toggling their
// done flag, and exchanging whole snapshots through import and export.
//
// Every mutation loads the scope's snapshot, changes it and saves it back
// while holding a per-scope lock, so one process never interleaves two
// writes to the same scope. Writers in other processes are not coordinated.
package inventory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/erazemk/popis/internal/imaging"
	"github.com/erazemk/popis/internal/merge"
	"github.com/erazemk/popis/internal/metrics"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

// SnapshotStore persists one snapshot per scope.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, scope string) (model.Snapshot, error)
	SaveSnapshot(ctx context.Context, scope string, snap model.Snapshot) error
}

// PhotoStore keeps encoded photos and hands out stable URLs for them.
type PhotoStore interface {
	PutPhoto(ctx context.Context, data []byte, mime string) (string, error)
	GetPhoto(ctx context.Context, key string) (*store.Blob, error)
}

// Config configures a Service. Store and Catalog are required.
type Config struct {
	Store   SnapshotStore
	Catalog *model.Catalog

	// Photos keeps photo bytes out of the snapshot. When nil, photos are
	// embedded in their items as data: URLs.
	Photos PhotoStore

	Imaging imaging.Options

	// HTTPClient fetches remote photo URLs during archive export.
	HTTPClient *http.Client

	// RemoteHosts lists the hosts remote photo URLs may be fetched from.
	// Empty disables remote fetching.
	RemoteHosts []string

	Now   func() time.Time
	NewID func() string
}

// Service implements the inventory operations.
type Service struct {
	store   SnapshotStore
	photos  PhotoStore
	catalog *model.Catalog
	merger  *merge.Engine
	opts    imaging.Options
	client  *http.Client
	now     func() time.Time
	newID   func() string

	// remoteHosts holds lower-cased host names.
	remoteHosts map[string]bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns a Service. Zero optional fields get defaults.
func New(cfg Config) *Service {
	s := &Service{
		store:   cfg.Store,
		photos:  cfg.Photos,
		catalog: cfg.Catalog,
		merger:  merge.New(cfg.Catalog),
		opts:    cfg.Imaging,
		now:     cfg.Now,
		newID:   cfg.NewID,
		locks:   make(map[string]*sync.Mutex),

		remoteHosts: make(map[string]bool, len(cfg.RemoteHosts)),
	}
	for _, h := range cfg.RemoteHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			s.remoteHosts[h] = true
		}
	}
	if s.opts == (imaging.Options{}) {
		s.opts = imaging.DefaultOptions()
	}
	client := http.Client{Timeout: 30 * time.Second}
	if cfg.HTTPClient != nil {
		client = *cfg.HTTPClient
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return s.checkRemote(req.URL)
	}
	s.client = &client
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = model.NewItemID
	}
	return s
}

// Catalog returns the categories the service accepts.
func (s *Service) Catalog() *model.Catalog {
	return s.catalog
}

// lockScope serializes load-modify-save cycles on one scope.
func (s *Service) lockScope(scope string) func() {
	s.mu.Lock()
	l, ok := s.locks[scope]
	if !ok {
		l = &sync.Mutex{}
		s.locks[scope] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// update runs fn on the current snapshot of scope and saves the result.
// Nothing is saved if fn fails.
func (s *Service) update(ctx context.Context, scope string, fn func(model.Snapshot) error) error {
	unlock := s.lockScope(scope)
	defer unlock()

	snap, err := s.store.LoadSnapshot(ctx, scope)
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		return err
	}
	return s.save(ctx, scope, snap)
}

func (s *Service) save(ctx context.Context, scope string, snap model.Snapshot) error {
	err := s.store.SaveSnapshot(ctx, scope, snap)

	var capErr *model.CapacityExceededError
	switch {
	case err == nil:
		metrics.SnapshotSaves.WithLabelValues("ok").Inc()
	case errors.As(err, &capErr):
		metrics.SnapshotSaves.WithLabelValues("capacity").Inc()
		slog.Warn("snapshot does not fit storage", "scope", scope, "error", err)
	default:
		metrics.SnapshotSaves.WithLabelValues("error").Inc()
	}
	return err
}

// lookup resolves a category name against the catalog.
func (s *Service) lookup(category string) (model.CategoryInfo, error) {
	return s.catalog.Lookup(category)
}
