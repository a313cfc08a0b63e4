package inventory

import (
	"context"
	"io"
	"log/slog"

	"github.com/erazemk/popis/internal/archive"
	"github.com/erazemk/popis/internal/merge"
	"github.com/erazemk/popis/internal/metrics"
	"github.com/erazemk/popis/internal/model"
)

// Export returns the current snapshot of a scope.
func (s *Service) Export(ctx context.Context, scope string) (model.Snapshot, error) {
	return s.store.LoadSnapshot(ctx, scope)
}

// Import merges imported into the stored snapshot of scope and saves the
// result. A malformed snapshot on either side leaves the store untouched.
func (s *Service) Import(ctx context.Context, scope string, imported model.Snapshot) (merge.Stats, error) {
	unlock := s.lockScope(scope)
	defer unlock()

	local, err := s.store.LoadSnapshot(ctx, scope)
	if err != nil {
		return merge.Stats{}, err
	}

	merged, stats, err := s.merger.MergeWithStats(local, imported)
	if err != nil {
		return merge.Stats{}, err
	}
	if err := s.save(ctx, scope, merged); err != nil {
		return merge.Stats{}, err
	}

	metrics.ObserveMerge(stats.Added, stats.Replaced, stats.Kept)
	slog.Info("snapshot imported", "scope", scope,
		"added", stats.Added, "replaced", stats.Replaced, "kept", stats.Kept)
	return stats, nil
}

// Archive writes the snapshot of scope to w as a ZIP archive.
func (s *Service) Archive(ctx context.Context, scope string, w io.Writer) error {
	snap, err := s.store.LoadSnapshot(ctx, scope)
	if err != nil {
		return err
	}
	return archive.Write(ctx, w, snap, s.catalog, s)
}
