// Package merge reconciles two independently edited inventory snapshots.
//
// Merging is last-write-wins per item: an imported record replaces the local
// one only when it is strictly more recent. Records the local side does not
// have are added, and records only the local side has are kept verbatim.
package merge

import (
	"fmt"

	"github.com/erazemk/popis/internal/model"
)

// Input sides named in *model.MalformedSnapshotError.
const (
	SideLocal    = "local"
	SideImported = "imported"
)

// Stats counts what a merge did with each imported item.
type Stats struct {
	Added    int
	Replaced int
	Kept     int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Added += other.Added
	s.Replaced += other.Replaced
	s.Kept += other.Kept
}

// Engine merges snapshots over a fixed category catalog.
type Engine struct {
	Catalog *model.Catalog
}

// New returns an Engine for the given catalog.
func New(catalog *model.Catalog) *Engine {
	return &Engine{Catalog: catalog}
}

var defaultEngine = New(model.DefaultCatalog())

// Merge reconciles local and imported over the default catalog.
func Merge(local, imported model.Snapshot) (model.Snapshot, error) {
	return defaultEngine.Merge(local, imported)
}

// MergeAll merges each snapshot into base in argument order over the
// default catalog.
func MergeAll(base model.Snapshot, snapshots ...model.Snapshot) (model.Snapshot, error) {
	return defaultEngine.MergeAll(base, snapshots...)
}

// Merge returns a new snapshot reconciling local with imported. Neither
// input is modified. If either input is malformed a
// *model.MalformedSnapshotError is returned and nothing is merged.
func (e *Engine) Merge(local, imported model.Snapshot) (model.Snapshot, error) {
	out, _, err := e.MergeWithStats(local, imported)
	return out, err
}

// MergeAll merges each snapshot into base in argument order. The result of
// every step is the local side of the next one.
func (e *Engine) MergeAll(base model.Snapshot, snapshots ...model.Snapshot) (model.Snapshot, error) {
	if len(snapshots) == 0 {
		if err := base.Validate(e.Catalog, SideLocal); err != nil {
			return nil, err
		}
		return base.Clone(), nil
	}

	acc := base
	for _, s := range snapshots {
		next, _, err := e.MergeWithStats(acc, s)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

// MergeWithStats is Merge that also reports how each imported item was
// resolved.
func (e *Engine) MergeWithStats(local, imported model.Snapshot) (model.Snapshot, Stats, error) {
	var stats Stats

	if err := local.Validate(e.Catalog, SideLocal); err != nil {
		return nil, stats, err
	}
	if err := imported.Validate(e.Catalog, SideImported); err != nil {
		return nil, stats, err
	}
	if err := checkCategoryConflicts(local, imported); err != nil {
		return nil, stats, err
	}

	out := local.Clone()

	for cat, items := range imported {
		current := out[cat]
		if current == nil {
			current = []model.Item{}
		}

		byID := make(map[string]int, len(current))
		for i := range current {
			byID[current[i].ID] = i
		}

		for _, in := range items {
			i, ok := byID[in.ID]
			if !ok {
				byID[in.ID] = len(current)
				current = append(current, in)
				stats.Added++
				continue
			}
			if in.Recency().After(current[i].Recency()) {
				current[i] = current[i].Overlay(in)
				stats.Replaced++
			} else {
				stats.Kept++
			}
		}

		out[cat] = current
		out.SortNewestFirst(cat)
	}

	return out, stats, nil
}

// checkCategoryConflicts rejects an imported item whose id is filed under a
// different category locally. A shared id means the same logical item, so
// merging would leave it in two categories.
func checkCategoryConflicts(local, imported model.Snapshot) error {
	owner := make(map[string]model.Category, local.Len())
	for cat, items := range local {
		for _, it := range items {
			owner[it.ID] = cat
		}
	}
	for cat, items := range imported {
		for _, it := range items {
			if prev, ok := owner[it.ID]; ok && prev != cat {
				return &model.MalformedSnapshotError{
					Side:     SideImported,
					Category: cat,
					ItemID:   it.ID,
					Reason:   fmt.Sprintf("item is filed under %q locally", prev),
				}
			}
		}
	}
	return nil
}
