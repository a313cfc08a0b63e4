package inventory

import (
	"context"
	"fmt"
	"slices"

	"github.com/erazemk/popis/internal/model"
)

// Filter selects items by their done flag.
type Filter string

// Item filters.
const (
	FilterAll     Filter = "all"
	FilterDone    Filter = "done"
	FilterPending Filter = "pending"
)

// ParseFilter parses a filter name. The empty string means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterDone, FilterPending:
		return f, nil
	default:
		return "", fmt.Errorf("invalid filter %q", s)
	}
}

func (f Filter) match(it *model.Item) bool {
	switch f {
	case FilterDone:
		return it.IsUpdated
	case FilterPending:
		return !it.IsUpdated
	default:
		return true
	}
}

// Count summarizes one category.
type Count struct {
	Category model.Category `json:"category"`
	Parts    []string       `json:"parts,omitempty"`
	Total    int            `json:"total"`
	Done     int            `json:"done"`
}

// AddItem creates an item from already ingested photos and puts it at the
// front of its category. At least one photo and some descriptive text are
// required.
func (s *Service) AddItem(ctx context.Context, scope, category string, fields model.Fields, photos []model.Photo) (model.Item, error) {
	info, err := s.lookup(category)
	if err != nil {
		return model.Item{}, err
	}

	it := model.Item{
		ID:     s.newID(),
		Photos: slices.Clone(photos),
	}
	it.SetFields(fields)
	it.CreatedAt = s.now().UTC()

	if err := checkNewItem(info, &it); err != nil {
		return model.Item{}, err
	}

	err = s.update(ctx, scope, func(snap model.Snapshot) error {
		if _, dup := snap.Find(info.Name, it.ID); dup {
			return fmt.Errorf("item id %q already exists", it.ID)
		}
		snap[info.Name] = append([]model.Item{it}, snap[info.Name]...)
		return nil
	})
	if err != nil {
		return model.Item{}, err
	}
	return it, nil
}

func checkNewItem(info model.CategoryInfo, it *model.Item) error {
	if len(it.Photos) == 0 {
		return model.ErrNoPhotos
	}
	if it.AccountableOfficer == "" && it.Description == "" && it.MoreDetails == "" {
		return model.ErrNoDetails
	}
	return checkItem(info, it)
}

func checkItem(info model.CategoryInfo, it *model.Item) error {
	if !it.Status.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidStatus, it.Status)
	}
	for i := range it.Photos {
		part, err := info.ResolvePart(it.Photos[i].Part)
		if err != nil {
			return fmt.Errorf("photo %d: %w", i+1, err)
		}
		it.Photos[i].Part = part
	}
	return model.ValidateItem(info, it)
}

// Edit describes a change to an existing item. A nil Photos leaves the
// photos as they are.
type Edit struct {
	Fields model.Fields
	Photos []model.Photo
}

// EditItem replaces the descriptive fields of an item and stamps its update
// time. The done flag is left alone.
func (s *Service) EditItem(ctx context.Context, scope, category, id string, edit Edit) (model.Item, error) {
	info, err := s.lookup(category)
	if err != nil {
		return model.Item{}, err
	}

	var out model.Item
	err = s.update(ctx, scope, func(snap model.Snapshot) error {
		i, ok := snap.Find(info.Name, id)
		if !ok {
			return model.ErrItemNotFound
		}
		it := snap[info.Name][i]
		it.SetFields(edit.Fields)
		if edit.Photos != nil {
			if len(edit.Photos) == 0 {
				return model.ErrNoPhotos
			}
			it.Photos = slices.Clone(edit.Photos)
		}

		// Never before creation, even with a skewed clock.
		now := s.now().UTC()
		if now.Before(it.CreatedAt) {
			now = it.CreatedAt
		}
		it.UpdatedAt = &now

		if err := checkItem(info, &it); err != nil {
			return err
		}
		snap[info.Name][i] = it
		out = it
		return nil
	})
	return out, err
}

// SetDone sets the done flag of an item without touching its update time.
func (s *Service) SetDone(ctx context.Context, scope, category, id string, done bool) (model.Item, error) {
	info, err := s.lookup(category)
	if err != nil {
		return model.Item{}, err
	}

	var out model.Item
	err = s.update(ctx, scope, func(snap model.Snapshot) error {
		i, ok := snap.Find(info.Name, id)
		if !ok {
			return model.ErrItemNotFound
		}
		snap[info.Name][i].IsUpdated = done
		out = snap[info.Name][i]
		return nil
	})
	return out, err
}

// DeleteItem removes an item from its category.
func (s *Service) DeleteItem(ctx context.Context, scope, category, id string) error {
	info, err := s.lookup(category)
	if err != nil {
		return err
	}

	return s.update(ctx, scope, func(snap model.Snapshot) error {
		i, ok := snap.Find(info.Name, id)
		if !ok {
			return model.ErrItemNotFound
		}
		snap[info.Name] = slices.Delete(snap[info.Name], i, i+1)
		return nil
	})
}

// GetItem returns one item.
func (s *Service) GetItem(ctx context.Context, scope, category, id string) (model.Item, error) {
	info, err := s.lookup(category)
	if err != nil {
		return model.Item{}, err
	}
	snap, err := s.store.LoadSnapshot(ctx, scope)
	if err != nil {
		return model.Item{}, err
	}
	i, ok := snap.Find(info.Name, id)
	if !ok {
		return model.Item{}, model.ErrItemNotFound
	}
	return snap[info.Name][i], nil
}

// ListItems returns the items of a category matching filter, in stored
// order.
func (s *Service) ListItems(ctx context.Context, scope, category string, filter Filter) ([]model.Item, error) {
	info, err := s.lookup(category)
	if err != nil {
		return nil, err
	}
	snap, err := s.store.LoadSnapshot(ctx, scope)
	if err != nil {
		return nil, err
	}

	items := []model.Item{}
	for _, it := range snap[info.Name] {
		if filter.match(&it) {
			items = append(items, it)
		}
	}
	return items, nil
}

// Counts returns the item totals of every category in catalog order.
func (s *Service) Counts(ctx context.Context, scope string) ([]Count, error) {
	snap, err := s.store.LoadSnapshot(ctx, scope)
	if err != nil {
		return nil, err
	}

	all := s.catalog.All()
	counts := make([]Count, 0, len(all))
	for _, info := range all {
		c := Count{Category: info.Name, Parts: info.Parts}
		for _, it := range snap[info.Name] {
			c.Total++
			if it.IsUpdated {
				c.Done++
			}
		}
		counts = append(counts, c)
	}
	return counts, nil
}
