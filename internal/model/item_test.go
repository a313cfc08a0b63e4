package model

import (
	"testing"
	"time"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestRecency(t *testing.T) {
	it := Item{ID: "a", CreatedAt: t0}
	if !it.Recency().Equal(t0) {
		t.Errorf("Recency without update = %v, want %v", it.Recency(), t0)
	}

	t1 := t0.Add(time.Hour)
	it.UpdatedAt = &t1
	if !it.Recency().Equal(t1) {
		t.Errorf("Recency with update = %v, want %v", it.Recency(), t1)
	}
}

func TestNewItemIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewItemID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestSetFieldsTrims(t *testing.T) {
	var it Item
	it.SetFields(Fields{Description: "  Laptop ", Location: "\tRoom 4\n", Status: StatusServiceable})
	if it.Description != "Laptop" || it.Location != "Room 4" {
		t.Errorf("fields not trimmed: %q %q", it.Description, it.Location)
	}
	if got := it.Fields(); got.Status != StatusServiceable {
		t.Errorf("status = %q, want %q", got.Status, StatusServiceable)
	}
}

func TestOverlayKeepsUnsetFields(t *testing.T) {
	local := Item{
		ID:                 "a",
		Description:        "Desk",
		AccountableOfficer: "J. Cruz",
		Status:             StatusServiceable,
		Photos:             []Photo{{URL: "data:image/jpeg;base64,AA=="}},
		CreatedAt:          t0,
	}
	t1 := t0.Add(time.Hour)
	newer := Item{
		ID:          "a",
		Description: "Standing desk",
		CreatedAt:   t0,
		UpdatedAt:   &t1,
		IsUpdated:   true,
	}

	got := local.Overlay(newer)
	if got.Description != "Standing desk" {
		t.Errorf("Description = %q, want newer value", got.Description)
	}
	if got.AccountableOfficer != "J. Cruz" {
		t.Errorf("AccountableOfficer = %q, want local value kept", got.AccountableOfficer)
	}
	if got.Status != StatusServiceable {
		t.Errorf("Status = %q, want local value kept", got.Status)
	}
	if len(got.Photos) != 1 {
		t.Errorf("expected local photos kept, got %d", len(got.Photos))
	}
	if !got.IsUpdated || got.UpdatedAt == nil || !got.UpdatedAt.Equal(t1) {
		t.Errorf("expected flag and update time from newer record, got %v %v", got.IsUpdated, got.UpdatedAt)
	}
}

func TestSnapshotCloneIndependent(t *testing.T) {
	s := Snapshot{CategoryLand: {{ID: "a", CreatedAt: t0}}}
	c := s.Clone()
	c[CategoryLand][0].Description = "changed"
	c[CategoryBuilding] = []Item{{ID: "b"}}

	if s[CategoryLand][0].Description != "" {
		t.Error("clone shares item storage with original")
	}
	if _, ok := s[CategoryBuilding]; ok {
		t.Error("clone shares map with original")
	}
	if s.Len() != 1 || c.Len() != 2 {
		t.Errorf("Len: original %d, clone %d", s.Len(), c.Len())
	}
}

func TestSortNewestFirst(t *testing.T) {
	s := Snapshot{CategoryLand: {
		{ID: "old", CreatedAt: t0},
		{ID: "z", CreatedAt: t0.Add(2 * time.Hour)},
		{ID: "new", CreatedAt: t0.Add(2 * time.Hour)},
		{ID: "mid", CreatedAt: t0.Add(time.Hour)},
	}}
	s.SortNewestFirst(CategoryLand)

	want := []string{"new", "z", "mid", "old"}
	for i, it := range s[CategoryLand] {
		if it.ID != want[i] {
			t.Errorf("position %d = %q, want %q", i, it.ID, want[i])
		}
	}

	if i, ok := s.Find(CategoryLand, "mid"); !ok || i != 2 {
		t.Errorf("Find(mid) = %d, %v", i, ok)
	}
	if _, ok := s.Find(CategoryLand, "missing"); ok {
		t.Error("Find(missing) should fail")
	}
}
