package model

import (
	"errors"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	all := c.All()
	if len(all) != 12 {
		t.Fatalf("expected 12 categories, got %d", len(all))
	}
	if all[0].Name != CategoryLand {
		t.Errorf("first category = %q, want %q", all[0].Name, CategoryLand)
	}

	for _, info := range all {
		want := info.Name == CategoryITEquipment
		if info.SupportsParts() != want {
			t.Errorf("%q SupportsParts() = %v, want %v", info.Name, info.SupportsParts(), want)
		}
	}
}

func TestCatalogLookupUnknown(t *testing.T) {
	c := DefaultCatalog()

	_, err := c.Lookup("SPACESHIPS")
	var ice *InvalidCategoryError
	if !errors.As(err, &ice) {
		t.Fatalf("expected *InvalidCategoryError, got %v", err)
	}
	if ice.Name != "SPACESHIPS" {
		t.Errorf("error name = %q, want SPACESHIPS", ice.Name)
	}

	// Lookup is case-sensitive.
	if _, err := c.Lookup("it equipment"); err == nil {
		t.Error("expected error for lower-case category name")
	}
}

func TestCatalogPartsConfigurable(t *testing.T) {
	c := NewCatalog(DefaultCategories(CategoryITEquipment, CategoryCommunicationEquipment))

	info, err := c.Lookup(string(CategoryCommunicationEquipment))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !info.SupportsParts() {
		t.Error("expected COMMUNICATION EQUIPMENT to support parts")
	}

	info, _ = c.Lookup(string(CategoryLand))
	if info.SupportsParts() {
		t.Error("expected LAND not to support parts")
	}
}

func TestNewCatalogSkipsDuplicates(t *testing.T) {
	c := NewCatalog([]CategoryInfo{
		{Name: "A"},
		{Name: "B", Parts: []string{"x"}},
		{Name: "B"},
	})
	if n := len(c.All()); n != 2 {
		t.Fatalf("expected 2 categories, got %d", n)
	}
	info, _ := c.Lookup("B")
	if !info.SupportsParts() {
		t.Error("expected first occurrence of B to be kept")
	}
	if c.Index("B") != 1 || c.Index("C") != -1 {
		t.Errorf("Index: got B=%d C=%d", c.Index("B"), c.Index("C"))
	}
}

func TestResolvePart(t *testing.T) {
	it := CategoryInfo{Name: CategoryITEquipment, Parts: DefaultParts}
	land := CategoryInfo{Name: CategoryLand}

	tests := []struct {
		info    CategoryInfo
		part    string
		want    string
		wantErr error
	}{
		{it, "CPU", "CPU", nil},
		{it, "Monitor", "Monitor", nil},
		{it, "", "", ErrPartRequired},
		{it, "Toaster", "", ErrUnknownPart},
		{land, "", "", nil},
		// Labels are dropped outside parts categories.
		{land, "CPU", "", nil},
	}

	for _, tt := range tests {
		got, err := tt.info.ResolvePart(tt.part)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ResolvePart(%q) on %q error = %v, want %v", tt.part, tt.info.Name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolvePart(%q) on %q = %q, want %q", tt.part, tt.info.Name, got, tt.want)
		}
	}
}
