package model

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// ValidateItem checks a single item against the data model. Part labels are
// checked against the category the item belongs to.
func ValidateItem(info CategoryInfo, it *Item) error {
	if err := validate.Struct(it); err != nil {
		return errors.New(describeValidation(err))
	}
	if it.CreatedAt.IsZero() {
		return errors.New("createdAt is required")
	}
	if it.UpdatedAt != nil && it.UpdatedAt.Before(it.CreatedAt) {
		return errors.New("updatedAt is before createdAt")
	}
	for i, p := range it.Photos {
		switch {
		case info.SupportsParts() && p.Part == "":
			return fmt.Errorf("photos[%d]: %w", i, ErrPartRequired)
		case info.SupportsParts() && !containsPart(info.Parts, p.Part):
			return fmt.Errorf("photos[%d]: %w %q", i, ErrUnknownPart, p.Part)
		case !info.SupportsParts() && p.Part != "":
			return fmt.Errorf("photos[%d]: part label not allowed in this category", i)
		}
	}
	return nil
}

// Validate checks every category and item of the snapshot. The first
// violation in catalog order is returned as a *MalformedSnapshotError naming
// the category and item; side labels which merge input was at fault.
func (s Snapshot) Validate(catalog *Catalog, side string) error {
	var unknown []Category
	for cat := range s {
		if !catalog.Known(cat) {
			unknown = append(unknown, cat)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		_, err := catalog.Lookup(string(unknown[0]))
		return &MalformedSnapshotError{Side: side, Category: unknown[0], Reason: "unknown category", Err: err}
	}

	for _, info := range catalog.All() {
		items := s[info.Name]
		seen := make(map[string]bool, len(items))
		for i := range items {
			it := &items[i]
			if err := ValidateItem(info, it); err != nil {
				return &MalformedSnapshotError{Side: side, Category: info.Name, ItemID: it.ID, Reason: err.Error(), Err: err}
			}
			if seen[it.ID] {
				return &MalformedSnapshotError{Side: side, Category: info.Name, ItemID: it.ID, Reason: "duplicate item id"}
			}
			seen[it.ID] = true
		}
	}
	return s.checkCrossCategoryIDs(catalog, side)
}

// checkCrossCategoryIDs rejects an id that appears in two categories.
func (s Snapshot) checkCrossCategoryIDs(catalog *Catalog, side string) error {
	owner := make(map[string]Category)
	for _, info := range catalog.All() {
		for _, it := range s[info.Name] {
			if prev, ok := owner[it.ID]; ok && prev != info.Name {
				return &MalformedSnapshotError{
					Side:     side,
					Category: info.Name,
					ItemID:   it.ID,
					Reason:   fmt.Sprintf("id also used in category %q", prev),
				}
			}
			owner[it.ID] = info.Name
		}
	}
	return nil
}

func describeValidation(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err.Error()
	}
	e := ve[0]
	field := e.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, e.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", field, e.Tag())
	}
}

func containsPart(parts []string, part string) bool {
	for _, p := range parts {
		if p == part {
			return true
		}
	}
	return false
}
