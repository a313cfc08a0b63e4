package model

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Sentinel errors. Use errors.Is to check these.
var (
	// ErrItemNotFound indicates no item with the given id exists in the category.
	ErrItemNotFound = errors.New("item not found")

	// ErrPartRequired indicates a photo of a parts-decomposed category was
	// submitted without a part label.
	ErrPartRequired = errors.New("part label required for this category")

	// ErrUnknownPart indicates a part label outside the category's part list.
	ErrUnknownPart = errors.New("unknown part label")

	// ErrNoPhotos indicates an item was saved without any photo.
	ErrNoPhotos = errors.New("at least one photo is required")

	// ErrInvalidStatus indicates a status outside Serviceable/Unserviceable.
	ErrInvalidStatus = errors.New("invalid item status")

	// ErrNoDetails indicates an item was saved with no descriptive text.
	ErrNoDetails = errors.New("accountable officer, description or details required")

	// ErrEmptyPhoto indicates an empty capture payload.
	ErrEmptyPhoto = errors.New("empty photo")
)

// InvalidCategoryError is returned when an operation addresses a category
// outside the fixed catalog.
type InvalidCategoryError struct {
	Name string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid category %q", e.Name)
}

// MalformedSnapshotError is returned when a snapshot violates the data model.
// Category and ItemID identify the offending record when known.
type MalformedSnapshotError struct {
	Side     string
	Category Category
	ItemID   string
	Reason   string
	Err      error
}

func (e *MalformedSnapshotError) Error() string {
	msg := "malformed snapshot"
	if e.Side != "" {
		msg = "malformed " + e.Side + " snapshot"
	}
	if e.Category != "" {
		msg += fmt.Sprintf(": category %q", e.Category)
	}
	if e.ItemID != "" {
		msg += fmt.Sprintf(": item %q", e.ItemID)
	}
	return msg + ": " + e.Reason
}

func (e *MalformedSnapshotError) Unwrap() error {
	return e.Err
}

// CapacityExceededError is returned by persistence when a snapshot does not
// fit the storage quota of its scope.
type CapacityExceededError struct {
	Scope string
	Size  int64
	Limit int64
	Err   error
}

func (e *CapacityExceededError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("storage full for scope %q: snapshot is %s, quota is %s",
			e.Scope, humanize.Bytes(uint64(e.Size)), humanize.Bytes(uint64(e.Limit)))
	}
	if e.Err != nil {
		return fmt.Sprintf("storage full for scope %q: %v", e.Scope, e.Err)
	}
	return fmt.Sprintf("storage full for scope %q", e.Scope)
}

func (e *CapacityExceededError) Unwrap() error {
	return e.Err
}
