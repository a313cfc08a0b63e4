package model

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Photo is one processed image attached to an item. URL is either a data:
// URL holding the encoded image or a reference into the photo store.
type Photo struct {
	URL  string `json:"url" validate:"required"`
	Part string `json:"part,omitempty"`
}

// ItemStatus is the condition of an asset.
type ItemStatus string

// Item statuses.
const (
	StatusServiceable   ItemStatus = "Serviceable"
	StatusUnserviceable ItemStatus = "Unserviceable"
)

// Valid reports whether s is empty or a known status.
func (s ItemStatus) Valid() bool {
	return s == "" || s == StatusServiceable || s == StatusUnserviceable
}

// Item is one inventoried physical asset. The descriptive fields are the
// union of every record revision; older records leave the newer ones empty.
type Item struct {
	ID                 string     `json:"id" validate:"required"`
	Description        string     `json:"description,omitempty"`
	AccountableOfficer string     `json:"accountableOfficer,omitempty"`
	EndUser            string     `json:"endUser,omitempty"`
	Location           string     `json:"location,omitempty"`
	MoreDetails        string     `json:"moreDetails,omitempty"`
	Status             ItemStatus `json:"status,omitempty" validate:"omitempty,oneof=Serviceable Unserviceable"`
	Photos             []Photo    `json:"photos" validate:"dive"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          *time.Time `json:"updatedAt,omitempty"`
	IsUpdated          bool       `json:"isUpdated"`
}

// NewItemID returns a fresh, time-sortable item id.
func NewItemID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Recency is the timestamp used to resolve conflicting edits: the update
// time if the item was ever edited, else its creation time.
func (it *Item) Recency() time.Time {
	if it.UpdatedAt != nil {
		return *it.UpdatedAt
	}
	return it.CreatedAt
}

// Fields holds the editable descriptive fields of an item.
type Fields struct {
	Description        string     `json:"description,omitempty"`
	AccountableOfficer string     `json:"accountableOfficer,omitempty"`
	EndUser            string     `json:"endUser,omitempty"`
	Location           string     `json:"location,omitempty"`
	MoreDetails        string     `json:"moreDetails,omitempty"`
	Status             ItemStatus `json:"status,omitempty"`
}

// Fields returns the item's descriptive fields.
func (it *Item) Fields() Fields {
	return Fields{
		Description:        it.Description,
		AccountableOfficer: it.AccountableOfficer,
		EndUser:            it.EndUser,
		Location:           it.Location,
		MoreDetails:        it.MoreDetails,
		Status:             it.Status,
	}
}

// SetFields replaces the item's descriptive fields, trimming whitespace.
func (it *Item) SetFields(f Fields) {
	it.Description = strings.TrimSpace(f.Description)
	it.AccountableOfficer = strings.TrimSpace(f.AccountableOfficer)
	it.EndUser = strings.TrimSpace(f.EndUser)
	it.Location = strings.TrimSpace(f.Location)
	it.MoreDetails = strings.TrimSpace(f.MoreDetails)
	it.Status = f.Status
}

// Overlay returns a copy of it with the fields of newer applied on top.
// Descriptive fields and photos that newer leaves empty keep their current
// value; id, timestamps and the done flag always come from newer.
func (it Item) Overlay(newer Item) Item {
	out := newer
	keep := func(dst *string, cur string) {
		if *dst == "" {
			*dst = cur
		}
	}
	keep(&out.Description, it.Description)
	keep(&out.AccountableOfficer, it.AccountableOfficer)
	keep(&out.EndUser, it.EndUser)
	keep(&out.Location, it.Location)
	keep(&out.MoreDetails, it.MoreDetails)
	if out.Status == "" {
		out.Status = it.Status
	}
	if len(out.Photos) == 0 {
		out.Photos = it.Photos
	}
	return out
}

// Snapshot is the full inventory state of one scope, partitioned by
// category. Each sequence is ordered newest first.
type Snapshot map[Category][]Item

// Clone returns a shallow copy: a new map with new slices holding the same
// item values. Photo slices are shared.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for cat, items := range s {
		out[cat] = slices.Clone(items)
	}
	return out
}

// Len returns the total number of items.
func (s Snapshot) Len() int {
	n := 0
	for _, items := range s {
		n += len(items)
	}
	return n
}

// Find returns the position of the item with the given id in a category.
func (s Snapshot) Find(cat Category, id string) (int, bool) {
	i := slices.IndexFunc(s[cat], func(it Item) bool { return it.ID == id })
	return i, i >= 0
}

// SortNewestFirst orders a category by creation time, newest first.
// Items created at the same instant are ordered by id.
func (s Snapshot) SortNewestFirst(cat Category) {
	slices.SortStableFunc(s[cat], func(a, b Item) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
