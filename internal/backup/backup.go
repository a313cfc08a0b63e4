// Package backup reads and writes the transportable snapshot format: a JSON
// object mapping category names to arrays of item records.
//
// Decode accepts records from every schema revision and normalizes them to
// model.Item. Encode always writes the canonical shape.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/erazemk/popis/internal/model"
)

// MaxSize bounds the size of a backup accepted by Decode.
const MaxSize = 256 << 20

type photoRecord struct {
	URL  string `json:"url"`
	Part string `json:"part,omitempty"`
}

// UnmarshalJSON accepts both {url, part} objects and bare URL strings, which
// the earliest revisions stored.
func (p *photoRecord) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &p.URL)
	}
	type plain photoRecord
	return json.Unmarshal(b, (*plain)(p))
}

type record struct {
	ID                 string        `json:"id"`
	Category           string        `json:"category"`
	Description        string        `json:"description"`
	AccountableOfficer string        `json:"accountableOfficer"`
	EndUser            string        `json:"endUser"`
	Location           string        `json:"location"`
	MoreDetails        string        `json:"moreDetails"`
	Details            string        `json:"details"`
	Status             string        `json:"status"`
	Photos             []photoRecord `json:"photos"`
	CreatedAt          timestamp     `json:"createdAt"`
	UpdatedAt          *timestamp    `json:"updatedAt"`
	IsUpdated          bool          `json:"isUpdated"`
}

func (r *record) item() model.Item {
	it := model.Item{
		ID:                 r.ID,
		Description:        r.Description,
		AccountableOfficer: r.AccountableOfficer,
		EndUser:            r.EndUser,
		Location:           r.Location,
		MoreDetails:        r.MoreDetails,
		Status:             model.ItemStatus(r.Status),
		Photos:             make([]model.Photo, 0, len(r.Photos)),
		CreatedAt:          r.CreatedAt.Time,
		IsUpdated:          r.IsUpdated,
	}
	if it.MoreDetails == "" {
		it.MoreDetails = r.Details
	}
	if r.UpdatedAt != nil && !r.UpdatedAt.IsZero() {
		u := r.UpdatedAt.Time
		it.UpdatedAt = &u
	}
	for _, p := range r.Photos {
		it.Photos = append(it.Photos, model.Photo{URL: p.URL, Part: p.Part})
	}
	return it
}

// Decode reads a backup. Category keys outside catalog fail with
// *model.InvalidCategoryError; records that cannot be read fail with
// *model.MalformedSnapshotError. Decode does not check the data model
// invariants, which the merge does before applying anything.
func Decode(r io.Reader, catalog *model.Catalog) (model.Snapshot, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading backup: %w", err)
	}
	if len(data) > MaxSize {
		return nil, &model.MalformedSnapshotError{Reason: "backup exceeds size limit"}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &model.MalformedSnapshotError{Reason: describeJSON(err), Err: err}
	}
	if raw == nil {
		return nil, &model.MalformedSnapshotError{Reason: "backup is not a JSON object"}
	}

	snap := make(model.Snapshot, len(raw))
	for name, body := range raw {
		info, err := catalog.Lookup(name)
		if err != nil {
			return nil, err
		}

		var records []record
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, &model.MalformedSnapshotError{
				Category: info.Name,
				Reason:   describeJSON(err),
				Err:      err,
			}
		}

		items := make([]model.Item, 0, len(records))
		for _, rec := range records {
			if rec.Category != "" && rec.Category != name {
				return nil, &model.MalformedSnapshotError{
					Category: info.Name,
					ItemID:   rec.ID,
					Reason:   fmt.Sprintf("record is labelled %q", rec.Category),
				}
			}
			items = append(items, rec.item())
		}
		snap[info.Name] = items
	}
	return snap, nil
}

// Encode writes snap as an indented JSON object. Categories follow the
// catalog's display order; categories outside it are rejected.
func Encode(w io.Writer, snap model.Snapshot, catalog *model.Catalog) error {
	for cat := range snap {
		if !catalog.Known(cat) {
			return &model.InvalidCategoryError{Name: string(cat)}
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, info := range catalog.All() {
		items, ok := snap[info.Name]
		if !ok {
			continue
		}
		if items == nil {
			items = []model.Item{}
		}

		key, err := json.Marshal(string(info.Name))
		if err != nil {
			return err
		}
		body, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("encoding category %q: %w", info.Name, err)
		}

		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func describeJSON(err error) string {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntax):
		return fmt.Sprintf("invalid JSON at offset %d", syntax.Offset)
	case errors.As(err, &typ):
		if typ.Field != "" {
			return fmt.Sprintf("field %s: expected %s, got %s", typ.Field, typ.Type, typ.Value)
		}
		return fmt.Sprintf("expected %s, got %s", typ.Type, typ.Value)
	default:
		return err.Error()
	}
}
