// Package archive writes a snapshot as a ZIP tree of category and item
// folders holding a text description and the item's photos.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/erazemk/popis/internal/model"
)

// PhotoFetcher dereferences a photo URL into its bytes and MIME type.
type PhotoFetcher interface {
	FetchPhoto(ctx context.Context, url string) ([]byte, string, error)
}

// FetcherFunc adapts a function to PhotoFetcher.
type FetcherFunc func(ctx context.Context, url string) ([]byte, string, error)

func (f FetcherFunc) FetchPhoto(ctx context.Context, url string) ([]byte, string, error) {
	return f(ctx, url)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// FolderName turns a category name into a portable folder name.
func FolderName(c model.Category) string {
	return unsafeChars.ReplaceAllString(string(c), "_")
}

// FileName returns the conventional archive name for a backup taken at t.
func FileName(t time.Time) string {
	return "inventory_backup_" + t.UTC().Format("2006-01-02") + ".zip"
}

// Write streams snap to w as a ZIP archive. Categories follow the catalog
// order and empty categories are skipped. A photo that cannot be fetched is
// replaced by a photo_<n>_FETCH_ERROR.txt file naming its URL; only write
// errors and ctx cancellation abort the archive.
func Write(ctx context.Context, w io.Writer, snap model.Snapshot, catalog *model.Catalog, fetch PhotoFetcher) error {
	zw := zip.NewWriter(w)

	for _, info := range catalog.All() {
		items := snap[info.Name]
		if len(items) == 0 {
			continue
		}
		folder := FolderName(info.Name)

		for i, it := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			dir := fmt.Sprintf("%s/item_%d_%s/", folder, i+1, safeID(it.ID))

			if err := writeFile(zw, dir+"description.txt", it.CreatedAt, []byte(Description(&it))); err != nil {
				return err
			}

			for j, p := range it.Photos {
				data, mime, err := fetch.FetchPhoto(ctx, p.URL)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if err != nil {
					msg := fmt.Sprintf("URL: %s\nError: %v\n", p.URL, err)
					name := fmt.Sprintf("%sphoto_%d_FETCH_ERROR.txt", dir, j+1)
					if err := writeFile(zw, name, it.CreatedAt, []byte(msg)); err != nil {
						return err
					}
					continue
				}
				name := fmt.Sprintf("%sphoto_%d%s", dir, j+1, extension(mime))
				if err := writeFile(zw, name, it.CreatedAt, data); err != nil {
					return err
				}
			}
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	return nil
}

// Description renders the descriptive fields of an item as text, one
// labelled line per non-empty field.
func Description(it *model.Item) string {
	var b strings.Builder
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}

	line("ID", it.ID)
	line("Description", it.Description)
	line("Accountable Officer", it.AccountableOfficer)
	line("End User", it.EndUser)
	line("Location", it.Location)
	line("More Details", it.MoreDetails)
	line("Status", string(it.Status))
	line("Created", it.CreatedAt.UTC().Format(time.RFC3339))
	if it.UpdatedAt != nil {
		line("Updated", it.UpdatedAt.UTC().Format(time.RFC3339))
	}
	if it.IsUpdated {
		line("Done", "yes")
	} else {
		line("Done", "no")
	}
	for i, p := range it.Photos {
		line(fmt.Sprintf("Photo %d", i+1), p.Part)
	}
	return b.String()
}

func writeFile(zw *zip.Writer, name string, mod time.Time, data []byte) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: mod}
	f, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// safeID keeps item ids from escaping their folder.
func safeID(id string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(id)
}

func extension(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tif"
	default:
		return ".bin"
	}
}
