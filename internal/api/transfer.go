package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/erazemk/popis/internal/archive"
	"github.com/erazemk/popis/internal/backup"
	"github.com/erazemk/popis/internal/inventory"
	"github.com/erazemk/popis/internal/model"
)

// TransferHandler handles whole-snapshot export, import and archive.
type TransferHandler struct {
	Svc *inventory.Service
}

type importResponse struct {
	Added    int `json:"added"`
	Replaced int `json:"replaced"`
	Kept     int `json:"kept"`
}

// Export handles GET /api/export.
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Svc.Export(r.Context(), scopeOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := backup.Encode(&buf, snap, h.Svc.Catalog()); err != nil {
		writeError(w, r, err)
		return
	}

	name := fmt.Sprintf("inventory_backup_%s.json", time.Now().Format(time.DateOnly))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(buf.Bytes())
}

// Import handles POST /api/import. The body is a backup document; it is
// merged into the stored snapshot.
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, backup.MaxSize)
	defer r.Body.Close()

	imported, err := backup.Decode(r.Body, h.Svc.Catalog())
	if err != nil {
		// An unknown category here is a fault of the document, not a
		// missing resource.
		var (
			catErr  *model.InvalidCategoryError
			sizeErr *http.MaxBytesError
		)
		switch {
		case errors.As(err, &catErr):
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		case errors.As(err, &sizeErr):
			jsonError(w, http.StatusRequestEntityTooLarge, "backup too large")
			return
		}
		writeError(w, r, err)
		return
	}

	stats, err := h.Svc.Import(r.Context(), scopeOf(r), imported)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, importResponse{Added: stats.Added, Replaced: stats.Replaced, Kept: stats.Kept})
}

// Archive handles GET /api/archive.
func (h *TransferHandler) Archive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.FileName(time.Now())))

	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	if err := h.Svc.Archive(r.Context(), scopeOf(r), ww); err != nil {
		if ww.BytesWritten() == 0 {
			w.Header().Del("Content-Disposition")
			writeError(w, r, err)
			return
		}
		slog.Error("archive interrupted", "scope", scopeOf(r), "error", err)
	}
}
