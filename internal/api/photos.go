package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/popis/internal/imaging"
	"github.com/erazemk/popis/internal/inventory"
)

// MaxPhotoUpload bounds one multipart photo upload.
const MaxPhotoUpload = 32 << 20

// PhotosHandler handles photo capture and retrieval.
type PhotosHandler struct {
	Svc *inventory.Service
}

// Upload handles POST /api/photos. The form carries the capture in "image"
// and the target "category" and "part".
func (h *PhotosHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxPhotoUpload)

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to read image")
		return
	}

	photo, err := h.Svc.AddPhoto(r.Context(), r.FormValue("category"), r.FormValue("part"), raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, photo)
}

// Get handles GET /api/photos/{key}.
func (h *PhotosHandler) Get(w http.ResponseWriter, r *http.Request) {
	blob, err := h.Svc.GetPhoto(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if blob == nil {
		jsonError(w, http.StatusNotFound, "photo not found")
		return
	}

	// Blobs kept from undecodable uploads may hold anything.
	mime := blob.MIME
	if !imaging.AllowedMIME[mime] {
		mime = "application/octet-stream"
		w.Header().Set("Content-Disposition", "attachment")
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(blob.Data)
}
