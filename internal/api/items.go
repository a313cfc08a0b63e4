package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/popis/internal/inventory"
	"github.com/erazemk/popis/internal/model"
)

// ItemsHandler handles category and item endpoints.
type ItemsHandler struct {
	Svc *inventory.Service
}

type itemRequest struct {
	model.Fields
	Photos []model.Photo `json:"photos"`
}

type doneRequest struct {
	Done bool `json:"done"`
}

// categoryParam returns the decoded category path segment. Names such as
// "FURNITURE & FIXTURES" arrive escaped when the raw path is routed.
func categoryParam(r *http.Request) string {
	raw := chi.URLParam(r, "category")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// Counts handles GET /api/categories.
func (h *ItemsHandler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Svc.Counts(r.Context(), scopeOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, counts)
}

// List handles GET /api/categories/{category}/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := inventory.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.Svc.ListItems(r.Context(), scopeOf(r), categoryParam(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/categories/{category}/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Svc.AddItem(r.Context(), scopeOf(r), categoryParam(r), req.Fields, req.Photos)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/categories/{category}/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Svc.GetItem(r.Context(), scopeOf(r), categoryParam(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/categories/{category}/items/{id}. Omitting photos
// keeps the current ones.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	edit := inventory.Edit{Fields: req.Fields, Photos: req.Photos}
	item, err := h.Svc.EditItem(r.Context(), scopeOf(r), categoryParam(r), chi.URLParam(r, "id"), edit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// SetDone handles PUT /api/categories/{category}/items/{id}/done.
func (h *ItemsHandler) SetDone(w http.ResponseWriter, r *http.Request) {
	var req doneRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Svc.SetDone(r.Context(), scopeOf(r), categoryParam(r), chi.URLParam(r, "id"), req.Done)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/categories/{category}/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeleteItem(r.Context(), scopeOf(r), categoryParam(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}
