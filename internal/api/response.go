package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/popis/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// writeError maps a service error to its HTTP status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		catErr *model.InvalidCategoryError
		malErr *model.MalformedSnapshotError
		capErr *model.CapacityExceededError
	)

	switch {
	case errors.As(err, &catErr):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrItemNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &malErr):
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &capErr):
		jsonError(w, http.StatusInsufficientStorage, err.Error())
	case isBadRequest(err):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away.
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

func isBadRequest(err error) bool {
	for _, target := range []error{
		model.ErrPartRequired,
		model.ErrUnknownPart,
		model.ErrNoPhotos,
		model.ErrNoDetails,
		model.ErrInvalidStatus,
		model.ErrEmptyPhoto,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
