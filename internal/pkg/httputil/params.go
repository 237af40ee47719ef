package httputil

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// UUIDParam extracts a UUID path parameter. A malformed value is rejected
// here so it never reaches the database as a scan error.
func UUIDParam(r *http.Request, name string) (string, bool) {
	value := chi.URLParam(r, name)
	if _, err := uuid.Parse(value); err != nil {
		return "", false
	}
	return value, true
}
