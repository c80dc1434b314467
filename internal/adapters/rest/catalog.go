package rest

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
)

// GetMusician handles GET /musicians/{name}
func (h *Handler) GetMusician(w http.ResponseWriter, r *http.Request) {
	m, err := h.catalog.GetMusician(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// SearchAlbums handles GET /albums?q=
func (h *Handler) SearchAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := h.catalog.SearchAlbums(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

// GetAlbum handles GET /albums/lookup?year=&record=&name=
//
// Record numbers such as "ECM 1064/65" contain slashes, so the key travels
// in the query string.
func (h *Handler) GetAlbum(w http.ResponseWriter, r *http.Request) {
	key, err := albumKeyParams(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	a, err := h.catalog.GetAlbum(r.Context(), key)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func albumKeyParams(r *http.Request) (domain.AlbumKey, error) {
	year, err := intParam(r, "year", true, 0)
	if err != nil {
		return domain.AlbumKey{}, err
	}
	q := r.URL.Query()
	record, name := strings.TrimSpace(q.Get("record")), strings.TrimSpace(q.Get("name"))
	if record == "" || name == "" {
		return domain.AlbumKey{}, domain.Invalid("request", "query parameters record and name are required")
	}
	return domain.AlbumKey{ReleaseYear: year, RecordNumber: record, Name: name}, nil
}
