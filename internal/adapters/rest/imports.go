package rest

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ewilliams-labs/ecmcatalog/internal/adapters/catalogfile"
	"github.com/ewilliams-labs/ecmcatalog/internal/adapters/feed"
	"github.com/ewilliams-labs/ecmcatalog/internal/logging"
)

const maxImportBytes = 32 << 20

type importResponse struct {
	ID string `json:"id"`
}

// SubmitImport handles POST /imports. The body is a catalogue document in
// JSON or YAML, chosen by Content-Type or sniffed when the type is generic.
func (h *Handler) SubmitImport(w http.ResponseWriter, r *http.Request) {
	codec, body, err := catalogfile.ForContent(r.Header.Get("Content-Type"), http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeErrorWithCode(w, http.StatusUnsupportedMediaType, err.Error(), errCodeInvalidArgument)
		return
	}
	c, err := catalogfile.Decode(codec, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := h.imports.Submit("upload", c)
	accepted(w, id, err)
}

// SyncFeed handles POST /imports/feed by fetching the remote catalogue and
// queueing it.
func (h *Handler) SyncFeed(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		writeError(w, http.StatusNotImplemented, "catalogue feed not configured")
		return
	}
	c, err := h.feed.FetchCatalogue(r.Context())
	if err != nil {
		if errors.Is(err, feed.ErrUnavailable) {
			w.Header().Set("Retry-After", "60")
			writeErrorWithCode(w, http.StatusServiceUnavailable, err.Error(), errCodeUnavailable)
			return
		}
		logging.Warn().Err(err).Msg("rest: feed sync failed")
		writeErrorWithCode(w, http.StatusBadGateway, err.Error(), errCodeUpstream)
		return
	}
	id, err := h.imports.Submit("feed", c)
	accepted(w, id, err)
}

func accepted(w http.ResponseWriter, id string, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/imports/"+id)
	writeJSON(w, http.StatusAccepted, importResponse{ID: id})
}

// GetImport handles GET /imports/{id}
func (h *Handler) GetImport(w http.ResponseWriter, r *http.Request) {
	job, err := h.imports.Status(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
