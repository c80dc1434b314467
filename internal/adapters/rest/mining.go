package rest

import (
	"errors"
	"net/http"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
	"github.com/ewilliams-labs/ecmcatalog/internal/metrics"
)

type resultsResponse[T any] struct {
	K       int `json:"k"`
	Results []T `json:"results"`
}

// mine runs one mining query and writes its results.
func mine[T any](w http.ResponseWriter, r *http.Request, op string, query func(k int) ([]T, error)) {
	k, err := intParam(r, "k", true, 0)
	if err == nil {
		var results []T
		if results, err = query(k); err == nil {
			metrics.RecordMiningQuery(op, "ok")
			writeJSON(w, http.StatusOK, resultsResponse[T]{K: k, Results: results})
			return
		}
	}
	if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrNotFound) {
		metrics.RecordMiningQuery(op, "invalid")
	} else {
		metrics.RecordMiningQuery(op, "error")
	}
	writeServiceError(w, err)
}

// MostProlific handles GET /mining/prolific?k=&start=&end=
func (h *Handler) MostProlific(w http.ResponseWriter, r *http.Request) {
	start, err := intParam(r, "start", false, 0)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	end, err := intParam(r, "end", false, 0)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	mine(w, r, "mostProlific", func(k int) ([]domain.Musician, error) {
		return h.miner.MostProlificMusicians(r.Context(), k, start, end)
	})
}

// MostTalented handles GET /mining/talented?k=
func (h *Handler) MostTalented(w http.ResponseWriter, r *http.Request) {
	mine(w, r, "mostTalented", func(k int) ([]domain.Musician, error) {
		return h.miner.MostTalentedMusicians(r.Context(), k)
	})
}

// MostSocial handles GET /mining/social?k=
func (h *Handler) MostSocial(w http.ResponseWriter, r *http.Request) {
	mine(w, r, "mostSocial", func(k int) ([]domain.Musician, error) {
		return h.miner.MostSocialMusicians(r.Context(), k)
	})
}

// BusiestYears handles GET /mining/busiest-years?k=
func (h *Handler) BusiestYears(w http.ResponseWriter, r *http.Request) {
	mine(w, r, "busiestYears", func(k int) ([]int, error) {
		return h.miner.BusiestYears(r.Context(), k)
	})
}

// MostSimilar handles GET /mining/similar?k=&year=&record=&name=
//
// The target album is looked up by key first, so its stored credits drive
// the comparison. An unknown key goes to the miner as is and is rejected
// there as an invalid argument.
func (h *Handler) MostSimilar(w http.ResponseWriter, r *http.Request) {
	key, err := albumKeyParams(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	mine(w, r, "mostSimilar", func(k int) ([]domain.Album, error) {
		target := domain.Album{ReleaseYear: key.ReleaseYear, RecordNumber: key.RecordNumber, Name: key.Name}
		if k >= 1 {
			stored, err := h.catalog.GetAlbum(r.Context(), key)
			switch {
			case err == nil:
				target = stored
			case !errors.Is(err, domain.ErrNotFound):
				return nil, err
			}
		}
		return h.miner.MostSimilarAlbums(r.Context(), k, target)
	})
}

// HighestRated handles GET /mining/highest-rated?k=
func (h *Handler) HighestRated(w http.ResponseWriter, r *http.Request) {
	mine(w, r, "highestRated", func(k int) ([]domain.Album, error) {
		return h.miner.HighestRatedAlbums(r.Context(), k)
	})
}

// MostSelling handles GET /mining/most-selling?k=
func (h *Handler) MostSelling(w http.ResponseWriter, r *http.Request) {
	mine(w, r, "mostSelling", func(k int) ([]domain.Album, error) {
		return h.miner.MostSellingAlbums(r.Context(), k)
	})
}

// NextConcerts handles GET /mining/next-concerts?k=
func (h *Handler) NextConcerts(w http.ResponseWriter, r *http.Request) {
	mine(w, r, "nextConcerts", func(k int) ([]domain.Concert, error) {
		return h.miner.FindNextConcerts(r.Context(), k)
	})
}
