package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
	"github.com/ewilliams-labs/ecmcatalog/internal/logging"
	"github.com/ewilliams-labs/ecmcatalog/internal/metrics"
	"github.com/ewilliams-labs/ecmcatalog/internal/worker"
)

// Miner answers the catalogue mining queries.
type Miner interface {
	MostProlificMusicians(ctx context.Context, k, startYear, endYear int) ([]domain.Musician, error)
	MostTalentedMusicians(ctx context.Context, k int) ([]domain.Musician, error)
	MostSocialMusicians(ctx context.Context, k int) ([]domain.Musician, error)
	BusiestYears(ctx context.Context, k int) ([]int, error)
	MostSimilarAlbums(ctx context.Context, k int, album domain.Album) ([]domain.Album, error)
	HighestRatedAlbums(ctx context.Context, k int) ([]domain.Album, error)
	MostSellingAlbums(ctx context.Context, k int) ([]domain.Album, error)
	FindNextConcerts(ctx context.Context, k int) ([]domain.Concert, error)
}

// Catalog looks up individual catalogue entries.
type Catalog interface {
	GetMusician(ctx context.Context, name string) (domain.Musician, error)
	GetAlbum(ctx context.Context, key domain.AlbumKey) (domain.Album, error)
	SearchAlbums(ctx context.Context, query string) ([]domain.Album, error)
}

// Imports queues catalogue imports and reports their progress.
type Imports interface {
	Submit(source string, c domain.Catalogue) (string, error)
	Status(id string) (worker.Job, error)
}

// Feed fetches the remote catalogue on demand.
type Feed interface {
	FetchCatalogue(ctx context.Context) (domain.Catalogue, error)
}

// Options tunes the router.
type Options struct {
	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit   int
	CORSOrigins []string
	// Feed is optional; without it POST /imports/feed answers 501.
	Feed Feed
}

// Handler manages the HTTP interface for the catalogue.
type Handler struct {
	miner   Miner
	catalog Catalog
	imports Imports
	feed    Feed
	router  chi.Router
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(miner Miner, catalog Catalog, imports Imports, opts Options) *Handler {
	h := &Handler{
		miner:   miner,
		catalog: catalog,
		imports: imports,
		feed:    opts.Feed,
		router:  chi.NewRouter(),
	}
	h.routes(opts)
	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes(opts Options) {
	r := h.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestMetrics)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if opts.RateLimit > 0 {
			r.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))
		}

		r.Route("/mining", func(r chi.Router) {
			r.Get("/prolific", h.MostProlific)
			r.Get("/talented", h.MostTalented)
			r.Get("/social", h.MostSocial)
			r.Get("/busiest-years", h.BusiestYears)
			r.Get("/similar", h.MostSimilar)
			r.Get("/highest-rated", h.HighestRated)
			r.Get("/most-selling", h.MostSelling)
			r.Get("/next-concerts", h.NextConcerts)
		})

		r.Get("/musicians/{name}", h.GetMusician)
		r.Get("/albums", h.SearchAlbums)
		r.Get("/albums/lookup", h.GetAlbum)

		r.Post("/imports", h.SubmitImport)
		r.Post("/imports/feed", h.SyncFeed)
		r.Get("/imports/{id}", h.GetImport)
	})
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestMetrics records every request against its route pattern.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		took := time.Since(start)
		metrics.RecordAPIRequest(r.Method, pattern, status, took)
		logging.Debug().
			Str("method", r.Method).
			Str("route", pattern).
			Int("status", status).
			Dur("took", took).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
