package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
	"github.com/ewilliams-labs/ecmcatalog/internal/logging"
)

// HTTPServer matches the *http.Server lifecycle methods.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService wraps an HTTP server as a supervised service.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPServerService creates a new HTTP server service wrapper.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve runs ListenAndServe until ctx is cancelled, then shuts the server
// down gracefully.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// The serve context is already cancelled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string { return "http-server" }

// Fetcher fetches a catalogue from a remote source.
type Fetcher interface {
	FetchCatalogue(ctx context.Context) (domain.Catalogue, error)
}

// Submitter queues a catalogue import.
type Submitter interface {
	Submit(source string, c domain.Catalogue) (string, error)
}

// FeedSyncService fetches the remote catalogue on a fixed interval and
// queues each result for import. The first sync runs immediately.
type FeedSyncService struct {
	fetcher   Fetcher
	submitter Submitter
	interval  time.Duration
}

// NewFeedSyncService creates the periodic feed sync.
func NewFeedSyncService(fetcher Fetcher, submitter Submitter, interval time.Duration) *FeedSyncService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &FeedSyncService{fetcher: fetcher, submitter: submitter, interval: interval}
}

// Serve syncs until ctx is cancelled. Failed syncs are logged and retried
// on the next tick.
func (s *FeedSyncService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.SyncOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SyncOnce runs a single fetch and submit and returns the job ID, or an
// empty string when the sync failed.
func (s *FeedSyncService) SyncOnce(ctx context.Context) string {
	c, err := s.fetcher.FetchCatalogue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.Warn().Err(err).Msg("feed sync: fetch failed")
		}
		return ""
	}
	id, err := s.submitter.Submit("feed", c)
	if err != nil {
		logging.Warn().Err(err).Int("entities", c.Size()).Msg("feed sync: submit failed")
		return ""
	}
	logging.Info().Str("job", id).Int("entities", c.Size()).Msg("feed sync: import queued")
	return id
}

func (s *FeedSyncService) String() string { return "feed-sync" }
