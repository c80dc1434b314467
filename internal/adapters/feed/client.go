// Package feed pulls the catalogue from a remote HTTP feed that serves a
// catalogue document as JSON or YAML.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ewilliams-labs/ecmcatalog/internal/adapters/catalogfile"
	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
	"github.com/ewilliams-labs/ecmcatalog/internal/logging"
)

const maxDocumentBytes = 32 << 20

// Config configures the feed client. When ClientID is set requests carry an
// OAuth2 client-credentials token from TokenURL.
type Config struct {
	URL          string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
	MaxRetries   int
	Backoff      time.Duration
	Breaker      BreakerSettings
}

// Client fetches catalogue documents.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxRetries  int
	baseBackoff time.Duration
	breaker     *Breaker
}

// NewClient constructs a feed client. A nil base uses a client with
// cfg.Timeout.
func NewClient(ctx context.Context, base *http.Client, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, domain.Invalid("feed client", "url is required")
	}
	if base == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		base = &http.Client{Timeout: timeout}
	}

	httpClient := base
	if cfg.ClientID != "" {
		if cfg.TokenURL == "" {
			return nil, domain.Invalid("feed client", "token url is required with client credentials")
		}
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		httpClient = cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
		httpClient.Timeout = base.Timeout
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     cfg.URL,
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.Backoff,
		breaker:     NewBreaker(cfg.Breaker),
	}, nil
}

// FetchCatalogue downloads and decodes the feed document. Invalid documents
// wrap domain.ErrInvalidArgument; an open breaker returns ErrUnavailable.
func (c *Client) FetchCatalogue(ctx context.Context) (domain.Catalogue, error) {
	return c.breaker.Execute(func() (domain.Catalogue, error) {
		return c.fetch(ctx)
	})
}

// BreakerState reports the feed circuit breaker state.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

func (c *Client) fetch(ctx context.Context) (domain.Catalogue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return domain.Catalogue{}, fmt.Errorf("feed adapter: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9")

	start := time.Now()
	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return domain.Catalogue{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Catalogue{}, fmt.Errorf("feed adapter: status %d", resp.StatusCode)
	}

	codec, body, err := catalogfile.ForContent(resp.Header.Get("Content-Type"), io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return domain.Catalogue{}, fmt.Errorf("feed adapter: %w", err)
	}
	catalogue, err := catalogfile.Decode(codec, body)
	if err != nil {
		return domain.Catalogue{}, fmt.Errorf("feed adapter: %w", err)
	}

	logging.Info().
		Str("format", codec.Format()).
		Int("entities", catalogue.Size()).
		Dur("took", time.Since(start)).
		Msg("catalogue feed fetched")
	return catalogue, nil
}
