package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
	"github.com/ewilliams-labs/ecmcatalog/internal/core/ports"
	"github.com/ewilliams-labs/ecmcatalog/internal/logging"
)

// CatalogService coordinates catalogue imports and lookups against the
// repository.
type CatalogService struct {
	repo ports.CatalogRepository
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(repo ports.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// Rejection records an entity skipped during import.
type Rejection struct {
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// ImportReport counts what an import persisted.
type ImportReport struct {
	Instruments         int         `json:"instruments"`
	Albums              int         `json:"albums"`
	Musicians           int         `json:"musicians"`
	MusicianInstruments int         `json:"musician_instruments"`
	Concerts            int         `json:"concerts"`
	Rejected            []Rejection `json:"rejected,omitempty"`
}

// Saved is the number of entities written.
func (r ImportReport) Saved() int {
	return r.Instruments + r.Albums + r.Musicians + r.MusicianInstruments + r.Concerts
}

// ImportCatalogue persists a batch. Instruments go first, then albums,
// musicians, musician instruments and concerts, so references resolve to
// full nodes where the batch carries them. Entities failing validation are
// skipped and listed in the report; a repository error aborts the import.
func (s *CatalogService) ImportCatalogue(ctx context.Context, c domain.Catalogue) (ImportReport, error) {
	var report ImportReport
	reject := func(kind, key string, err error) {
		report.Rejected = append(report.Rejected, Rejection{Kind: kind, Key: key, Reason: err.Error()})
	}

	for _, in := range c.Instruments {
		if err := in.Validate(); err != nil {
			reject("instrument", in.Name, err)
			continue
		}
		if err := s.repo.SaveMusicalInstrument(ctx, in); err != nil {
			return report, fmt.Errorf("service: failed to save instrument %q: %w", in.Name, err)
		}
		report.Instruments++
	}

	for _, a := range c.Albums {
		if err := a.Validate(); err != nil {
			reject("album", a.Key().String(), err)
			continue
		}
		if err := s.repo.SaveAlbum(ctx, a); err != nil {
			return report, fmt.Errorf("service: failed to save album %s: %w", a.Key(), err)
		}
		report.Albums++
	}

	for _, m := range c.Musicians {
		if err := m.Validate(); err != nil {
			reject("musician", m.Name, err)
			continue
		}
		if err := s.repo.SaveMusician(ctx, m); err != nil {
			return report, fmt.Errorf("service: failed to save musician %q: %w", m.Name, err)
		}
		report.Musicians++
	}

	for _, mi := range c.MusicianInstruments {
		if err := mi.Validate(); err != nil {
			reject("musician_instrument", mi.Key(), err)
			continue
		}
		if err := s.repo.SaveMusicianInstrument(ctx, mi); err != nil {
			return report, fmt.Errorf("service: failed to save musician instrument %q: %w", mi.Key(), err)
		}
		report.MusicianInstruments++
	}

	for _, con := range c.Concerts {
		if err := con.Validate(); err != nil {
			reject("concert", con.Key().String(), err)
			continue
		}
		if err := s.repo.SaveConcert(ctx, con); err != nil {
			return report, fmt.Errorf("service: failed to save concert %s: %w", con.Key(), err)
		}
		report.Concerts++
	}

	logging.Info().
		Int("saved", report.Saved()).
		Int("rejected", len(report.Rejected)).
		Msg("catalogue imported")
	return report, nil
}

// GetMusician returns the musician with the given name.
func (s *CatalogService) GetMusician(ctx context.Context, name string) (domain.Musician, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Musician{}, domain.Invalid("get musician", "name is empty")
	}
	m, err := s.repo.FindMusicianByName(ctx, name)
	if err != nil {
		return domain.Musician{}, fmt.Errorf("service: failed to load musician %q: %w", name, err)
	}
	return m, nil
}

// GetAlbum returns the album stored under key.
func (s *CatalogService) GetAlbum(ctx context.Context, key domain.AlbumKey) (domain.Album, error) {
	a, err := s.repo.FindAlbum(ctx, key)
	if err != nil {
		return domain.Album{}, fmt.Errorf("service: failed to load album %s: %w", key, err)
	}
	return a, nil
}

// SearchAlbums returns albums whose name contains query, ignoring case, in
// repository order. An empty query matches every album.
func (s *CatalogService) SearchAlbums(ctx context.Context, query string) ([]domain.Album, error) {
	albums, err := s.repo.LoadAllAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load albums: %w", err)
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Album, 0, len(albums))
	for _, a := range albums {
		if needle == "" || strings.Contains(strings.ToLower(a.Name), needle) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Snapshot loads the whole stored catalogue, the inverse of ImportCatalogue.
func (s *CatalogService) Snapshot(ctx context.Context) (domain.Catalogue, error) {
	var (
		c   domain.Catalogue
		err error
	)
	if c.Instruments, err = s.repo.LoadAllMusicalInstruments(ctx); err != nil {
		return domain.Catalogue{}, fmt.Errorf("service: failed to load instruments: %w", err)
	}
	if c.Albums, err = s.repo.LoadAllAlbums(ctx); err != nil {
		return domain.Catalogue{}, fmt.Errorf("service: failed to load albums: %w", err)
	}
	if c.Musicians, err = s.repo.LoadAllMusicians(ctx); err != nil {
		return domain.Catalogue{}, fmt.Errorf("service: failed to load musicians: %w", err)
	}
	if c.MusicianInstruments, err = s.repo.LoadAllMusicianInstruments(ctx); err != nil {
		return domain.Catalogue{}, fmt.Errorf("service: failed to load musician instruments: %w", err)
	}
	if c.Concerts, err = s.repo.LoadAllConcerts(ctx); err != nil {
		return domain.Catalogue{}, fmt.Errorf("service: failed to load concerts: %w", err)
	}
	return c, nil
}
