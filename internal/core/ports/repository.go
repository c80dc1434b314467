package ports

import (
	"context"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
)

// CatalogReader loads complete snapshots of one entity type. Implementations
// return an empty slice, not an error, when nothing is stored.
type CatalogReader interface {
	LoadAllMusicians(ctx context.Context) ([]domain.Musician, error)
	LoadAllAlbums(ctx context.Context) ([]domain.Album, error)
	LoadAllMusicalInstruments(ctx context.Context) ([]domain.MusicalInstrument, error)
	LoadAllMusicianInstruments(ctx context.Context) ([]domain.MusicianInstrument, error)
	LoadAllTracks(ctx context.Context) ([]domain.Track, error)
	LoadAllRatings(ctx context.Context) ([]domain.Rating, error)
	LoadAllConcerts(ctx context.Context) ([]domain.Concert, error)
}

// CatalogFinder looks entities up by a single attribute. Every finder
// returns domain.ErrNotFound on a miss and the first match otherwise.
type CatalogFinder interface {
	FindMusicianByName(ctx context.Context, name string) (domain.Musician, error)
	FindMusicalInstrumentByName(ctx context.Context, name string) (domain.MusicalInstrument, error)
	FindAlbum(ctx context.Context, key domain.AlbumKey) (domain.Album, error)
	FindAlbumByName(ctx context.Context, name string) (domain.Album, error)
	FindAlbumByRecordNumber(ctx context.Context, recordNumber string) (domain.Album, error)
	FindAlbumByReleaseYear(ctx context.Context, year int) (domain.Album, error)
	FindAlbumBySales(ctx context.Context, sales int) (domain.Album, error)
	FindTrackByName(ctx context.Context, name string) (domain.Track, error)
	FindTrackByGenre(ctx context.Context, genre string) (domain.Track, error)
	FindTrackByTrackNumber(ctx context.Context, trackNumber int) (domain.Track, error)
	FindRatingBySource(ctx context.Context, source string) (domain.Rating, error)
	FindRatingByScore(ctx context.Context, score int) (domain.Rating, error)
}

// CatalogWriter creates or updates entities by key. Saving an entity also
// creates placeholder nodes for related entities that are not stored yet.
type CatalogWriter interface {
	SaveMusician(ctx context.Context, m domain.Musician) error
	SaveAlbum(ctx context.Context, a domain.Album) error
	SaveMusicalInstrument(ctx context.Context, mi domain.MusicalInstrument) error
	SaveMusicianInstrument(ctx context.Context, mi domain.MusicianInstrument) error
	SaveConcert(ctx context.Context, c domain.Concert) error
	DeleteMusician(ctx context.Context, key domain.MusicianKey) error
	DeleteAlbum(ctx context.Context, key domain.AlbumKey) error
	DeleteConcert(ctx context.Context, key domain.ConcertKey) error
}

// CatalogRepository is the full persistence port.
type CatalogRepository interface {
	CatalogReader
	CatalogFinder
	CatalogWriter
	Close() error
}
