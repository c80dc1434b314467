package sqlite

import (
	"context"
	"fmt"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
)

func (a *Adapter) LoadAllMusicians(ctx context.Context) ([]domain.Musician, error) {
	return a.loadMusicians(ctx, "")
}

func (a *Adapter) LoadAllAlbums(ctx context.Context) ([]domain.Album, error) {
	return a.loadAlbums(ctx, "")
}

func (a *Adapter) LoadAllMusicalInstruments(ctx context.Context) ([]domain.MusicalInstrument, error) {
	rows, err := a.db.QueryContext(ctx, "SELECT name FROM instruments ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to load instruments: %w", err)
	}
	defer rows.Close()

	instruments := []domain.MusicalInstrument{}
	for rows.Next() {
		var in domain.MusicalInstrument
		if err := rows.Scan(&in.Name); err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		instruments = append(instruments, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instruments: %w", err)
	}
	return instruments, nil
}

func (a *Adapter) LoadAllMusicianInstruments(ctx context.Context) ([]domain.MusicianInstrument, error) {
	mis, _, err := a.loadMusicianInstruments(ctx, "")
	return mis, err
}

func (a *Adapter) LoadAllTracks(ctx context.Context) ([]domain.Track, error) {
	return a.loadTracks(ctx, "")
}

func (a *Adapter) LoadAllRatings(ctx context.Context) ([]domain.Rating, error) {
	return a.loadRatings(ctx, "")
}

func (a *Adapter) LoadAllConcerts(ctx context.Context) ([]domain.Concert, error) {
	return a.loadConcerts(ctx, "")
}

func (a *Adapter) FindMusicianByName(ctx context.Context, name string) (domain.Musician, error) {
	musicians, err := a.loadMusicians(ctx, "WHERE m.name = ?", name)
	if err != nil {
		return domain.Musician{}, err
	}
	if len(musicians) == 0 {
		return domain.Musician{}, domain.ErrNotFound
	}
	return musicians[0], nil
}

func (a *Adapter) FindMusicalInstrumentByName(ctx context.Context, name string) (domain.MusicalInstrument, error) {
	var in domain.MusicalInstrument
	if err := a.db.QueryRowContext(ctx, "SELECT name FROM instruments WHERE name = ?", name).Scan(&in.Name); err != nil {
		if notFound(err) {
			return domain.MusicalInstrument{}, domain.ErrNotFound
		}
		return domain.MusicalInstrument{}, fmt.Errorf("failed to load instrument: %w", err)
	}
	return in, nil
}

func (a *Adapter) FindAlbum(ctx context.Context, key domain.AlbumKey) (domain.Album, error) {
	return a.firstAlbum(ctx, "a.id = ?", albumID(key))
}

func (a *Adapter) FindAlbumByName(ctx context.Context, name string) (domain.Album, error) {
	return a.firstAlbum(ctx, "a.name = ?", name)
}

func (a *Adapter) FindAlbumByRecordNumber(ctx context.Context, recordNumber string) (domain.Album, error) {
	return a.firstAlbum(ctx, "a.record_number = ?", recordNumber)
}

func (a *Adapter) FindAlbumByReleaseYear(ctx context.Context, year int) (domain.Album, error) {
	return a.firstAlbum(ctx, "a.release_year = ?", year)
}

func (a *Adapter) FindAlbumBySales(ctx context.Context, sales int) (domain.Album, error) {
	return a.firstAlbum(ctx, "a.sales = ?", sales)
}

// firstAlbum resolves the earliest stored album matching cond.
func (a *Adapter) firstAlbum(ctx context.Context, cond string, arg any) (domain.Album, error) {
	var id string
	err := a.db.QueryRowContext(ctx,
		"SELECT a.id FROM albums a WHERE "+cond+" ORDER BY a.rowid LIMIT 1", arg,
	).Scan(&id)
	if err != nil {
		if notFound(err) {
			return domain.Album{}, domain.ErrNotFound
		}
		return domain.Album{}, fmt.Errorf("failed to find album: %w", err)
	}
	albums, err := a.loadAlbums(ctx, "WHERE a.id = ?", id)
	if err != nil {
		return domain.Album{}, err
	}
	if len(albums) == 0 {
		return domain.Album{}, domain.ErrNotFound
	}
	return albums[0], nil
}

func (a *Adapter) FindTrackByName(ctx context.Context, name string) (domain.Track, error) {
	return a.firstTrack(ctx, "WHERE t.name = ?", name)
}

func (a *Adapter) FindTrackByGenre(ctx context.Context, genre string) (domain.Track, error) {
	return a.firstTrack(ctx, "WHERE t.genre = ?", genre)
}

func (a *Adapter) FindTrackByTrackNumber(ctx context.Context, trackNumber int) (domain.Track, error) {
	return a.firstTrack(ctx, "WHERE t.track_number = ?", trackNumber)
}

func (a *Adapter) firstTrack(ctx context.Context, where string, arg any) (domain.Track, error) {
	tracks, err := a.loadTracks(ctx, where, arg)
	if err != nil {
		return domain.Track{}, err
	}
	if len(tracks) == 0 {
		return domain.Track{}, domain.ErrNotFound
	}
	return tracks[0], nil
}

func (a *Adapter) FindRatingBySource(ctx context.Context, source string) (domain.Rating, error) {
	return a.firstRating(ctx, "WHERE r.source = ?", source)
}

func (a *Adapter) FindRatingByScore(ctx context.Context, score int) (domain.Rating, error) {
	return a.firstRating(ctx, "WHERE r.score = ?", score)
}

func (a *Adapter) firstRating(ctx context.Context, where string, arg any) (domain.Rating, error) {
	ratings, err := a.loadRatings(ctx, where, arg)
	if err != nil {
		return domain.Rating{}, err
	}
	if len(ratings) == 0 {
		return domain.Rating{}, domain.ErrNotFound
	}
	return ratings[0], nil
}
