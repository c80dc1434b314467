package badgerstore

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
)

func loadAll[T any](s *Store, prefix string) ([]T, error) {
	var out []T
	err := s.db.View(func(txn *badger.Txn) error {
		entries, err := list[T](txn, prefix)
		if err != nil {
			return err
		}
		out = values(entries)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// first returns the earliest stored document under prefix matching keep.
func first[T any](s *Store, prefix string, keep func(T) bool) (T, error) {
	var zero T
	all, err := loadAll[T](s, prefix)
	if err != nil {
		return zero, err
	}
	for _, v := range all {
		if keep(v) {
			return v, nil
		}
	}
	return zero, domain.ErrNotFound
}

func (s *Store) LoadAllMusicians(ctx context.Context) ([]domain.Musician, error) {
	return loadAll[domain.Musician](s, musicianPrefix)
}

func (s *Store) LoadAllAlbums(ctx context.Context) ([]domain.Album, error) {
	return loadAll[domain.Album](s, albumPrefix)
}

func (s *Store) LoadAllMusicalInstruments(ctx context.Context) ([]domain.MusicalInstrument, error) {
	return loadAll[domain.MusicalInstrument](s, instrumentPrefix)
}

func (s *Store) LoadAllMusicianInstruments(ctx context.Context) ([]domain.MusicianInstrument, error) {
	return loadAll[domain.MusicianInstrument](s, pairingPrefix)
}

// LoadAllTracks flattens album track lists, keeping the first copy of each
// track key.
func (s *Store) LoadAllTracks(ctx context.Context) ([]domain.Track, error) {
	albums, err := s.LoadAllAlbums(ctx)
	if err != nil {
		return nil, err
	}
	tracks := []domain.Track{}
	seen := map[domain.TrackKey]struct{}{}
	for _, a := range albums {
		for _, t := range a.Tracks {
			if _, dup := seen[t.Key()]; dup {
				continue
			}
			seen[t.Key()] = struct{}{}
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

func (s *Store) LoadAllRatings(ctx context.Context) ([]domain.Rating, error) {
	albums, err := s.LoadAllAlbums(ctx)
	if err != nil {
		return nil, err
	}
	ratings := []domain.Rating{}
	for _, a := range albums {
		ratings = append(ratings, a.Ratings...)
	}
	return ratings, nil
}

func (s *Store) LoadAllConcerts(ctx context.Context) ([]domain.Concert, error) {
	return loadAll[domain.Concert](s, concertPrefix)
}

func (s *Store) FindMusicianByName(ctx context.Context, name string) (domain.Musician, error) {
	var m domain.Musician
	err := s.db.View(func(txn *badger.Txn) error {
		rec, ok, err := read[domain.Musician](txn, musicianKey(name))
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		m = rec.Data
		return nil
	})
	return m, err
}

func (s *Store) FindMusicalInstrumentByName(ctx context.Context, name string) (domain.MusicalInstrument, error) {
	var in domain.MusicalInstrument
	err := s.db.View(func(txn *badger.Txn) error {
		rec, ok, err := read[domain.MusicalInstrument](txn, instrumentKey(name))
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		in = rec.Data
		return nil
	})
	return in, err
}

func (s *Store) FindAlbum(ctx context.Context, key domain.AlbumKey) (domain.Album, error) {
	var a domain.Album
	err := s.db.View(func(txn *badger.Txn) error {
		rec, ok, err := read[domain.Album](txn, albumKey(key))
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		a = rec.Data
		return nil
	})
	return a, err
}

func (s *Store) FindAlbumByName(ctx context.Context, name string) (domain.Album, error) {
	return first(s, albumPrefix, func(a domain.Album) bool { return a.Name == name })
}

func (s *Store) FindAlbumByRecordNumber(ctx context.Context, recordNumber string) (domain.Album, error) {
	return first(s, albumPrefix, func(a domain.Album) bool { return a.RecordNumber == recordNumber })
}

func (s *Store) FindAlbumByReleaseYear(ctx context.Context, year int) (domain.Album, error) {
	return first(s, albumPrefix, func(a domain.Album) bool { return a.ReleaseYear == year })
}

func (s *Store) FindAlbumBySales(ctx context.Context, sales int) (domain.Album, error) {
	return first(s, albumPrefix, func(a domain.Album) bool { return a.Sales == sales })
}

func (s *Store) findTrack(ctx context.Context, keep func(domain.Track) bool) (domain.Track, error) {
	tracks, err := s.LoadAllTracks(ctx)
	if err != nil {
		return domain.Track{}, err
	}
	for _, t := range tracks {
		if keep(t) {
			return t, nil
		}
	}
	return domain.Track{}, domain.ErrNotFound
}

func (s *Store) FindTrackByName(ctx context.Context, name string) (domain.Track, error) {
	return s.findTrack(ctx, func(t domain.Track) bool { return t.Name == name })
}

func (s *Store) FindTrackByGenre(ctx context.Context, genre string) (domain.Track, error) {
	return s.findTrack(ctx, func(t domain.Track) bool { return t.Genre == genre })
}

func (s *Store) FindTrackByTrackNumber(ctx context.Context, trackNumber int) (domain.Track, error) {
	return s.findTrack(ctx, func(t domain.Track) bool { return t.TrackNumber == trackNumber })
}

func (s *Store) findRating(ctx context.Context, keep func(domain.Rating) bool) (domain.Rating, error) {
	ratings, err := s.LoadAllRatings(ctx)
	if err != nil {
		return domain.Rating{}, err
	}
	for _, r := range ratings {
		if keep(r) {
			return r, nil
		}
	}
	return domain.Rating{}, domain.ErrNotFound
}

func (s *Store) FindRatingBySource(ctx context.Context, source string) (domain.Rating, error) {
	return s.findRating(ctx, func(r domain.Rating) bool { return r.Source == source })
}

func (s *Store) FindRatingByScore(ctx context.Context, score int) (domain.Rating, error) {
	return s.findRating(ctx, func(r domain.Rating) bool { return r.Score == score })
}
