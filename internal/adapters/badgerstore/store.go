// Package badgerstore implements the catalogue repository on an embedded
// BadgerDB. Each entity is one JSON document under a typed key prefix; a
// sequence number stored with the document preserves first-insert order,
// which Badger's sorted key space would otherwise lose.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
	"github.com/ewilliams-labs/ecmcatalog/internal/core/ports"
)

// Key prefixes for BadgerDB storage
const (
	musicianPrefix   = "musician:"
	albumPrefix      = "album:"
	instrumentPrefix = "instrument:"
	pairingPrefix    = "pairing:"
	concertPrefix    = "concert:"
	sequenceKey      = "meta:seq"
)

var _ ports.CatalogRepository = (*Store)(nil)

// record wraps a stored document with its insertion sequence.
type record[T any] struct {
	Seq  uint64 `json:"seq"`
	Data T      `json:"data"`
}

type entry[T any] struct {
	key string
	rec record[T]
}

// Store is a BadgerDB-backed catalogue repository.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Open opens or creates a store at path. An empty path keeps everything in
// memory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB internal logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence([]byte(sequenceKey), 128)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("lease sequence: %w", err)
	}
	return &Store{db: db, seq: seq}, nil
}

// Close releases the sequence lease and closes the database.
func (s *Store) Close() error {
	relErr := s.seq.Release()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	if relErr != nil {
		return fmt.Errorf("release sequence: %w", relErr)
	}
	return nil
}

func musicianKey(name string) string { return musicianPrefix + name }
func albumKey(k domain.AlbumKey) string { return albumPrefix + k.String() }
func instrumentKey(name string) string { return instrumentPrefix + name }
func pairingKey(id string) string { return pairingPrefix + id }
func concertKey(k domain.ConcertKey) string { return concertPrefix + k.String() }

func read[T any](txn *badger.Txn, key string) (record[T], bool, error) {
	var rec record[T]
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return rec, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return rec, true, nil
}

func write[T any](txn *badger.Txn, key string, rec record[T]) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// list returns every document under prefix in insertion order.
func list[T any](txn *badger.Txn, prefix string) ([]entry[T], error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []entry[T]
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		e := entry[T]{key: string(item.KeyCopy(nil))}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e.rec)
		}); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.key, err)
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].rec.Seq < out[j].rec.Seq })
	return out, nil
}

func values[T any](entries []entry[T]) []T {
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.rec.Data)
	}
	return out
}

// upsert writes data under key, keeping the original sequence of an
// existing document.
func upsert[T any](s *Store, txn *badger.Txn, key string, data T) error {
	existing, ok, err := read[T](txn, key)
	if err != nil {
		return err
	}
	seq := existing.Seq
	if !ok {
		if seq, err = s.seq.Next(); err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
	}
	return write(txn, key, record[T]{Seq: seq, Data: data})
}

// ensure creates a placeholder document when key is absent.
func ensure[T any](s *Store, txn *badger.Txn, key string, placeholder T) error {
	_, ok, err := read[T](txn, key)
	if err != nil || ok {
		return err
	}
	seq, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	return write(txn, key, record[T]{Seq: seq, Data: placeholder})
}

func placeholderMusician(name string) domain.Musician {
	return domain.Musician{Name: name, Albums: []domain.AlbumKey{}}
}

func placeholderAlbum(k domain.AlbumKey) domain.Album {
	return domain.Album{
		ReleaseYear:       k.ReleaseYear,
		RecordNumber:      k.RecordNumber,
		Name:              k.Name,
		FeaturedMusicians: []domain.MusicianKey{},
		Instruments:       []domain.MusicianInstrument{},
		Tracks:            []domain.Track{},
		Ratings:           []domain.Rating{},
	}
}

// SaveMusician upserts the musician and creates placeholder albums.
func (s *Store) SaveMusician(ctx context.Context, m domain.Musician) error {
	if m.Albums == nil {
		m.Albums = []domain.AlbumKey{}
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range m.Albums {
			if err := ensure(s, txn, albumKey(k), placeholderAlbum(k)); err != nil {
				return err
			}
		}
		return upsert(s, txn, musicianKey(m.Name), m)
	})
}

// SaveAlbum upserts the album and creates placeholder musicians and
// instruments for its credits.
func (s *Store) SaveAlbum(ctx context.Context, a domain.Album) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, mk := range a.FeaturedMusicians {
			if err := ensure(s, txn, musicianKey(mk.Name), placeholderMusician(mk.Name)); err != nil {
				return err
			}
		}
		for _, mi := range a.Instruments {
			if err := s.savePairing(txn, mi); err != nil {
				return err
			}
		}
		return upsert(s, txn, albumKey(a.Key()), a)
	})
}

// SaveMusicalInstrument stores the instrument if it is new.
func (s *Store) SaveMusicalInstrument(ctx context.Context, mi domain.MusicalInstrument) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return ensure(s, txn, instrumentKey(mi.Name), mi)
	})
}

// SaveMusicianInstrument stores the pairing with placeholder nodes.
func (s *Store) SaveMusicianInstrument(ctx context.Context, mi domain.MusicianInstrument) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return s.savePairing(txn, mi)
	})
}

func (s *Store) savePairing(txn *badger.Txn, mi domain.MusicianInstrument) error {
	if err := ensure(s, txn, musicianKey(mi.Musician.Name), placeholderMusician(mi.Musician.Name)); err != nil {
		return err
	}
	for _, in := range mi.Instruments {
		if err := ensure(s, txn, instrumentKey(in.Name), in); err != nil {
			return err
		}
	}
	return upsert(s, txn, pairingKey(mi.Key()), mi)
}

// SaveConcert upserts the concert and creates placeholder musicians.
func (s *Store) SaveConcert(ctx context.Context, c domain.Concert) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, mk := range c.FeaturedMusicians {
			if err := ensure(s, txn, musicianKey(mk.Name), placeholderMusician(mk.Name)); err != nil {
				return err
			}
		}
		return upsert(s, txn, concertKey(c.Key()), c)
	})
}

// DeleteMusician removes the musician and detaches it from albums,
// pairings and concerts.
func (s *Store) DeleteMusician(ctx context.Context, key domain.MusicianKey) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := remove(txn, musicianKey(key.Name)); err != nil {
			return err
		}

		albums, err := list[domain.Album](txn, albumPrefix)
		if err != nil {
			return err
		}
		for _, e := range albums {
			a := e.rec.Data
			credits := make([]domain.MusicianKey, 0, len(a.FeaturedMusicians))
			for _, mk := range a.FeaturedMusicians {
				if mk != key {
					credits = append(credits, mk)
				}
			}
			pairings := make([]domain.MusicianInstrument, 0, len(a.Instruments))
			for _, mi := range a.Instruments {
				if mi.Musician.Key() != key {
					pairings = append(pairings, mi)
				}
			}
			if len(credits) == len(a.FeaturedMusicians) && len(pairings) == len(a.Instruments) {
				continue
			}
			a.FeaturedMusicians, a.Instruments = credits, pairings
			if err := write(txn, e.key, record[domain.Album]{Seq: e.rec.Seq, Data: a}); err != nil {
				return err
			}
		}

		pairings, err := list[domain.MusicianInstrument](txn, pairingPrefix)
		if err != nil {
			return err
		}
		for _, e := range pairings {
			if e.rec.Data.Musician.Key() == key {
				if err := txn.Delete([]byte(e.key)); err != nil {
					return fmt.Errorf("delete %s: %w", e.key, err)
				}
			}
		}

		concerts, err := list[domain.Concert](txn, concertPrefix)
		if err != nil {
			return err
		}
		for _, e := range concerts {
			c := e.rec.Data
			lineup := make([]domain.MusicianKey, 0, len(c.FeaturedMusicians))
			for _, mk := range c.FeaturedMusicians {
				if mk != key {
					lineup = append(lineup, mk)
				}
			}
			if len(lineup) == len(c.FeaturedMusicians) {
				continue
			}
			c.FeaturedMusicians = lineup
			if err := write(txn, e.key, record[domain.Concert]{Seq: e.rec.Seq, Data: c}); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteAlbum removes the album and drops it from every musician.
func (s *Store) DeleteAlbum(ctx context.Context, key domain.AlbumKey) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := remove(txn, albumKey(key)); err != nil {
			return err
		}
		musicians, err := list[domain.Musician](txn, musicianPrefix)
		if err != nil {
			return err
		}
		for _, e := range musicians {
			m := e.rec.Data
			if !m.HasAlbum(key) {
				continue
			}
			kept := make([]domain.AlbumKey, 0, len(m.Albums))
			for _, k := range m.Albums {
				if k != key {
					kept = append(kept, k)
				}
			}
			m.Albums = kept
			if err := write(txn, e.key, record[domain.Musician]{Seq: e.rec.Seq, Data: m}); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteConcert removes the concert.
func (s *Store) DeleteConcert(ctx context.Context, key domain.ConcertKey) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return remove(txn, concertKey(key))
	})
}

func remove(txn *badger.Txn, key string) error {
	if _, err := txn.Get([]byte(key)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := txn.Delete([]byte(key)); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
