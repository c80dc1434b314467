package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
	"github.com/ewilliams-labs/ecmcatalog/internal/core/ports"
	"github.com/ewilliams-labs/ecmcatalog/internal/core/ranking"
	"github.com/ewilliams-labs/ecmcatalog/internal/logging"
)

// Miner answers analytical queries over the whole catalogue. It holds no
// state between calls: every query loads fresh snapshots from the
// repository and computes its answer in memory.
type Miner struct {
	repo ports.CatalogReader
	now  func() time.Time
}

// NewMiner constructs a Miner reading from repo.
func NewMiner(repo ports.CatalogReader) *Miner {
	return &Miner{repo: repo, now: time.Now}
}

// MostProlificMusicians ranks musicians by the number of their albums
// released between startYear and endYear inclusive. A bound <= 0 is ignored.
// Musicians without a qualifying album are never ranked, and k is a soft cap.
func (m *Miner) MostProlificMusicians(ctx context.Context, k, startYear, endYear int) ([]domain.Musician, error) {
	start := time.Now()
	musicians, err := m.repo.LoadAllMusicians(ctx)
	if err != nil {
		return nil, fmt.Errorf("miner: load musicians: %w", err)
	}

	board := ranking.NewBoard[domain.MusicianKey, domain.Musician](len(musicians))
	counted := make(map[domain.MusicianKey]map[domain.AlbumKey]struct{}, len(musicians))
	for _, mu := range musicians {
		key := mu.Key()
		if counted[key] == nil {
			counted[key] = make(map[domain.AlbumKey]struct{}, len(mu.Albums))
		}
		for _, album := range mu.Albums {
			if !withinYears(album.ReleaseYear, startYear, endYear) {
				continue
			}
			if _, dup := counted[key][album]; dup {
				continue
			}
			counted[key][album] = struct{}{}
			board.Add(key, mu, 1)
		}
	}

	result := ranking.Head(board.Ranked(), k)
	trace("most_prolific_musicians", start, len(result))
	return result, nil
}

func withinYears(year, startYear, endYear int) bool {
	if startYear > 0 && year < startYear {
		return false
	}
	if endYear > 0 && year > endYear {
		return false
	}
	return true
}

// MostTalentedMusicians ranks musicians by how many distinct instruments
// they play. k must be between 1 and the number of musician-instrument
// records. Records for the same musician are merged before ranking.
func (m *Miner) MostTalentedMusicians(ctx context.Context, k int) ([]domain.Musician, error) {
	const op = "most talented musicians"
	start := time.Now()
	if k < 1 {
		return nil, domain.Invalid(op, "k must be at least 1, got %d", k)
	}
	records, err := m.repo.LoadAllMusicianInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("miner: load musician instruments: %w", err)
	}
	if k > len(records) {
		return nil, domain.Invalid(op, "k=%d exceeds %d musician instrument records", k, len(records))
	}

	played := make(map[domain.MusicianKey]map[domain.MusicalInstrument]struct{}, len(records))
	board := ranking.NewBoard[domain.MusicianKey, domain.Musician](len(records))
	for _, rec := range records {
		key := rec.Musician.Key()
		set := played[key]
		if set == nil {
			set = make(map[domain.MusicalInstrument]struct{}, len(rec.Instruments))
			played[key] = set
		}
		for _, in := range rec.Instruments {
			set[in] = struct{}{}
		}
		board.Set(key, rec.Musician, float64(len(set)))
	}

	result := ranking.Head(board.Ranked(), k)
	trace("most_talented_musicians", start, len(result))
	return result, nil
}

// MostSocialMusicians ranks musicians by the number of distinct other
// musicians they share at least one album with. k must be between 1 and
// the number of musicians.
func (m *Miner) MostSocialMusicians(ctx context.Context, k int) ([]domain.Musician, error) {
	const op = "most social musicians"
	start := time.Now()
	if k < 1 {
		return nil, domain.Invalid(op, "k must be at least 1, got %d", k)
	}
	musicians, err := m.repo.LoadAllMusicians(ctx)
	if err != nil {
		return nil, fmt.Errorf("miner: load musicians: %w", err)
	}
	if k > len(musicians) {
		return nil, domain.Invalid(op, "k=%d exceeds %d musicians", k, len(musicians))
	}

	// album -> musicians owning it, built in one pass
	owners := make(map[domain.AlbumKey][]domain.MusicianKey)
	owned := make(map[domain.AlbumKey]map[domain.MusicianKey]struct{})
	for _, mu := range musicians {
		key := mu.Key()
		for _, album := range mu.Albums {
			if owned[album] == nil {
				owned[album] = make(map[domain.MusicianKey]struct{})
			}
			if _, dup := owned[album][key]; dup {
				continue
			}
			owned[album][key] = struct{}{}
			owners[album] = append(owners[album], key)
		}
	}

	collaborators := make(map[domain.MusicianKey]map[domain.MusicianKey]struct{}, len(musicians))
	board := ranking.NewBoard[domain.MusicianKey, domain.Musician](len(musicians))
	for _, mu := range musicians {
		key := mu.Key()
		set := collaborators[key]
		if set == nil {
			set = make(map[domain.MusicianKey]struct{})
			collaborators[key] = set
		}
		for _, album := range mu.Albums {
			for _, other := range owners[album] {
				if other != key {
					set[other] = struct{}{}
				}
			}
		}
		board.Set(key, mu, float64(len(set)))
	}

	result := ranking.Head(board.Ranked(), k)
	trace("most_social_musicians", start, len(result))
	return result, nil
}

// BusiestYears ranks release years by album count. k must be at least 1;
// fewer years are returned when the catalogue spans fewer than k years.
func (m *Miner) BusiestYears(ctx context.Context, k int) ([]int, error) {
	start := time.Now()
	if k < 1 {
		return nil, domain.Invalid("busiest years", "k must be at least 1, got %d", k)
	}
	albums, err := m.repo.LoadAllAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("miner: load albums: %w", err)
	}

	board := ranking.NewBoard[int, int](len(albums))
	for _, a := range uniqueAlbums(albums) {
		board.Add(a.ReleaseYear, a.ReleaseYear, 1)
	}

	result := ranking.Head(board.Ranked(), k)
	trace("busiest_years", start, len(result))
	return result, nil
}

// MostSimilarAlbums ranks the other albums by similarity to target: two
// points per featured musician they share and one point for a shared
// release year. target must be stored in the catalogue and is excluded from
// its own results; k must be between 1 and the number of remaining albums.
func (m *Miner) MostSimilarAlbums(ctx context.Context, k int, target domain.Album) ([]domain.Album, error) {
	const op = "most similar albums"
	start := time.Now()
	if k < 1 {
		return nil, domain.Invalid(op, "k must be at least 1, got %d", k)
	}
	albums, err := m.repo.LoadAllAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("miner: load albums: %w", err)
	}

	targetKey := target.Key()
	found := false
	pool := make([]domain.Album, 0, len(albums))
	for _, a := range uniqueAlbums(albums) {
		if a.Key() == targetKey {
			found = true
			continue
		}
		pool = append(pool, a)
	}
	if !found {
		return nil, domain.Invalid(op, "album %s is not in the catalogue", targetKey)
	}
	if k > len(pool) {
		return nil, domain.Invalid(op, "k=%d exceeds %d candidate albums", k, len(pool))
	}

	credited := make(map[domain.MusicianKey]struct{}, len(target.FeaturedMusicians))
	for _, mk := range target.FeaturedMusicians {
		credited[mk] = struct{}{}
	}

	board := ranking.NewBoard[domain.AlbumKey, domain.Album](len(pool))
	for _, a := range pool {
		board.Set(a.Key(), a, float64(similarity(credited, target.ReleaseYear, a)))
	}

	result, err := ranking.TopK(board.Ranked(), k)
	if err != nil {
		return nil, err
	}
	trace("most_similar_albums", start, len(result))
	return result, nil
}

func similarity(credited map[domain.MusicianKey]struct{}, year int, candidate domain.Album) int {
	score := 0
	seen := make(map[domain.MusicianKey]struct{}, len(candidate.FeaturedMusicians))
	for _, mk := range candidate.FeaturedMusicians {
		if _, dup := seen[mk]; dup {
			continue
		}
		seen[mk] = struct{}{}
		if _, ok := credited[mk]; ok {
			score += 2
		}
	}
	if candidate.ReleaseYear == year {
		score++
	}
	return score
}

// HighestRatedAlbums ranks albums by mean rating score. Unrated albums are
// left out, so fewer than k albums may come back. k must be between 1 and
// the number of albums.
func (m *Miner) HighestRatedAlbums(ctx context.Context, k int) ([]domain.Album, error) {
	const op = "highest rated albums"
	start := time.Now()
	albums, err := m.loadAlbumsForTopK(ctx, op, k)
	if err != nil {
		return nil, err
	}

	board := ranking.NewBoard[domain.AlbumKey, domain.Album](len(albums))
	for _, a := range albums {
		if mean, ok := a.MeanRating(); ok {
			board.Set(a.Key(), a, mean)
		}
	}

	result := ranking.Head(board.Ranked(), k)
	trace("highest_rated_albums", start, len(result))
	return result, nil
}

// MostSellingAlbums ranks albums by sales. k must be between 1 and the
// number of albums.
func (m *Miner) MostSellingAlbums(ctx context.Context, k int) ([]domain.Album, error) {
	const op = "most selling albums"
	start := time.Now()
	albums, err := m.loadAlbumsForTopK(ctx, op, k)
	if err != nil {
		return nil, err
	}

	board := ranking.NewBoard[domain.AlbumKey, domain.Album](len(albums))
	for _, a := range albums {
		board.Set(a.Key(), a, float64(a.Sales))
	}

	result := ranking.Head(board.Ranked(), k)
	trace("most_selling_albums", start, len(result))
	return result, nil
}

func (m *Miner) loadAlbumsForTopK(ctx context.Context, op string, k int) ([]domain.Album, error) {
	if k < 1 {
		return nil, domain.Invalid(op, "k must be at least 1, got %d", k)
	}
	albums, err := m.repo.LoadAllAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("miner: load albums: %w", err)
	}
	if k > len(albums) {
		return nil, domain.Invalid(op, "k=%d exceeds %d albums", k, len(albums))
	}
	return uniqueAlbums(albums), nil
}

// FindNextConcerts returns upcoming concerts in date order. Once k concerts
// are collected, concerts on the same date as the k-th are still included,
// so the result may exceed k. k < 1 yields an empty result.
func (m *Miner) FindNextConcerts(ctx context.Context, k int) ([]domain.Concert, error) {
	start := time.Now()
	concerts, err := m.repo.LoadAllConcerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("miner: load concerts: %w", err)
	}

	now := m.now()
	upcoming := make([]domain.Concert, 0, len(concerts))
	for _, c := range concerts {
		if c.Date.After(now) {
			upcoming = append(upcoming, c)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Date.Before(upcoming[j].Date)
	})

	result := []domain.Concert{}
	seen := make(map[domain.ConcertKey]struct{}, len(upcoming))
	var last time.Time
	for _, c := range upcoming {
		if len(result) >= k && !c.Date.Equal(last) {
			break
		}
		if _, dup := seen[c.Key()]; dup {
			continue
		}
		seen[c.Key()] = struct{}{}
		result = append(result, c)
		last = c.Date
	}

	trace("find_next_concerts", start, len(result))
	return result, nil
}

// uniqueAlbums drops later copies of an album key, keeping load order.
func uniqueAlbums(albums []domain.Album) []domain.Album {
	seen := make(map[domain.AlbumKey]struct{}, len(albums))
	out := make([]domain.Album, 0, len(albums))
	for _, a := range albums {
		if _, dup := seen[a.Key()]; dup {
			continue
		}
		seen[a.Key()] = struct{}{}
		out = append(out, a)
	}
	return out
}

func trace(op string, start time.Time, results int) {
	logging.Debug().
		Str("op", op).
		Int("results", results).
		Dur("elapsed", time.Since(start)).
		Msg("mining query finished")
}
