package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
)

// Loaders take a WHERE clause over the node table's alias (m, a, mi, c) so
// finders and bulk loads share the same assembly code. Child queries reuse
// the clause as a subquery and are read after the parent rows are closed.

func (a *Adapter) loadMusicians(ctx context.Context, where string, args ...any) ([]domain.Musician, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT m.name, m.url, m.bio, m.personal_site, m.wiki_page
		FROM musicians m `+where+`
		ORDER BY m.rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load musicians: %w", err)
	}
	musicians := []domain.Musician{}
	index := map[string]int{}
	for rows.Next() {
		m := domain.Musician{Albums: []domain.AlbumKey{}}
		if err := rows.Scan(&m.Name, &m.URL, &m.Bio, &m.PersonalSite, &m.WikiPage); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan musician: %w", err)
		}
		index[m.Name] = len(musicians)
		musicians = append(musicians, m)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("failed to iterate musicians: %w", err)
	}

	linkRows, err := a.db.QueryContext(ctx, `
		SELECT ma.musician, al.release_year, al.record_number, al.name
		FROM musician_albums ma
		JOIN albums al ON al.id = ma.album_id
		WHERE ma.musician IN (SELECT m.name FROM musicians m `+where+`)
		ORDER BY ma.musician, ma.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load musician albums: %w", err)
	}
	for linkRows.Next() {
		var name string
		var k domain.AlbumKey
		if err := linkRows.Scan(&name, &k.ReleaseYear, &k.RecordNumber, &k.Name); err != nil {
			linkRows.Close()
			return nil, fmt.Errorf("failed to scan musician album: %w", err)
		}
		if i, ok := index[name]; ok {
			musicians[i].Albums = append(musicians[i].Albums, k)
		}
	}
	if err := closeRows(linkRows); err != nil {
		return nil, fmt.Errorf("failed to iterate musician albums: %w", err)
	}

	return musicians, nil
}

// loadMusicianInstruments returns the pairings in insertion order plus an
// index by key.
func (a *Adapter) loadMusicianInstruments(ctx context.Context, where string, args ...any) ([]domain.MusicianInstrument, map[string]int, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT mi.id, mi.musician FROM musician_instruments mi `+where+`
		ORDER BY mi.rowid`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load musician instruments: %w", err)
	}
	type row struct{ id, musician string }
	var base []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.musician); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("failed to scan musician instrument: %w", err)
		}
		base = append(base, r)
	}
	if err := closeRows(rows); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate musician instruments: %w", err)
	}

	itemRows, err := a.db.QueryContext(ctx, `
		SELECT it.mi_id, it.instrument FROM musician_instrument_items it
		WHERE it.mi_id IN (SELECT mi.id FROM musician_instruments mi `+where+`)
		ORDER BY it.mi_id, it.position`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load instrument items: %w", err)
	}
	items := map[string][]domain.MusicalInstrument{}
	for itemRows.Next() {
		var id, name string
		if err := itemRows.Scan(&id, &name); err != nil {
			itemRows.Close()
			return nil, nil, fmt.Errorf("failed to scan instrument item: %w", err)
		}
		items[id] = append(items[id], domain.MusicalInstrument{Name: name})
	}
	if err := closeRows(itemRows); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate instrument items: %w", err)
	}

	musicians, err := a.loadMusicians(ctx,
		"WHERE m.name IN (SELECT mi.musician FROM musician_instruments mi "+where+")", args...)
	if err != nil {
		return nil, nil, err
	}
	byName := make(map[string]domain.Musician, len(musicians))
	for _, m := range musicians {
		byName[m.Name] = m
	}

	out := make([]domain.MusicianInstrument, 0, len(base))
	index := make(map[string]int, len(base))
	for _, r := range base {
		mi := domain.MusicianInstrument{Musician: byName[r.musician], Instruments: items[r.id]}
		if mi.Instruments == nil {
			mi.Instruments = []domain.MusicalInstrument{}
		}
		index[r.id] = len(out)
		out = append(out, mi)
	}
	return out, index, nil
}

func (a *Adapter) loadAlbums(ctx context.Context, where string, args ...any) ([]domain.Album, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT a.id, a.release_year, a.record_number, a.name, a.url, a.sales
		FROM albums a `+where+`
		ORDER BY a.rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load albums: %w", err)
	}
	albums := []domain.Album{}
	index := map[string]int{}
	for rows.Next() {
		var id string
		al := domain.Album{
			FeaturedMusicians: []domain.MusicianKey{},
			Instruments:       []domain.MusicianInstrument{},
			Tracks:            []domain.Track{},
			Ratings:           []domain.Rating{},
		}
		if err := rows.Scan(&id, &al.ReleaseYear, &al.RecordNumber, &al.Name, &al.URL, &al.Sales); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		index[id] = len(albums)
		albums = append(albums, al)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("failed to iterate albums: %w", err)
	}
	if len(albums) == 0 {
		return albums, nil
	}

	selected := "(SELECT a.id FROM albums a " + where + ")"

	credRows, err := a.db.QueryContext(ctx, `
		SELECT am.album_id, am.musician FROM album_musicians am
		WHERE am.album_id IN `+selected+`
		ORDER BY am.album_id, am.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load album credits: %w", err)
	}
	for credRows.Next() {
		var id, name string
		if err := credRows.Scan(&id, &name); err != nil {
			credRows.Close()
			return nil, fmt.Errorf("failed to scan album credit: %w", err)
		}
		if i, ok := index[id]; ok {
			albums[i].FeaturedMusicians = append(albums[i].FeaturedMusicians, domain.MusicianKey{Name: name})
		}
	}
	if err := closeRows(credRows); err != nil {
		return nil, fmt.Errorf("failed to iterate album credits: %w", err)
	}

	linkRows, err := a.db.QueryContext(ctx, `
		SELECT ai.album_id, ai.mi_id FROM album_instruments ai
		WHERE ai.album_id IN `+selected+`
		ORDER BY ai.album_id, ai.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load album instruments: %w", err)
	}
	type link struct{ album, mi string }
	var links []link
	for linkRows.Next() {
		var l link
		if err := linkRows.Scan(&l.album, &l.mi); err != nil {
			linkRows.Close()
			return nil, fmt.Errorf("failed to scan album instrument: %w", err)
		}
		links = append(links, l)
	}
	if err := closeRows(linkRows); err != nil {
		return nil, fmt.Errorf("failed to iterate album instruments: %w", err)
	}
	if len(links) > 0 {
		mis, miIndex, err := a.loadMusicianInstruments(ctx,
			"WHERE mi.id IN (SELECT ai.mi_id FROM album_instruments ai WHERE ai.album_id IN "+selected+")", args...)
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			i, ok := index[l.album]
			j, found := miIndex[l.mi]
			if ok && found {
				albums[i].Instruments = append(albums[i].Instruments, mis[j])
			}
		}
	}

	trackRows, err := a.db.QueryContext(ctx, `
		SELECT t.album_id, t.name, t.duration, t.genre, t.track_number, t.reviews FROM tracks t
		WHERE t.album_id IN `+selected+`
		ORDER BY t.album_id, t.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	for trackRows.Next() {
		var id string
		t, err := scanTrack(trackRows.Scan, &id)
		if err != nil {
			trackRows.Close()
			return nil, err
		}
		if i, ok := index[id]; ok {
			albums[i].Tracks = append(albums[i].Tracks, t)
		}
	}
	if err := closeRows(trackRows); err != nil {
		return nil, fmt.Errorf("failed to iterate tracks: %w", err)
	}

	ratingRows, err := a.db.QueryContext(ctx, `
		SELECT r.album_id, r.score, r.source FROM ratings r
		WHERE r.album_id IN `+selected+`
		ORDER BY r.album_id, r.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	for ratingRows.Next() {
		var id string
		var r domain.Rating
		if err := ratingRows.Scan(&id, &r.Score, &r.Source); err != nil {
			ratingRows.Close()
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		if i, ok := index[id]; ok {
			albums[i].Ratings = append(albums[i].Ratings, r)
		}
	}
	if err := closeRows(ratingRows); err != nil {
		return nil, fmt.Errorf("failed to iterate ratings: %w", err)
	}

	return albums, nil
}

// scanTrack reads a track row whose first column is the owning album id.
func scanTrack(scan func(dest ...any) error, albumID *string) (domain.Track, error) {
	var t domain.Track
	var reviews string
	if err := scan(albumID, &t.Name, &t.Duration, &t.Genre, &t.TrackNumber, &reviews); err != nil {
		return domain.Track{}, fmt.Errorf("failed to scan track: %w", err)
	}
	t.Reviews = []string{}
	if reviews != "" {
		if err := json.Unmarshal([]byte(reviews), &t.Reviews); err != nil {
			return domain.Track{}, fmt.Errorf("failed to decode reviews for %q: %w", t.Name, err)
		}
	}
	return t, nil
}

func (a *Adapter) loadTracks(ctx context.Context, where string, args ...any) ([]domain.Track, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT t.album_id, t.name, t.duration, t.genre, t.track_number, t.reviews
		FROM tracks t
		JOIN albums a ON a.id = t.album_id `+where+`
		ORDER BY a.rowid, t.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	defer rows.Close()

	tracks := []domain.Track{}
	seen := map[domain.TrackKey]struct{}{}
	for rows.Next() {
		var id string
		t, err := scanTrack(rows.Scan, &id)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[t.Key()]; dup {
			continue
		}
		seen[t.Key()] = struct{}{}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracks: %w", err)
	}
	return tracks, nil
}

func (a *Adapter) loadRatings(ctx context.Context, where string, args ...any) ([]domain.Rating, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT r.score, r.source
		FROM ratings r
		JOIN albums a ON a.id = r.album_id `+where+`
		ORDER BY a.rowid, r.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	defer rows.Close()

	ratings := []domain.Rating{}
	for rows.Next() {
		var r domain.Rating
		if err := rows.Scan(&r.Score, &r.Source); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ratings: %w", err)
	}
	return ratings, nil
}

func (a *Adapter) loadConcerts(ctx context.Context, where string, args ...any) ([]domain.Concert, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT c.id, c.date, c.name, c.location, c.country
		FROM concerts c `+where+`
		ORDER BY c.rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load concerts: %w", err)
	}
	concerts := []domain.Concert{}
	index := map[string]int{}
	for rows.Next() {
		var id, date string
		c := domain.Concert{FeaturedMusicians: []domain.MusicianKey{}}
		if err := rows.Scan(&id, &date, &c.Name, &c.Location, &c.Country); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan concert: %w", err)
		}
		if c.Date, err = time.Parse(time.RFC3339Nano, date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to parse concert date %q: %w", date, err)
		}
		index[id] = len(concerts)
		concerts = append(concerts, c)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("failed to iterate concerts: %w", err)
	}

	lineRows, err := a.db.QueryContext(ctx, `
		SELECT cm.concert_id, cm.musician FROM concert_musicians cm
		WHERE cm.concert_id IN (SELECT c.id FROM concerts c `+where+`)
		ORDER BY cm.concert_id, cm.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load line-ups: %w", err)
	}
	for lineRows.Next() {
		var id, name string
		if err := lineRows.Scan(&id, &name); err != nil {
			lineRows.Close()
			return nil, fmt.Errorf("failed to scan line-up: %w", err)
		}
		if i, ok := index[id]; ok {
			concerts[i].FeaturedMusicians = append(concerts[i].FeaturedMusicians, domain.MusicianKey{Name: name})
		}
	}
	if err := closeRows(lineRows); err != nil {
		return nil, fmt.Errorf("failed to iterate line-ups: %w", err)
	}
	return concerts, nil
}

type rowCloser interface {
	Err() error
	Close() error
}

// closeRows releases the connection and reports any iteration error.
func closeRows(rows rowCloser) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}
