package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
)

// SaveMusician upserts the musician and replaces its album links. Albums not
// stored yet are created as key-only placeholders.
func (a *Adapter) SaveMusician(ctx context.Context, m domain.Musician) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO musicians (name, url, bio, personal_site, wiki_page) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url=excluded.url,
			bio=excluded.bio,
			personal_site=excluded.personal_site,
			wiki_page=excluded.wiki_page
	`, m.Name, m.URL, m.Bio, m.PersonalSite, m.WikiPage); err != nil {
		return fmt.Errorf("failed to save musician %q: %w", m.Name, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM musician_albums WHERE musician = ?", m.Name); err != nil {
		return fmt.Errorf("failed to clear album links: %w", err)
	}

	stmtLink, err := tx.PrepareContext(ctx, `
		INSERT INTO musician_albums (musician, album_id, position) VALUES (?, ?, ?)
		ON CONFLICT(musician, album_id) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmtLink.Close()

	for i, k := range m.Albums {
		if err := ensureAlbum(ctx, tx, k); err != nil {
			return err
		}
		if _, err := stmtLink.ExecContext(ctx, m.Name, albumID(k), i); err != nil {
			return fmt.Errorf("failed to link album %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// SaveAlbum upserts the album with its credits, instruments, tracks and
// ratings. Featured musicians not stored yet become placeholders.
func (a *Adapter) SaveAlbum(ctx context.Context, al domain.Album) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	id := albumID(al.Key())
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO albums (id, release_year, record_number, name, url, sales) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET url=excluded.url, sales=excluded.sales
	`, id, al.ReleaseYear, al.RecordNumber, al.Name, al.URL, al.Sales); err != nil {
		return fmt.Errorf("failed to save album %s: %w", id, err)
	}

	for _, table := range []string{"album_musicians", "album_instruments", "tracks", "ratings"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE album_id = ?", id); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i, mk := range al.FeaturedMusicians {
		if err := ensureMusician(ctx, tx, mk.Name); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO album_musicians (album_id, musician, position) VALUES (?, ?, ?)
			ON CONFLICT(album_id, musician) DO NOTHING
		`, id, mk.Name, i); err != nil {
			return fmt.Errorf("failed to link musician %q: %w", mk.Name, err)
		}
	}

	for i, mi := range al.Instruments {
		if err := upsertMusicianInstrument(ctx, tx, mi); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO album_instruments (album_id, mi_id, position) VALUES (?, ?, ?)
			ON CONFLICT(album_id, mi_id) DO NOTHING
		`, id, mi.Key(), i); err != nil {
			return fmt.Errorf("failed to link musician instrument %q: %w", mi.Key(), err)
		}
	}

	stmtTrack, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (album_id, position, name, duration, genre, track_number, reviews)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmtTrack.Close()

	for i, t := range al.Tracks {
		reviews := t.Reviews
		if reviews == nil {
			reviews = []string{}
		}
		raw, err := json.Marshal(reviews)
		if err != nil {
			return fmt.Errorf("failed to encode reviews for %q: %w", t.Name, err)
		}
		if _, err := stmtTrack.ExecContext(ctx, id, i, t.Name, t.Duration, t.Genre, t.TrackNumber, string(raw)); err != nil {
			return fmt.Errorf("failed to save track %q: %w", t.Name, err)
		}
	}

	for i, r := range al.Ratings {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO ratings (album_id, position, score, source) VALUES (?, ?, ?, ?)",
			id, i, r.Score, r.Source,
		); err != nil {
			return fmt.Errorf("failed to save rating from %q: %w", r.Source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// SaveMusicalInstrument stores the instrument if it is new.
func (a *Adapter) SaveMusicalInstrument(ctx context.Context, mi domain.MusicalInstrument) error {
	if _, err := a.db.ExecContext(ctx,
		"INSERT INTO instruments (name) VALUES (?) ON CONFLICT(name) DO NOTHING", mi.Name,
	); err != nil {
		return fmt.Errorf("failed to save instrument %q: %w", mi.Name, err)
	}
	return nil
}

// SaveMusicianInstrument stores the pairing, creating placeholder musician
// and instrument nodes as needed.
func (a *Adapter) SaveMusicianInstrument(ctx context.Context, mi domain.MusicianInstrument) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := upsertMusicianInstrument(ctx, tx, mi); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// SaveConcert upserts the concert and replaces its line-up.
func (a *Adapter) SaveConcert(ctx context.Context, c domain.Concert) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	id := concertID(c.Key())
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO concerts (id, date, name, location, country) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET date=excluded.date
	`, id, c.Date.UTC().Format(time.RFC3339Nano), c.Name, c.Location, c.Country); err != nil {
		return fmt.Errorf("failed to save concert %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM concert_musicians WHERE concert_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear line-up: %w", err)
	}
	for i, mk := range c.FeaturedMusicians {
		if err := ensureMusician(ctx, tx, mk.Name); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO concert_musicians (concert_id, musician, position) VALUES (?, ?, ?)
			ON CONFLICT(concert_id, musician) DO NOTHING
		`, id, mk.Name, i); err != nil {
			return fmt.Errorf("failed to link musician %q: %w", mk.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// DeleteMusician removes the musician and every link pointing at it.
func (a *Adapter) DeleteMusician(ctx context.Context, key domain.MusicianKey) error {
	return a.deleteNode(ctx, "musicians", "name", key.Name, []string{
		"DELETE FROM musician_albums WHERE musician = ?",
		"DELETE FROM album_musicians WHERE musician = ?",
		"DELETE FROM concert_musicians WHERE musician = ?",
		"DELETE FROM album_instruments WHERE mi_id IN (SELECT id FROM musician_instruments WHERE musician = ?)",
		"DELETE FROM musician_instrument_items WHERE mi_id IN (SELECT id FROM musician_instruments WHERE musician = ?)",
		"DELETE FROM musician_instruments WHERE musician = ?",
	})
}

// DeleteAlbum removes the album, its tracks and ratings, and every link
// pointing at it.
func (a *Adapter) DeleteAlbum(ctx context.Context, key domain.AlbumKey) error {
	return a.deleteNode(ctx, "albums", "id", albumID(key), []string{
		"DELETE FROM musician_albums WHERE album_id = ?",
		"DELETE FROM album_musicians WHERE album_id = ?",
		"DELETE FROM album_instruments WHERE album_id = ?",
		"DELETE FROM tracks WHERE album_id = ?",
		"DELETE FROM ratings WHERE album_id = ?",
	})
}

// DeleteConcert removes the concert and its line-up.
func (a *Adapter) DeleteConcert(ctx context.Context, key domain.ConcertKey) error {
	return a.deleteNode(ctx, "concerts", "id", concertID(key), []string{
		"DELETE FROM concert_musicians WHERE concert_id = ?",
	})
}

func (a *Adapter) deleteNode(ctx context.Context, table, column, id string, links []string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range links {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to detach %s %q: %w", table, id, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+column+" = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

func ensureMusician(ctx context.Context, tx *sql.Tx, name string) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO musicians (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name,
	); err != nil {
		return fmt.Errorf("failed to create musician %q: %w", name, err)
	}
	return nil
}

func ensureAlbum(ctx context.Context, tx *sql.Tx, k domain.AlbumKey) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO albums (id, release_year, record_number, name) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, albumID(k), k.ReleaseYear, k.RecordNumber, k.Name); err != nil {
		return fmt.Errorf("failed to create album %s: %w", k, err)
	}
	return nil
}

func upsertMusicianInstrument(ctx context.Context, tx *sql.Tx, mi domain.MusicianInstrument) error {
	id := mi.Key()
	if err := ensureMusician(ctx, tx, mi.Musician.Name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO musician_instruments (id, musician) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, mi.Musician.Name); err != nil {
		return fmt.Errorf("failed to save musician instrument %q: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM musician_instrument_items WHERE mi_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear instruments: %w", err)
	}
	for i, in := range mi.Instruments {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO instruments (name) VALUES (?) ON CONFLICT(name) DO NOTHING", in.Name,
		); err != nil {
			return fmt.Errorf("failed to create instrument %q: %w", in.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO musician_instrument_items (mi_id, instrument, position) VALUES (?, ?, ?)
			ON CONFLICT(mi_id, instrument) DO NOTHING
		`, id, in.Name, i); err != nil {
			return fmt.Errorf("failed to link instrument %q: %w", in.Name, err)
		}
	}
	return nil
}
