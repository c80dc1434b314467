// Package sqlite provides a SQLite-backed implementation of the catalogue
// repository port. Entities are nodes keyed by their value identity;
// relationships live in link tables with an explicit position so loads come
// back in insertion order.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
	"github.com/ewilliams-labs/ecmcatalog/internal/core/ports"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
)

var _ ports.CatalogRepository = (*Adapter)(nil)

// Adapter implements the repository port for SQLite
type Adapter struct {
	db *sql.DB
}

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// One connection: sqlite has a single writer and :memory: is per connection.
	db.SetMaxOpenConns(1)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}

	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

func albumID(k domain.AlbumKey) string {
	return k.String()
}

func concertID(k domain.ConcertKey) string {
	return k.String()
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS musicians (
		name TEXT PRIMARY KEY,
		url TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		personal_site TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS albums (
		id TEXT PRIMARY KEY,
		release_year INTEGER NOT NULL,
		record_number TEXT NOT NULL,
		name TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS musician_albums (
		musician TEXT NOT NULL,
		album_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (musician, album_id)
	);

	CREATE TABLE IF NOT EXISTS album_musicians (
		album_id TEXT NOT NULL,
		musician TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (album_id, musician)
	);

	CREATE TABLE IF NOT EXISTS instruments (
		name TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS musician_instruments (
		id TEXT PRIMARY KEY,
		musician TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS musician_instrument_items (
		mi_id TEXT NOT NULL,
		instrument TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (mi_id, instrument)
	);

	CREATE TABLE IF NOT EXISTS album_instruments (
		album_id TEXT NOT NULL,
		mi_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (album_id, mi_id)
	);

	CREATE TABLE IF NOT EXISTS tracks (
		album_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		duration TEXT NOT NULL,
		genre TEXT NOT NULL,
		track_number INTEGER NOT NULL,
		reviews TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (album_id, position)
	);

	CREATE TABLE IF NOT EXISTS ratings (
		album_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		score INTEGER NOT NULL,
		source TEXT NOT NULL,
		PRIMARY KEY (album_id, position)
	);

	CREATE TABLE IF NOT EXISTS concerts (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS concert_musicians (
		concert_id TEXT NOT NULL,
		musician TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (concert_id, musician)
	);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// Columns added after the first release.
	for _, stmt := range []string{
		"ALTER TABLE albums ADD COLUMN sales INTEGER NOT NULL DEFAULT 0",
		"ALTER TABLE musicians ADD COLUMN wiki_page TEXT NOT NULL DEFAULT ''",
	} {
		if _, err := a.db.Exec(stmt); err != nil {
			if !isDuplicateColumnError(err) {
				return err
			}
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
