package domain

import (
	"github.com/ewilliams-labs/ecmcatalog/internal/validation"
)

// MusicianKey identifies a musician by value.
type MusicianKey struct {
	Name string `json:"name" yaml:"name"`
}

func (k MusicianKey) String() string {
	return k.Name
}

// Musician is an artist featured on at least one label record.
// Albums has set semantics: AddAlbum ignores keys already present, and the
// slice keeps insertion order so iteration is deterministic.
type Musician struct {
	Name         string     `json:"name" validate:"required,notblank,fullname,max=100"`
	URL          string     `json:"url,omitempty" validate:"omitempty,url,ecmurl"`
	Bio          string     `json:"bio,omitempty" validate:"omitempty,notblank,maxwords=500"`
	PersonalSite string     `json:"personal_site,omitempty" validate:"omitempty,url,offlabel"`
	WikiPage     string     `json:"wiki_page,omitempty" validate:"omitempty,url,wikiurl"`
	Albums       []AlbumKey `json:"albums"`
}

// NewMusician validates name and returns a musician with no albums.
func NewMusician(name string) (Musician, error) {
	m := Musician{Name: name, Albums: []AlbumKey{}}
	if err := m.Validate(); err != nil {
		return Musician{}, err
	}
	return m, nil
}

// Key returns the musician's identity.
func (m Musician) Key() MusicianKey {
	return MusicianKey{Name: m.Name}
}

// Validate checks the musician against its construction rules.
func (m Musician) Validate() error {
	return check("musician", m)
}

// SetURL sets the label page for the musician.
func (m *Musician) SetURL(u string) error {
	next := *m
	next.URL = u
	if err := next.Validate(); err != nil {
		return err
	}
	m.URL = u
	return nil
}

// SetBio sets a short biography of at most 500 words.
func (m *Musician) SetBio(bio string) error {
	next := *m
	next.Bio = bio
	if err := next.Validate(); err != nil {
		return err
	}
	m.Bio = bio
	return nil
}

// SetPersonalSite sets a site hosted outside the label and wikipedia.
func (m *Musician) SetPersonalSite(site string) error {
	next := *m
	next.PersonalSite = site
	if err := next.Validate(); err != nil {
		return err
	}
	m.PersonalSite = site
	return nil
}

// SetWikiPage sets the wikipedia article for the musician.
func (m *Musician) SetWikiPage(page string) error {
	next := *m
	next.WikiPage = page
	if err := next.Validate(); err != nil {
		return err
	}
	m.WikiPage = page
	return nil
}

// AddAlbum records that the musician appears on the album.
func (m *Musician) AddAlbum(k AlbumKey) {
	if m.HasAlbum(k) {
		return
	}
	m.Albums = append(m.Albums, k)
}

// SetAlbums replaces the album set, dropping duplicate keys.
func (m *Musician) SetAlbums(keys []AlbumKey) {
	m.Albums = make([]AlbumKey, 0, len(keys))
	for _, k := range keys {
		m.AddAlbum(k)
	}
}

// HasAlbum reports whether the musician appears on the album.
func (m Musician) HasAlbum(k AlbumKey) bool {
	for _, existing := range m.Albums {
		if existing == k {
			return true
		}
	}
	return false
}

func check(op string, v any) error {
	if err := validation.Struct(v); err != nil {
		return &InvalidArgumentError{Op: op, Err: err}
	}
	return nil
}
