package domain

import (
	"fmt"
)

// AlbumKey identifies an album by value.
type AlbumKey struct {
	ReleaseYear  int    `json:"release_year" yaml:"release_year"`
	RecordNumber string `json:"record_number" yaml:"record_number"`
	Name         string `json:"name" yaml:"name"`
}

func (k AlbumKey) String() string {
	return fmt.Sprintf("%d|%s|%s", k.ReleaseYear, k.RecordNumber, k.Name)
}

// Album is a record released by the label.
//
// FeaturedMusicians is an ordered credit list without duplicates. Instruments,
// Tracks and Ratings are sets keyed by their own identities.
type Album struct {
	ReleaseYear       int                  `json:"release_year" validate:"releaseyear"`
	RecordNumber      string               `json:"record_number" validate:"required,notblank"`
	Name              string               `json:"name" validate:"required,notblank"`
	URL               string               `json:"url,omitempty" validate:"omitempty,url"`
	Sales             int                  `json:"sales" validate:"gte=0"`
	FeaturedMusicians []MusicianKey        `json:"featured_musicians"`
	Instruments       []MusicianInstrument `json:"instruments"`
	Tracks            []Track              `json:"tracks"`
	Ratings           []Rating             `json:"ratings"`
}

// NewAlbum validates the identifying fields and returns an empty album.
func NewAlbum(releaseYear int, recordNumber, name string) (Album, error) {
	a := Album{
		ReleaseYear:       releaseYear,
		RecordNumber:      recordNumber,
		Name:              name,
		FeaturedMusicians: []MusicianKey{},
		Instruments:       []MusicianInstrument{},
		Tracks:            []Track{},
		Ratings:           []Rating{},
	}
	if err := a.Validate(); err != nil {
		return Album{}, err
	}
	return a, nil
}

// Key returns the album's identity.
func (a Album) Key() AlbumKey {
	return AlbumKey{ReleaseYear: a.ReleaseYear, RecordNumber: a.RecordNumber, Name: a.Name}
}

// Validate checks the album against its construction rules.
func (a Album) Validate() error {
	return check("album", a)
}

// SetSales updates the number of copies sold.
func (a *Album) SetSales(sales int) error {
	if sales < 0 {
		return Invalid("album", "sales must not be negative, got %d", sales)
	}
	a.Sales = sales
	return nil
}

// AddFeaturedMusician appends a credit unless the musician is already credited.
func (a *Album) AddFeaturedMusician(k MusicianKey) {
	if a.Features(k) {
		return
	}
	a.FeaturedMusicians = append(a.FeaturedMusicians, k)
}

// SetFeaturedMusicians replaces the credit list, keeping the first
// occurrence of each musician.
func (a *Album) SetFeaturedMusicians(keys []MusicianKey) {
	a.FeaturedMusicians = make([]MusicianKey, 0, len(keys))
	for _, k := range keys {
		a.AddFeaturedMusician(k)
	}
}

// Features reports whether the musician is credited on the album.
func (a Album) Features(k MusicianKey) bool {
	for _, existing := range a.FeaturedMusicians {
		if existing == k {
			return true
		}
	}
	return false
}

// AddInstrument attaches a musician-instrument pairing to the album.
func (a *Album) AddInstrument(mi MusicianInstrument) {
	key := mi.Key()
	for _, existing := range a.Instruments {
		if existing.Key() == key {
			return
		}
	}
	a.Instruments = append(a.Instruments, mi)
}

// AddTrack adds a track unless an equal track is already listed.
func (a *Album) AddTrack(t Track) {
	key := t.Key()
	for _, existing := range a.Tracks {
		if existing.Key() == key {
			return
		}
	}
	a.Tracks = append(a.Tracks, t)
}

// AddRating adds a rating unless an equal rating is already listed.
func (a *Album) AddRating(r Rating) {
	for _, existing := range a.Ratings {
		if existing == r {
			return
		}
	}
	a.Ratings = append(a.Ratings, r)
}

// MeanRating returns the average score and false when the album is unrated.
func (a Album) MeanRating() (float64, bool) {
	if len(a.Ratings) == 0 {
		return 0, false
	}
	total := 0
	for _, r := range a.Ratings {
		total += r.Score
	}
	return float64(total) / float64(len(a.Ratings)), true
}
