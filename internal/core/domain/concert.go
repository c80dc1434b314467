package domain

import "time"

// ConcertKey identifies a concert by value.
type ConcertKey struct {
	Name     string
	Location string
	Country  string
}

func (k ConcertKey) String() string {
	return k.Name + "|" + k.Location + "|" + k.Country
}

// Concert is a scheduled performance.
type Concert struct {
	Date              time.Time     `json:"date" validate:"required"`
	Name              string        `json:"name" validate:"required,notblank"`
	Location          string        `json:"location,omitempty" validate:"omitempty,notblank"`
	Country           string        `json:"country,omitempty" validate:"omitempty,notblank"`
	FeaturedMusicians []MusicianKey `json:"featured_musicians"`
}

// NewConcert validates and returns a concert without featured musicians.
func NewConcert(date time.Time, name, location, country string) (Concert, error) {
	c := Concert{Date: date, Name: name, Location: location, Country: country, FeaturedMusicians: []MusicianKey{}}
	if err := check("concert", c); err != nil {
		return Concert{}, err
	}
	return c, nil
}

// Key returns the concert's identity.
func (c Concert) Key() ConcertKey {
	return ConcertKey{Name: c.Name, Location: c.Location, Country: c.Country}
}

// SetFeaturedMusicians replaces the line-up. At least one musician is required.
func (c *Concert) SetFeaturedMusicians(keys []MusicianKey) error {
	if len(keys) == 0 {
		return Invalid("concert", "at least one featured musician is required")
	}
	lineup := make([]MusicianKey, 0, len(keys))
	seen := make(map[MusicianKey]struct{}, len(keys))
	for _, k := range keys {
		if k.Name == "" {
			return Invalid("concert", "featured musician name is empty")
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		lineup = append(lineup, k)
	}
	c.FeaturedMusicians = lineup
	return nil
}

// Validate checks the concert against its construction rules.
func (c Concert) Validate() error {
	return check("concert", c)
}
