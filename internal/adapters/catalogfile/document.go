// Package catalogfile reads and writes catalogue documents, the YAML or JSON
// files used to seed and bulk-import the catalogue.
//
//	musicians:
//	  - name: Keith Jarrett
//	    albums:
//	      - {year: 1975, record: ECM 1064/65, name: The Köln Concert}
//	albums:
//	  - year: 1975
//	    record: ECM 1064/65
//	    name: The Köln Concert
//	    featured: [Keith Jarrett]
package catalogfile

import (
	"fmt"
	"time"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
)

// Document is the on-disk catalogue structure.
type Document struct {
	Instruments         []string           `yaml:"instruments,omitempty" json:"instruments,omitempty"`
	Musicians           []MusicianDoc      `yaml:"musicians,omitempty" json:"musicians,omitempty"`
	Albums              []AlbumDoc         `yaml:"albums,omitempty" json:"albums,omitempty"`
	MusicianInstruments []MusicianPlaysDoc `yaml:"musician_instruments,omitempty" json:"musician_instruments,omitempty"`
	Concerts            []ConcertDoc       `yaml:"concerts,omitempty" json:"concerts,omitempty"`
}

// AlbumRef points at an album by key.
type AlbumRef struct {
	Year   int    `yaml:"year" json:"year"`
	Record string `yaml:"record" json:"record"`
	Name   string `yaml:"name" json:"name"`
}

// MusicianDoc is a musician entry.
type MusicianDoc struct {
	Name         string     `yaml:"name" json:"name"`
	URL          string     `yaml:"url,omitempty" json:"url,omitempty"`
	Bio          string     `yaml:"bio,omitempty" json:"bio,omitempty"`
	PersonalSite string     `yaml:"personal_site,omitempty" json:"personal_site,omitempty"`
	WikiPage     string     `yaml:"wiki_page,omitempty" json:"wiki_page,omitempty"`
	Albums       []AlbumRef `yaml:"albums,omitempty" json:"albums,omitempty"`
}

// MusicianPlaysDoc pairs a musician name with instrument names.
type MusicianPlaysDoc struct {
	Musician    string   `yaml:"musician" json:"musician"`
	Instruments []string `yaml:"instruments" json:"instruments"`
}

// TrackDoc is a track entry.
type TrackDoc struct {
	Name     string   `yaml:"name" json:"name"`
	Duration string   `yaml:"duration" json:"duration"`
	Genre    string   `yaml:"genre" json:"genre"`
	Number   int      `yaml:"number" json:"number"`
	Reviews  []string `yaml:"reviews,omitempty" json:"reviews,omitempty"`
}

// RatingDoc is a critic rating.
type RatingDoc struct {
	Score  int    `yaml:"score" json:"score"`
	Source string `yaml:"source" json:"source"`
}

// AlbumDoc is an album entry.
type AlbumDoc struct {
	Year        int                `yaml:"year" json:"year"`
	Record      string             `yaml:"record" json:"record"`
	Name        string             `yaml:"name" json:"name"`
	URL         string             `yaml:"url,omitempty" json:"url,omitempty"`
	Sales       int                `yaml:"sales,omitempty" json:"sales,omitempty"`
	Featured    []string           `yaml:"featured,omitempty" json:"featured,omitempty"`
	Instruments []MusicianPlaysDoc `yaml:"instruments,omitempty" json:"instruments,omitempty"`
	Tracks      []TrackDoc         `yaml:"tracks,omitempty" json:"tracks,omitempty"`
	Ratings     []RatingDoc        `yaml:"ratings,omitempty" json:"ratings,omitempty"`
}

// ConcertDoc is a concert entry.
type ConcertDoc struct {
	Date      time.Time `yaml:"date" json:"date"`
	Name      string    `yaml:"name" json:"name"`
	Location  string    `yaml:"location,omitempty" json:"location,omitempty"`
	Country   string    `yaml:"country,omitempty" json:"country,omitempty"`
	Musicians []string  `yaml:"musicians,omitempty" json:"musicians,omitempty"`
}

// Catalogue converts the document through the domain constructors. The
// first invalid entry aborts the conversion; the error names its position
// and wraps domain.ErrInvalidArgument.
func (d Document) Catalogue() (domain.Catalogue, error) {
	var c domain.Catalogue

	for i, name := range d.Instruments {
		in, err := domain.NewMusicalInstrument(name)
		if err != nil {
			return domain.Catalogue{}, fmt.Errorf("catalogfile: instruments[%d]: %w", i, err)
		}
		c.Instruments = append(c.Instruments, in)
	}

	byName := make(map[string]domain.Musician, len(d.Musicians))
	for i, md := range d.Musicians {
		m, err := md.musician()
		if err != nil {
			return domain.Catalogue{}, fmt.Errorf("catalogfile: musicians[%d]: %w", i, err)
		}
		byName[m.Name] = m
		c.Musicians = append(c.Musicians, m)
	}
	musician := func(name string) (domain.Musician, error) {
		if m, ok := byName[name]; ok {
			return m, nil
		}
		return domain.NewMusician(name)
	}

	for i, ad := range d.Albums {
		a, err := ad.album(musician)
		if err != nil {
			return domain.Catalogue{}, fmt.Errorf("catalogfile: albums[%d]: %w", i, err)
		}
		c.Albums = append(c.Albums, a)
	}

	for i, pd := range d.MusicianInstruments {
		mi, err := pd.pairing(musician)
		if err != nil {
			return domain.Catalogue{}, fmt.Errorf("catalogfile: musician_instruments[%d]: %w", i, err)
		}
		c.MusicianInstruments = append(c.MusicianInstruments, mi)
	}

	for i, cd := range d.Concerts {
		con, err := cd.concert()
		if err != nil {
			return domain.Catalogue{}, fmt.Errorf("catalogfile: concerts[%d]: %w", i, err)
		}
		c.Concerts = append(c.Concerts, con)
	}

	return c, nil
}

func (md MusicianDoc) musician() (domain.Musician, error) {
	m, err := domain.NewMusician(md.Name)
	if err != nil {
		return domain.Musician{}, err
	}
	setters := []struct {
		value string
		set   func(string) error
	}{
		{md.URL, m.SetURL},
		{md.Bio, m.SetBio},
		{md.PersonalSite, m.SetPersonalSite},
		{md.WikiPage, m.SetWikiPage},
	}
	for _, s := range setters {
		if s.value == "" {
			continue
		}
		if err := s.set(s.value); err != nil {
			return domain.Musician{}, err
		}
	}
	for _, ref := range md.Albums {
		m.AddAlbum(domain.AlbumKey{ReleaseYear: ref.Year, RecordNumber: ref.Record, Name: ref.Name})
	}
	return m, nil
}

func (pd MusicianPlaysDoc) pairing(musician func(string) (domain.Musician, error)) (domain.MusicianInstrument, error) {
	m, err := musician(pd.Musician)
	if err != nil {
		return domain.MusicianInstrument{}, err
	}
	instruments := make([]domain.MusicalInstrument, 0, len(pd.Instruments))
	for _, name := range pd.Instruments {
		in, err := domain.NewMusicalInstrument(name)
		if err != nil {
			return domain.MusicianInstrument{}, err
		}
		instruments = append(instruments, in)
	}
	return domain.NewMusicianInstrument(m, instruments)
}

func (ad AlbumDoc) album(musician func(string) (domain.Musician, error)) (domain.Album, error) {
	a, err := domain.NewAlbum(ad.Year, ad.Record, ad.Name)
	if err != nil {
		return domain.Album{}, err
	}
	if ad.URL != "" {
		a.URL = ad.URL
		if err := a.Validate(); err != nil {
			return domain.Album{}, err
		}
	}
	if err := a.SetSales(ad.Sales); err != nil {
		return domain.Album{}, err
	}
	for _, name := range ad.Featured {
		m, err := musician(name)
		if err != nil {
			return domain.Album{}, err
		}
		a.AddFeaturedMusician(m.Key())
	}
	for _, pd := range ad.Instruments {
		mi, err := pd.pairing(musician)
		if err != nil {
			return domain.Album{}, err
		}
		a.AddInstrument(mi)
	}
	for _, td := range ad.Tracks {
		t, err := domain.NewTrack(td.Name, td.Duration, td.Genre, td.Number)
		if err != nil {
			return domain.Album{}, err
		}
		if len(td.Reviews) > 0 {
			if err := t.SetReviews(td.Reviews); err != nil {
				return domain.Album{}, err
			}
		}
		a.AddTrack(t)
	}
	for _, rd := range ad.Ratings {
		r, err := domain.NewRating(rd.Score, rd.Source)
		if err != nil {
			return domain.Album{}, err
		}
		a.AddRating(r)
	}
	return a, nil
}

func (cd ConcertDoc) concert() (domain.Concert, error) {
	c, err := domain.NewConcert(cd.Date, cd.Name, cd.Location, cd.Country)
	if err != nil {
		return domain.Concert{}, err
	}
	if len(cd.Musicians) > 0 {
		keys := make([]domain.MusicianKey, 0, len(cd.Musicians))
		for _, name := range cd.Musicians {
			keys = append(keys, domain.MusicianKey{Name: name})
		}
		if err := c.SetFeaturedMusicians(keys); err != nil {
			return domain.Concert{}, err
		}
	}
	return c, nil
}

// FromCatalogue builds a document from domain entities.
func FromCatalogue(c domain.Catalogue) Document {
	var d Document
	for _, in := range c.Instruments {
		d.Instruments = append(d.Instruments, in.Name)
	}
	for _, m := range c.Musicians {
		md := MusicianDoc{Name: m.Name, URL: m.URL, Bio: m.Bio, PersonalSite: m.PersonalSite, WikiPage: m.WikiPage}
		for _, k := range m.Albums {
			md.Albums = append(md.Albums, AlbumRef{Year: k.ReleaseYear, Record: k.RecordNumber, Name: k.Name})
		}
		d.Musicians = append(d.Musicians, md)
	}
	for _, a := range c.Albums {
		ad := AlbumDoc{Year: a.ReleaseYear, Record: a.RecordNumber, Name: a.Name, URL: a.URL, Sales: a.Sales}
		for _, k := range a.FeaturedMusicians {
			ad.Featured = append(ad.Featured, k.Name)
		}
		for _, mi := range a.Instruments {
			ad.Instruments = append(ad.Instruments, playsDoc(mi))
		}
		for _, t := range a.Tracks {
			ad.Tracks = append(ad.Tracks, TrackDoc{Name: t.Name, Duration: t.Duration, Genre: t.Genre, Number: t.TrackNumber, Reviews: t.Reviews})
		}
		for _, r := range a.Ratings {
			ad.Ratings = append(ad.Ratings, RatingDoc{Score: r.Score, Source: r.Source})
		}
		d.Albums = append(d.Albums, ad)
	}
	for _, mi := range c.MusicianInstruments {
		d.MusicianInstruments = append(d.MusicianInstruments, playsDoc(mi))
	}
	for _, con := range c.Concerts {
		cd := ConcertDoc{Date: con.Date, Name: con.Name, Location: con.Location, Country: con.Country}
		for _, k := range con.FeaturedMusicians {
			cd.Musicians = append(cd.Musicians, k.Name)
		}
		d.Concerts = append(d.Concerts, cd)
	}
	return d
}

func playsDoc(mi domain.MusicianInstrument) MusicianPlaysDoc {
	pd := MusicianPlaysDoc{Musician: mi.Musician.Name}
	for _, in := range mi.Instruments {
		pd.Instruments = append(pd.Instruments, in.Name)
	}
	return pd
}
