package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewMusician(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "first and last name", input: "Keith Jarrett"},
		{name: "three tokens", input: "Jan Garbarek Group"},
		{name: "single token rejected", input: "Keith", wantErr: true},
		{name: "blank rejected", input: "   ", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
		{name: "too long rejected", input: "Keith " + strings.Repeat("j", 100), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewMusician(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Name != tc.input {
				t.Fatalf("name: got %q, want %q", m.Name, tc.input)
			}
		})
	}
}

func TestMusician_Links(t *testing.T) {
	tests := []struct {
		name    string
		apply   func(m *Musician) error
		wantErr bool
	}{
		{name: "label url accepted", apply: func(m *Musician) error { return m.SetURL("https://www.ecm.com/keith-jarrett") }},
		{name: "foreign url rejected", apply: func(m *Musician) error { return m.SetURL("https://example.com/keith") }, wantErr: true},
		{name: "wiki page accepted", apply: func(m *Musician) error { return m.SetWikiPage("https://en.wikipedia.org/wiki/Keith_Jarrett") }},
		{name: "wiki page elsewhere rejected", apply: func(m *Musician) error { return m.SetWikiPage("https://example.com/wiki") }, wantErr: true},
		{name: "personal site accepted", apply: func(m *Musician) error { return m.SetPersonalSite("https://keithjarrett.org") }},
		{name: "personal site on label rejected", apply: func(m *Musician) error { return m.SetPersonalSite("https://www.ecm.com/kj") }, wantErr: true},
		{name: "short bio accepted", apply: func(m *Musician) error { return m.SetBio("Pianist and composer.") }},
		{name: "long bio rejected", apply: func(m *Musician) error { return m.SetBio(strings.Repeat("word ", 501)) }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewMusician("Keith Jarrett")
			if err != nil {
				t.Fatalf("new musician: %v", err)
			}
			before := m
			err = tc.apply(&m)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				if m.URL != before.URL || m.WikiPage != before.WikiPage || m.PersonalSite != before.PersonalSite || m.Bio != before.Bio {
					t.Fatalf("rejected update mutated musician: %+v", m)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestMusician_AddAlbumIsASet(t *testing.T) {
	m, err := NewMusician("Keith Jarrett")
	if err != nil {
		t.Fatalf("new musician: %v", err)
	}
	koln := AlbumKey{ReleaseYear: 1975, RecordNumber: "ECM 1064/65", Name: "The Köln Concert"}
	m.AddAlbum(koln)
	m.AddAlbum(koln)
	if len(m.Albums) != 1 {
		t.Fatalf("expected 1 album, got %d", len(m.Albums))
	}
	if !m.HasAlbum(koln) {
		t.Fatalf("expected musician to own %v", koln)
	}
}

func TestNewAlbum(t *testing.T) {
	tests := []struct {
		name    string
		year    int
		record  string
		title   string
		wantErr bool
	}{
		{name: "valid", year: 1975, record: "ECM 1064/65", title: "The Köln Concert"},
		{name: "first label year", year: 1969, record: "ECM 1001", title: "Free at Last"},
		{name: "before label existed", year: 1968, record: "ECM 1000", title: "Too Early", wantErr: true},
		{name: "future year", year: time.Now().Year() + 1, record: "ECM 9999", title: "Too Late", wantErr: true},
		{name: "blank record number", year: 1975, record: " ", title: "Untitled", wantErr: true},
		{name: "empty title", year: 1975, record: "ECM 1064/65", title: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewAlbum(tc.year, tc.record, tc.title)
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected error state: got err=%v wantErr=%v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestAlbum_FeaturedMusiciansKeepOrder(t *testing.T) {
	a, err := NewAlbum(1975, "ECM 1064/65", "The Köln Concert")
	if err != nil {
		t.Fatalf("new album: %v", err)
	}
	a.SetFeaturedMusicians([]MusicianKey{{Name: "Keith Jarrett"}, {Name: "Jan Garbarek"}, {Name: "Keith Jarrett"}})

	want := []MusicianKey{{Name: "Keith Jarrett"}, {Name: "Jan Garbarek"}}
	if len(a.FeaturedMusicians) != len(want) {
		t.Fatalf("credits: got %v, want %v", a.FeaturedMusicians, want)
	}
	for i := range want {
		if a.FeaturedMusicians[i] != want[i] {
			t.Fatalf("credit %d: got %v, want %v", i, a.FeaturedMusicians[i], want[i])
		}
	}
}

func TestAlbum_MeanRating(t *testing.T) {
	a, err := NewAlbum(1975, "ECM 1064/65", "The Köln Concert")
	if err != nil {
		t.Fatalf("new album: %v", err)
	}
	if _, ok := a.MeanRating(); ok {
		t.Fatalf("expected unrated album")
	}
	a.AddRating(Rating{Score: 5, Source: "AllMusic"})
	a.AddRating(Rating{Score: 4, Source: "Pitchfork"})
	a.AddRating(Rating{Score: 5, Source: "AllMusic"})

	got, ok := a.MeanRating()
	if !ok {
		t.Fatalf("expected rated album")
	}
	if got != 4.5 {
		t.Fatalf("mean: got %v, want 4.5", got)
	}
	if err := a.SetSales(-1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for negative sales, got %v", err)
	}
}

func TestNewTrackAndRating(t *testing.T) {
	tests := []struct {
		name    string
		build   func() error
		wantErr bool
	}{
		{name: "track ok", build: func() error { _, err := NewTrack("Part I", "26:15", "Jazz", 1); return err }},
		{name: "track number zero", build: func() error { _, err := NewTrack("Part I", "26:15", "Jazz", 0); return err }, wantErr: true},
		{name: "track number 500", build: func() error { _, err := NewTrack("Part I", "26:15", "Jazz", 500); return err }, wantErr: true},
		{name: "track blank genre", build: func() error { _, err := NewTrack("Part I", "26:15", " ", 1); return err }, wantErr: true},
		{name: "rating ok", build: func() error { _, err := NewRating(3, "AllMusic"); return err }},
		{name: "rating zero", build: func() error { _, err := NewRating(0, "AllMusic"); return err }, wantErr: true},
		{name: "rating six", build: func() error { _, err := NewRating(6, "AllMusic"); return err }, wantErr: true},
		{name: "rating blank source", build: func() error { _, err := NewRating(3, ""); return err }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build()
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected error state: got err=%v wantErr=%v", err, tc.wantErr)
			}
		})
	}
}

func TestMusicianInstrument_KeyIgnoresOrder(t *testing.T) {
	m, err := NewMusician("Jan Garbarek")
	if err != nil {
		t.Fatalf("new musician: %v", err)
	}
	sax := MusicalInstrument{Name: "Saxophone"}
	flute := MusicalInstrument{Name: "Flute"}

	a, err := NewMusicianInstrument(m, []MusicalInstrument{sax, flute, sax})
	if err != nil {
		t.Fatalf("new musician instrument: %v", err)
	}
	b, err := NewMusicianInstrument(m, []MusicalInstrument{flute, sax})
	if err != nil {
		t.Fatalf("new musician instrument: %v", err)
	}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %q vs %q", a.Key(), b.Key())
	}
	if a.InstrumentCount() != 2 {
		t.Fatalf("instrument count: got %d, want 2", a.InstrumentCount())
	}
	if _, err := NewMusicianInstrument(m, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty instruments, got %v", err)
	}
}

func TestConcert_SetFeaturedMusicians(t *testing.T) {
	c, err := NewConcert(time.Date(2030, 5, 1, 20, 0, 0, 0, time.UTC), "Spring Tour", "Melbourne", "Australia")
	if err != nil {
		t.Fatalf("new concert: %v", err)
	}
	if err := c.SetFeaturedMusicians(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty line-up, got %v", err)
	}
	if err := c.SetFeaturedMusicians([]MusicianKey{{Name: "Keith Jarrett"}, {Name: "Keith Jarrett"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.FeaturedMusicians) != 1 {
		t.Fatalf("expected duplicates collapsed, got %v", c.FeaturedMusicians)
	}
	if _, err := NewConcert(time.Time{}, "No Date", "", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for zero date, got %v", err)
	}
}
