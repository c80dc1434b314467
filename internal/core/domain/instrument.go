package domain

import (
	"sort"
	"strings"
)

// MusicalInstrument is identified by its name.
type MusicalInstrument struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

// NewMusicalInstrument validates and returns an instrument.
func NewMusicalInstrument(name string) (MusicalInstrument, error) {
	mi := MusicalInstrument{Name: name}
	if err := check("instrument", mi); err != nil {
		return MusicalInstrument{}, err
	}
	return mi, nil
}

// MusicianInstrument links one musician to the instruments they play.
type MusicianInstrument struct {
	Musician    Musician            `json:"musician"`
	Instruments []MusicalInstrument `json:"instruments" validate:"required,min=1"`
}

// NewMusicianInstrument pairs a musician with a non-empty instrument set.
// Duplicate instruments are collapsed.
func NewMusicianInstrument(m Musician, instruments []MusicalInstrument) (MusicianInstrument, error) {
	mi := MusicianInstrument{Musician: m}
	mi.SetInstruments(instruments)
	if err := check("musician instrument", mi); err != nil {
		return MusicianInstrument{}, err
	}
	return mi, nil
}

// SetInstruments replaces the instrument set, dropping duplicates.
func (mi *MusicianInstrument) SetInstruments(instruments []MusicalInstrument) {
	seen := make(map[MusicalInstrument]struct{}, len(instruments))
	mi.Instruments = make([]MusicalInstrument, 0, len(instruments))
	for _, in := range instruments {
		if _, ok := seen[in]; ok {
			continue
		}
		seen[in] = struct{}{}
		mi.Instruments = append(mi.Instruments, in)
	}
}

// InstrumentCount is the number of distinct instruments played.
func (mi MusicianInstrument) InstrumentCount() int {
	seen := make(map[MusicalInstrument]struct{}, len(mi.Instruments))
	for _, in := range mi.Instruments {
		seen[in] = struct{}{}
	}
	return len(seen)
}

// Key identifies the pairing by musician and instrument names. Instrument
// order does not affect the key.
func (mi MusicianInstrument) Key() string {
	names := make([]string, 0, len(mi.Instruments))
	for _, in := range mi.Instruments {
		names = append(names, in.Name)
	}
	sort.Strings(names)
	return mi.Musician.Name + "|" + strings.Join(names, ",")
}

// Validate checks the instrument name.
func (mi MusicalInstrument) Validate() error {
	return check("instrument", mi)
}

// Validate checks the musician and the instrument set.
func (mi MusicianInstrument) Validate() error {
	if err := mi.Musician.Validate(); err != nil {
		return err
	}
	return check("musician instrument", mi)
}
