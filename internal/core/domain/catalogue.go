package domain

// Catalogue is one batch of entities to persist together, typically decoded
// from a catalogue document or a tag scan.
type Catalogue struct {
	Instruments         []MusicalInstrument  `json:"instruments"`
	Albums              []Album              `json:"albums"`
	Musicians           []Musician           `json:"musicians"`
	MusicianInstruments []MusicianInstrument `json:"musician_instruments"`
	Concerts            []Concert            `json:"concerts"`
}

// Size is the total number of top-level entities in the batch.
func (c Catalogue) Size() int {
	return len(c.Instruments) + len(c.Albums) + len(c.Musicians) + len(c.MusicianInstruments) + len(c.Concerts)
}
