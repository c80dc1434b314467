package catalogfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
)

const sampleYAML = `
instruments: [Piano, Soprano Saxophone]
musicians:
  - name: Keith Jarrett
    url: https://www.ecm.com/artists/keith-jarrett
    wiki_page: https://en.wikipedia.org/wiki/Keith_Jarrett
    albums:
      - {year: 1975, record: ECM 1064/65, name: The Köln Concert}
albums:
  - year: 1975
    record: ECM 1064/65
    name: The Köln Concert
    sales: 3500000
    featured: [Keith Jarrett]
    instruments:
      - musician: Keith Jarrett
        instruments: [Piano]
    tracks:
      - {name: Part I, duration: "26:01", genre: Jazz, number: 1, reviews: [luminous]}
    ratings:
      - {score: 5, source: AllMusic}
musician_instruments:
  - musician: Keith Jarrett
    instruments: [Piano, Soprano Saxophone, Piano]
concerts:
  - date: 2027-03-01T20:00:00Z
    name: Solo Piano
    location: Oslo
    country: Norway
    musicians: [Keith Jarrett]
`

func TestYAMLCodec_Decode(t *testing.T) {
	c, err := Decode(YAMLCodec{}, strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(c.Instruments) != 2 || len(c.Musicians) != 1 || len(c.Albums) != 1 || len(c.Concerts) != 1 {
		t.Fatalf("unexpected sizes: %+v", c)
	}
	keith := c.Musicians[0]
	if keith.WikiPage != "https://en.wikipedia.org/wiki/Keith_Jarrett" {
		t.Fatalf("wiki page: %q", keith.WikiPage)
	}
	koln := c.Albums[0]
	if !keith.HasAlbum(koln.Key()) {
		t.Fatalf("musician album reference does not match album key %v", koln.Key())
	}
	if koln.Sales != 3500000 || len(koln.Tracks) != 1 || len(koln.Ratings) != 1 {
		t.Fatalf("album: %+v", koln)
	}
	if got := koln.Instruments[0].Musician.URL; got != keith.URL {
		t.Fatalf("pairing should reuse the listed musician, got url %q", got)
	}
	// Duplicate instruments collapse.
	if n := c.MusicianInstruments[0].InstrumentCount(); n != 2 {
		t.Fatalf("instrument count: got %d", n)
	}
	want := time.Date(2027, 3, 1, 20, 0, 0, 0, time.UTC)
	if !c.Concerts[0].Date.Equal(want) {
		t.Fatalf("concert date: got %v", c.Concerts[0].Date)
	}
}

func TestDocument_CatalogueRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantMsg string
	}{
		{
			name:    "single-word musician",
			doc:     Document{Musicians: []MusicianDoc{{Name: "Keith"}}},
			wantMsg: "musicians[0]",
		},
		{
			name:    "album before the label existed",
			doc:     Document{Albums: []AlbumDoc{{Year: 1950, Record: "ECM 1", Name: "Too Early"}}},
			wantMsg: "albums[0]",
		},
		{
			name:    "rating out of range",
			doc:     Document{Albums: []AlbumDoc{{Year: 1975, Record: "ECM 1", Name: "Fine", Ratings: []RatingDoc{{Score: 6, Source: "X"}}}}},
			wantMsg: "albums[0]",
		},
		{
			name:    "pairing without instruments",
			doc:     Document{MusicianInstruments: []MusicianPlaysDoc{{Musician: "Keith Jarrett"}}},
			wantMsg: "musician_instruments[0]",
		},
		{
			name:    "concert without date",
			doc:     Document{Concerts: []ConcertDoc{{Name: "Undated"}}},
			wantMsg: "concerts[0]",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.doc.Catalogue()
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error %q does not mention %q", err, tc.wantMsg)
			}
		})
	}
}

func TestCodecs_ExportThenDecode(t *testing.T) {
	original, err := Decode(YAMLCodec{}, strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	for _, codec := range []Codec{YAMLCodec{}, JSONCodec{}} {
		t.Run(codec.Format(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := codec.Export(FromCatalogue(original), &buf); err != nil {
				t.Fatalf("export: %v", err)
			}
			again, err := Decode(codec, &buf)
			if err != nil {
				t.Fatalf("decode exported: %v", err)
			}
			got, want := FromCatalogue(again), FromCatalogue(original)
			if !got.Concerts[0].Date.Equal(want.Concerts[0].Date) {
				t.Fatalf("concert date: got %v, want %v", got.Concerts[0].Date, want.Concerts[0].Date)
			}
			got.Concerts[0].Date, want.Concerts[0].Date = time.Time{}, time.Time{}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("documents differ:\n%+v\n%+v", got, want)
			}
		})
	}
}

func TestCodecs_RejectUnknownFields(t *testing.T) {
	if _, err := Decode(YAMLCodec{}, strings.NewReader("albumz: []\n")); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("yaml: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := Decode(JSONCodec{}, strings.NewReader(`{"albumz": []}`)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("json: expected ErrInvalidArgument, got %v", err)
	}
}

func TestForPathAndContentType(t *testing.T) {
	paths := map[string]string{"seed.yaml": "yaml", "seed.YML": "yaml", "seed.json": "json"}
	for path, want := range paths {
		codec, err := ForPath(path)
		if err != nil || codec.Format() != want {
			t.Fatalf("ForPath(%q) = %v, %v", path, codec, err)
		}
	}
	if _, err := ForPath("seed.toml"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for toml, got %v", err)
	}

	types := map[string]string{"": "json", "application/json; charset=utf-8": "json", "application/yaml": "yaml", "text/yaml": "yaml"}
	for ct, want := range types {
		codec, err := ForContentType(ct)
		if err != nil || codec.Format() != want {
			t.Fatalf("ForContentType(%q) = %v, %v", ct, codec, err)
		}
	}
	if _, err := ForContentType("text/csv"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for csv, got %v", err)
	}
}

func TestForContent(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"declared json", "application/json", `{"albums": []}`, "json"},
		{"declared yaml wins over body", "application/yaml", `{albums: []}`, "yaml"},
		{"no type, json body", "", "  \n{\"albums\": []}", "json"},
		{"no type, json array body", "", "[]", "json"},
		{"text/plain sent by net/http for json", "text/plain; charset=utf-8", `{"albums": []}`, "json"},
		{"text/plain yaml", "text/plain; charset=utf-8", "albums: []\n", "yaml"},
		{"octet-stream yaml", "application/octet-stream", "\n\nalbums: []\n", "yaml"},
		{"empty body", "", "", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, body, err := ForContent(tt.contentType, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("ForContent() error = %v", err)
			}
			if codec.Format() != tt.want {
				t.Fatalf("format = %s, want %s", codec.Format(), tt.want)
			}
			if _, err := Decode(codec, body); err != nil {
				t.Fatalf("decode sniffed body: %v", err)
			}
		})
	}

	if _, _, err := ForContent("text/csv", strings.NewReader("a,b")); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for csv, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Size() != 6 {
		t.Fatalf("size: got %d, want 6", c.Size())
	}
}
