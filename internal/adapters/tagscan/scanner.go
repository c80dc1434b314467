// Package tagscan builds a catalogue from the ID3v2 tags of a directory of
// MP3 files.
//
// Each file contributes one track to the album named by its TALB frame.
// The album key also needs the release year (TYER or TDRC) and the ECM
// catalogue number, read from a TXXX frame described CATALOGNUMBER. Lead
// artists in TPE1, separated by ";" or "/", become featured musicians.
package tagscan

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2"
	"golang.org/x/sync/errgroup"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
	"github.com/ewilliams-labs/ecmcatalog/internal/logging"
)

// CatalogNumberDescription is the TXXX description holding the record number.
const CatalogNumberDescription = "CATALOGNUMBER"

const unknownGenre = "Unknown"

// Skipped is a file that could not contribute to the catalogue.
type Skipped struct {
	Path   string
	Reason string
}

// Result is the outcome of a scan.
type Result struct {
	Catalogue domain.Catalogue
	Files     int
	Skipped   []Skipped
}

// Scanner reads tags with a bounded number of concurrent workers.
type Scanner struct {
	workers int
}

// NewScanner returns a scanner; workers below 1 means GOMAXPROCS.
func NewScanner(workers int) *Scanner {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Scanner{workers: workers}
}

// fileTags is what one file contributes.
type fileTags struct {
	path      string
	album     domain.Album
	track     domain.Track
	musicians []domain.Musician
	skip      string
}

// Scan walks root for .mp3 files and assembles their tags. Files with
// missing or invalid tags are reported in Result.Skipped; I/O errors abort
// the scan.
func (s *Scanner) Scan(ctx context.Context, root string) (Result, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".mp3") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("tagscan: walk %s: %w", root, err)
	}
	sort.Strings(paths)

	start := time.Now()
	files := make([]fileTags, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ft, err := readFile(path)
			if err != nil {
				return err
			}
			files[i] = ft
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := assemble(files)
	logging.Info().
		Str("root", root).
		Int("files", res.Files).
		Int("albums", len(res.Catalogue.Albums)).
		Int("skipped", len(res.Skipped)).
		Dur("took", time.Since(start)).
		Msg("tag scan complete")
	return res, nil
}

func readFile(path string) (fileTags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fileTags{}, fmt.Errorf("tagscan: open %s: %w", path, err)
	}
	defer tag.Close()

	ft := fileTags{path: path}
	year, err := parseYear(tag.Year())
	if err != nil {
		ft.skip = err.Error()
		return ft, nil
	}
	album, err := domain.NewAlbum(year, catalogNumber(tag), strings.TrimSpace(tag.Album()))
	if err != nil {
		ft.skip = err.Error()
		return ft, nil
	}

	genre := strings.TrimSpace(tag.Genre())
	if genre == "" {
		genre = unknownGenre
	}
	track, err := domain.NewTrack(strings.TrimSpace(tag.Title()), duration(path, tag), genre, trackNumber(tag))
	if err != nil {
		ft.skip = err.Error()
		return ft, nil
	}

	for _, name := range splitArtists(tag.Artist()) {
		m, err := domain.NewMusician(name)
		if err != nil {
			ft.skip = err.Error()
			return ft, nil
		}
		ft.musicians = append(ft.musicians, m)
	}

	ft.album, ft.track = album, track
	return ft, nil
}

// assemble merges file tags into albums in path order.
func assemble(files []fileTags) Result {
	res := Result{Files: len(files)}
	albums := map[domain.AlbumKey]int{}
	musicians := map[domain.MusicianKey]int{}

	for _, ft := range files {
		if ft.skip != "" {
			res.Skipped = append(res.Skipped, Skipped{Path: ft.path, Reason: ft.skip})
			continue
		}
		key := ft.album.Key()
		idx, ok := albums[key]
		if !ok {
			idx = len(res.Catalogue.Albums)
			albums[key] = idx
			res.Catalogue.Albums = append(res.Catalogue.Albums, ft.album)
		}
		a := &res.Catalogue.Albums[idx]
		a.AddTrack(ft.track)

		for _, m := range ft.musicians {
			a.AddFeaturedMusician(m.Key())
			mi, ok := musicians[m.Key()]
			if !ok {
				mi = len(res.Catalogue.Musicians)
				musicians[m.Key()] = mi
				res.Catalogue.Musicians = append(res.Catalogue.Musicians, m)
			}
			res.Catalogue.Musicians[mi].AddAlbum(key)
		}
	}
	return res
}

func catalogNumber(tag *id3v2.Tag) string {
	for _, f := range tag.GetFrames(tag.CommonID("User defined text information frame")) {
		udtf, ok := f.(id3v2.UserDefinedTextFrame)
		if ok && strings.EqualFold(udtf.Description, CatalogNumberDescription) {
			return strings.TrimSpace(udtf.Value)
		}
	}
	return ""
}

func parseYear(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 4 {
		return 0, fmt.Errorf("missing release year")
	}
	year, err := strconv.Atoi(raw[:4])
	if err != nil {
		return 0, fmt.Errorf("bad release year %q", raw)
	}
	return year, nil
}

// trackNumber reads TRCK, which may be "n" or "n/total".
func trackNumber(tag *id3v2.Tag) int {
	raw := textFrame(tag, "Track number/Position in set")
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		raw = raw[:i]
	}
	n, _ := strconv.Atoi(strings.TrimSpace(raw))
	return n
}

// duration formats the track length as m:ss, from TLEN milliseconds or,
// failing that, from the audio stream itself.
func duration(path string, tag *id3v2.Tag) string {
	var d time.Duration
	if ms, err := strconv.Atoi(strings.TrimSpace(textFrame(tag, "Length"))); err == nil && ms > 0 {
		d = time.Duration(ms) * time.Millisecond
	} else if probed, err := ProbeFunc(path); err == nil {
		d = probed
	} else {
		logging.Debug().Err(err).Str("path", path).Msg("tagscan: no track length")
	}
	return formatDuration(d)
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func textFrame(tag *id3v2.Tag, description string) string {
	f := tag.GetLastFrame(tag.CommonID(description))
	tf, ok := f.(id3v2.TextFrame)
	if !ok {
		return ""
	}
	return tf.Text
}

func splitArtists(raw string) []string {
	var names []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '/' }) {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
