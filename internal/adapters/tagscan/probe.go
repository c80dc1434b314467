package tagscan

import (
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// decoded PCM is 16-bit stereo.
const bytesPerSample = 4

// probeDuration decodes the MP3 stream headers to measure its length.
func probeDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("tagscan: open %s: %w", path, err)
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, fmt.Errorf("tagscan: decode %s: %w", path, err)
	}
	rate := decoder.SampleRate()
	length := decoder.Length()
	if rate <= 0 || length <= 0 {
		return 0, fmt.Errorf("tagscan: %s has no samples", path)
	}
	samples := length / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(rate), nil
}

// ProbeFunc allows tests to override the duration probe.
var ProbeFunc = probeDuration
