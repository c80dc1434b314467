package domain

// TrackKey identifies a track by value.
type TrackKey struct {
	Name        string
	Duration    string
	Genre       string
	TrackNumber int
}

// Track is a single recording on an album.
type Track struct {
	Name        string   `json:"name" validate:"required,notblank,max=100"`
	Duration    string   `json:"duration" validate:"required,notblank"`
	Genre       string   `json:"genre" validate:"required,notblank"`
	TrackNumber int      `json:"track_number" validate:"min=1,max=499"`
	Reviews     []string `json:"reviews" validate:"dive,required"`
}

// NewTrack validates and returns a track without reviews.
func NewTrack(name, duration, genre string, trackNumber int) (Track, error) {
	t := Track{Name: name, Duration: duration, Genre: genre, TrackNumber: trackNumber, Reviews: []string{}}
	if err := check("track", t); err != nil {
		return Track{}, err
	}
	return t, nil
}

// Key returns the track's identity.
func (t Track) Key() TrackKey {
	return TrackKey{Name: t.Name, Duration: t.Duration, Genre: t.Genre, TrackNumber: t.TrackNumber}
}

// SetReviews replaces the free-text reviews; empty entries are rejected.
func (t *Track) SetReviews(reviews []string) error {
	next := *t
	next.Reviews = reviews
	if err := check("track", next); err != nil {
		return err
	}
	t.Reviews = reviews
	return nil
}

// Rating is a critic score for an album. Ratings compare by value.
type Rating struct {
	Score  int    `json:"score" validate:"min=1,max=5"`
	Source string `json:"source" validate:"required,notblank"`
}

// NewRating validates and returns a rating.
func NewRating(score int, source string) (Rating, error) {
	r := Rating{Score: score, Source: source}
	if err := check("rating", r); err != nil {
		return Rating{}, err
	}
	return r, nil
}
