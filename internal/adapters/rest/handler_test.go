package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/ewilliams-labs/ecmcatalog/internal/adapters/feed"
	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
	"github.com/ewilliams-labs/ecmcatalog/internal/worker"
)

// --- Mocks ---

type mockMiner struct {
	err       error
	gotK      int
	gotStart  int
	gotEnd    int
	gotTarget domain.Album
	musicians []domain.Musician
	albums    []domain.Album
	years     []int
	concerts  []domain.Concert
}

func (m *mockMiner) MostProlificMusicians(ctx context.Context, k, startYear, endYear int) ([]domain.Musician, error) {
	m.gotK, m.gotStart, m.gotEnd = k, startYear, endYear
	return m.musicians, m.err
}

func (m *mockMiner) MostTalentedMusicians(ctx context.Context, k int) ([]domain.Musician, error) {
	m.gotK = k
	return m.musicians, m.err
}

func (m *mockMiner) MostSocialMusicians(ctx context.Context, k int) ([]domain.Musician, error) {
	m.gotK = k
	return m.musicians, m.err
}

func (m *mockMiner) BusiestYears(ctx context.Context, k int) ([]int, error) {
	m.gotK = k
	return m.years, m.err
}

func (m *mockMiner) MostSimilarAlbums(ctx context.Context, k int, album domain.Album) ([]domain.Album, error) {
	m.gotK, m.gotTarget = k, album
	return m.albums, m.err
}

func (m *mockMiner) HighestRatedAlbums(ctx context.Context, k int) ([]domain.Album, error) {
	m.gotK = k
	return m.albums, m.err
}

func (m *mockMiner) MostSellingAlbums(ctx context.Context, k int) ([]domain.Album, error) {
	m.gotK = k
	return m.albums, m.err
}

func (m *mockMiner) FindNextConcerts(ctx context.Context, k int) ([]domain.Concert, error) {
	m.gotK = k
	return m.concerts, m.err
}

type mockCatalog struct {
	musicians map[string]domain.Musician
	albums    map[domain.AlbumKey]domain.Album
	query     string
}

func (m *mockCatalog) GetMusician(ctx context.Context, name string) (domain.Musician, error) {
	if mu, ok := m.musicians[name]; ok {
		return mu, nil
	}
	return domain.Musician{}, domain.ErrNotFound
}

func (m *mockCatalog) GetAlbum(ctx context.Context, key domain.AlbumKey) (domain.Album, error) {
	if a, ok := m.albums[key]; ok {
		return a, nil
	}
	return domain.Album{}, domain.ErrNotFound
}

func (m *mockCatalog) SearchAlbums(ctx context.Context, query string) ([]domain.Album, error) {
	m.query = query
	var out []domain.Album
	for _, a := range m.albums {
		out = append(out, a)
	}
	return out, nil
}

type mockImports struct {
	err       error
	submitted []domain.Catalogue
	sources   []string
	jobs      map[string]worker.Job
}

func (m *mockImports) Submit(source string, c domain.Catalogue) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.submitted = append(m.submitted, c)
	m.sources = append(m.sources, source)
	return "job-1", nil
}

func (m *mockImports) Status(id string) (worker.Job, error) {
	if j, ok := m.jobs[id]; ok {
		return j, nil
	}
	return worker.Job{}, domain.ErrNotFound
}

type mockFeed struct {
	catalogue domain.Catalogue
	err       error
}

func (m *mockFeed) FetchCatalogue(ctx context.Context) (domain.Catalogue, error) {
	return m.catalogue, m.err
}

var koln = domain.Album{ReleaseYear: 1975, RecordNumber: "ECM 1064/65", Name: "The Köln Concert"}

type fixture struct {
	miner   *mockMiner
	catalog *mockCatalog
	imports *mockImports
	handler *Handler
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		miner: &mockMiner{},
		catalog: &mockCatalog{
			musicians: map[string]domain.Musician{"Keith Jarrett": {Name: "Keith Jarrett", Albums: []domain.AlbumKey{koln.Key()}}},
			albums:    map[domain.AlbumKey]domain.Album{koln.Key(): koln},
		},
		imports: &mockImports{jobs: map[string]worker.Job{"job-1": {ID: "job-1", State: worker.StateDone}}},
	}
	f.handler = NewHandler(f.miner, f.catalog, f.imports, opts)
	return f
}

func (f *fixture) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

// --- Tests ---

func TestHealthCheck(t *testing.T) {
	f := newFixture(Options{})
	rec := f.do(http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(Options{})
	f.do(http.MethodGet, "/health", "", "")
	rec := f.do(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ecm_api_requests_total") {
		t.Fatalf("metrics status %d, body missing api counter", rec.Code)
	}
}

func TestMiningEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		setup      func(*mockMiner)
		wantStatus int
		wantCode   string
		wantK      int
	}{
		{name: "prolific", target: "/mining/prolific?k=3&start=1970&end=1979", wantStatus: http.StatusOK, wantK: 3},
		{name: "talented", target: "/mining/talented?k=2", wantStatus: http.StatusOK, wantK: 2},
		{name: "social", target: "/mining/social?k=1", wantStatus: http.StatusOK, wantK: 1},
		{name: "busiest years", target: "/mining/busiest-years?k=5", wantStatus: http.StatusOK, wantK: 5},
		{name: "highest rated", target: "/mining/highest-rated?k=4", wantStatus: http.StatusOK, wantK: 4},
		{name: "most selling", target: "/mining/most-selling?k=4", wantStatus: http.StatusOK, wantK: 4},
		{name: "next concerts", target: "/mining/next-concerts?k=2", wantStatus: http.StatusOK, wantK: 2},
		{name: "missing k", target: "/mining/talented", wantStatus: http.StatusBadRequest, wantCode: errCodeInvalidArgument},
		{name: "non-integer k", target: "/mining/social?k=many", wantStatus: http.StatusBadRequest, wantCode: errCodeInvalidArgument},
		{name: "bad start year", target: "/mining/prolific?k=1&start=soon", wantStatus: http.StatusBadRequest, wantCode: errCodeInvalidArgument},
		{
			name:   "invalid argument from miner",
			target: "/mining/most-selling?k=99",
			setup: func(m *mockMiner) {
				m.err = domain.Invalid("mostSelling", "k=99 exceeds 3 albums")
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   errCodeInvalidArgument,
		},
		{
			name:       "repository failure",
			target:     "/mining/busiest-years?k=1",
			setup:      func(m *mockMiner) { m.err = errors.New("disk on fire") },
			wantStatus: http.StatusInternalServerError,
			wantCode:   errCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(Options{})
			if tt.setup != nil {
				tt.setup(f.miner)
			}
			rec := f.do(http.MethodGet, tt.target, "", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if got := decodeError(t, rec); got.Code != tt.wantCode {
					t.Fatalf("code = %q, want %q", got.Code, tt.wantCode)
				}
				return
			}
			if f.miner.gotK != tt.wantK {
				t.Fatalf("k = %d, want %d", f.miner.gotK, tt.wantK)
			}
		})
	}
}

func TestMostProlific_PassesBounds(t *testing.T) {
	f := newFixture(Options{})
	f.miner.musicians = []domain.Musician{{Name: "Keith Jarrett"}}
	rec := f.do(http.MethodGet, "/mining/prolific?k=3&start=1970&end=1979", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.miner.gotStart != 1970 || f.miner.gotEnd != 1979 {
		t.Fatalf("bounds = %d..%d", f.miner.gotStart, f.miner.gotEnd)
	}
	var resp resultsResponse[domain.Musician]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.K != 3 || len(resp.Results) != 1 || resp.Results[0].Name != "Keith Jarrett" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestMostSimilar(t *testing.T) {
	query := url.Values{"k": {"2"}, "year": {"1975"}, "record": {"ECM 1064/65"}, "name": {"The Köln Concert"}}

	f := newFixture(Options{})
	rec := f.do(http.MethodGet, "/mining/similar?"+query.Encode(), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	if f.miner.gotTarget.Key() != koln.Key() {
		t.Fatalf("target = %v", f.miner.gotTarget.Key())
	}

	// An unknown album is handed to the miner by key; its rejection is a 400.
	query.Set("name", "Unknown Album")
	f.miner.err = domain.Invalid("most similar albums", "album is not in the catalogue")
	rec = f.do(http.MethodGet, "/mining/similar?"+query.Encode(), "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown target status = %d (body %s)", rec.Code, rec.Body.String())
	}
	if got := decodeError(t, rec).Code; got != "INVALID_ARGUMENT" {
		t.Fatalf("unknown target code = %q", got)
	}
	want := domain.AlbumKey{ReleaseYear: 1975, RecordNumber: "ECM 1064/65", Name: "Unknown Album"}
	if f.miner.gotTarget.Key() != want {
		t.Fatalf("unknown target passed as %v", f.miner.gotTarget.Key())
	}
	f.miner.err = nil

	query.Del("record")
	rec = f.do(http.MethodGet, "/mining/similar?"+query.Encode(), "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing record status = %d", rec.Code)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	f := newFixture(Options{})

	if rec := f.do(http.MethodGet, "/musicians/Keith%20Jarrett", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("musician status = %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/musicians/Nobody%20Here", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing musician status = %d", rec.Code)
	}

	lookup := url.Values{"year": {"1975"}, "record": {"ECM 1064/65"}, "name": {"The Köln Concert"}}
	rec := f.do(http.MethodGet, "/albums/lookup?"+lookup.Encode(), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("album lookup status = %d", rec.Code)
	}
	var a domain.Album
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil || a.Key() != koln.Key() {
		t.Fatalf("album = %+v, %v", a, err)
	}

	if rec := f.do(http.MethodGet, "/albums?q=koln", "", ""); rec.Code != http.StatusOK || f.catalog.query != "koln" {
		t.Fatalf("search status = %d, query = %q", rec.Code, f.catalog.query)
	}
}

func TestSubmitImport(t *testing.T) {
	const jsonDoc = `{"albums": [{"year": 1975, "record": "ECM 1064/65", "name": "The Köln Concert"}]}`
	const yamlDoc = "albums:\n  - {year: 1974, record: ECM 1050, name: Belonging}\n"

	tests := []struct {
		name        string
		contentType string
		body        string
		queueErr    error
		wantStatus  int
	}{
		{"json document", "application/json", jsonDoc, nil, http.StatusAccepted},
		{"yaml document", "application/yaml", yamlDoc, nil, http.StatusAccepted},
		{"untyped json document", "", jsonDoc, nil, http.StatusAccepted},
		{"plain text yaml document", "text/plain", yamlDoc, nil, http.StatusAccepted},
		{"unsupported type", "text/csv", "a,b", nil, http.StatusUnsupportedMediaType},
		{"invalid album", "application/json", `{"albums": [{"year": 1950, "record": "X", "name": "Early"}]}`, nil, http.StatusBadRequest},
		{"malformed body", "application/json", `{"albums": 3}`, nil, http.StatusBadRequest},
		{"queue full", "application/json", jsonDoc, worker.ErrQueueFull, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(Options{})
			f.imports.err = tt.queueErr
			rec := f.do(http.MethodPost, "/imports", tt.contentType, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusAccepted {
				return
			}
			if rec.Header().Get("Location") != "/imports/job-1" {
				t.Fatalf("Location = %q", rec.Header().Get("Location"))
			}
			if len(f.imports.submitted) != 1 || len(f.imports.submitted[0].Albums) != 1 {
				t.Fatalf("submitted = %+v", f.imports.submitted)
			}
		})
	}
}

func TestGetImport(t *testing.T) {
	f := newFixture(Options{})
	rec := f.do(http.MethodGet, "/imports/job-1", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"done"`) {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(http.MethodGet, "/imports/job-2", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job status = %d", rec.Code)
	}
}

func TestSyncFeed(t *testing.T) {
	tests := []struct {
		name       string
		feed       Feed
		wantStatus int
	}{
		{"not configured", nil, http.StatusNotImplemented},
		{"breaker open", &mockFeed{err: errors.Join(feed.ErrUnavailable, errors.New("open"))}, http.StatusServiceUnavailable},
		{"upstream failure", &mockFeed{err: errors.New("feed adapter: status 502")}, http.StatusBadGateway},
		{"fetched", &mockFeed{catalogue: domain.Catalogue{Albums: []domain.Album{koln}}}, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(Options{Feed: tt.feed})
			rec := f.do(http.MethodPost, "/imports/feed", "", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusAccepted && (len(f.imports.sources) != 1 || f.imports.sources[0] != "feed") {
				t.Fatalf("sources = %v", f.imports.sources)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(Options{RateLimit: 1})
	if rec := f.do(http.MethodGet, "/mining/busiest-years?k=1", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/mining/busiest-years?k=1", "", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	// Health checks sit outside the limiter.
	if rec := f.do(http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}
