package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ewilliams-labs/ecmcatalog/internal/config"
)

const seedYAML = `
musicians:
  - name: Keith Jarrett
  - name: Jan Garbarek
albums:
  - year: 1974
    record: ECM 1050
    name: Belonging
    featured: [Keith Jarrett, Jan Garbarek]
  - year: 1975
    record: ECM 1064/65
    name: The Köln Concert
    sales: 3500000
    featured: [Keith Jarrett]
`

func testConfig(driver string) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Driver: driver, Path: ":memory:"},
		Server:  config.ServerConfig{Addr: "127.0.0.1:0"},
		Worker:  config.WorkerConfig{Workers: 1, QueueSize: 4},
	}
}

func TestOpenRepository(t *testing.T) {
	for _, driver := range []string{"sqlite", "badger"} {
		t.Run(driver, func(t *testing.T) {
			repo, err := OpenRepository(config.StorageConfig{Driver: driver, Path: ":memory:"})
			if err != nil {
				t.Fatalf("OpenRepository(%s) error = %v", driver, err)
			}
			defer repo.Close()
			albums, err := repo.LoadAllAlbums(context.Background())
			if err != nil || len(albums) != 0 {
				t.Fatalf("LoadAllAlbums() = %v, %v", albums, err)
			}
		})
	}
	if _, err := OpenRepository(config.StorageConfig{Driver: "postgres"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestApp_SeedAndQuery(t *testing.T) {
	for _, driver := range []string{"sqlite", "badger"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			a, err := New(ctx, testConfig(driver))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer a.Close()

			path := filepath.Join(t.TempDir(), "seed.yaml")
			if err := os.WriteFile(path, []byte(seedYAML), 0o600); err != nil {
				t.Fatalf("write seed: %v", err)
			}
			report, err := a.Seed(ctx, path)
			if err != nil {
				t.Fatalf("Seed() error = %v", err)
			}
			if report.Albums != 2 || report.Musicians != 2 {
				t.Fatalf("report = %+v", report)
			}

			rec := httptest.NewRecorder()
			a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mining/most-selling?k=1", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), "The Köln Concert") {
				t.Fatalf("body = %s", rec.Body.String())
			}

			rec = httptest.NewRecorder()
			a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mining/similar?k=1&year=1980&record=ECM%209&name=Missing", nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("absent target status = %d body = %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), "INVALID_ARGUMENT") {
				t.Fatalf("absent target body = %s", rec.Body.String())
			}
		})
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), testConfig("sqlite"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() = %v", err)
	}
}
