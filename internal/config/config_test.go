package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecm.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Server.Addr != ":8080" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Feed.Enabled() {
		t.Error("feed should be disabled by default")
	}
	if cfg.Feed.Backoff != 500*time.Millisecond || cfg.Worker.Workers != 2 {
		t.Errorf("feed/worker defaults: %+v %+v", cfg.Feed, cfg.Worker)
	}
}

func TestLoadFile_Precedence(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: badger
  path: /var/lib/ecm
server:
  addr: ":9090"
  cors_origins: [https://ecm.example]
feed:
  url: https://feed.example/catalogue
  interval: 15m
`)
	t.Setenv("ECM_SERVER_ADDR", ":7070")
	t.Setenv("ECM_FEED_MAX_RETRIES", "5")
	t.Setenv("ECM_FEED_SCOPES", "catalogue.read, concerts.read")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Storage.Driver != "badger" || cfg.Storage.Path != "/var/lib/ecm" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("env should override file: addr = %q", cfg.Server.Addr)
	}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, []string{"https://ecm.example"}) {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Feed.Interval != 15*time.Minute || cfg.Feed.MaxRetries != 5 {
		t.Errorf("feed = %+v", cfg.Feed)
	}
	if !reflect.DeepEqual(cfg.Feed.Scopes, []string{"catalogue.read", "concerts.read"}) {
		t.Errorf("scopes = %v", cfg.Feed.Scopes)
	}
	if !cfg.Feed.Enabled() {
		t.Error("feed should be enabled")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "unknown driver", body: "storage:\n  driver: postgres\n"},
		{name: "bad log level", env: map[string]string{"ECM_LOGGING_LEVEL": "loud"}},
		{name: "zero workers", env: map[string]string{"ECM_WORKER_WORKERS": "0"}},
		{name: "client id without token url", body: "feed:\n  url: https://feed.example\n  client_id: ecm\n"},
		{name: "bad feed url", env: map[string]string{"ECM_FEED_URL": "not a url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.body != "" {
				path = writeConfig(t, tt.body)
			}
			if _, err := LoadFile(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":1\"\n")
	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"ECM_STORAGE_DRIVER":      "storage.driver",
		"ECM_FEED_CLIENT_SECRET":  "feed.client_secret",
		"ECM_SERVER_CORS_ORIGINS": "server.cors_origins",
		"ECM_DEBUG":               "debug",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
