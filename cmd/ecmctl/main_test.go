package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
)

const seedYAML = `
musicians:
  - name: Keith Jarrett
    albums:
      - {year: 1975, record: ECM 1064/65, name: The Köln Concert}
      - {year: 1974, record: ECM 1050, name: Belonging}
albums:
  - {year: 1975, record: ECM 1064/65, name: The Köln Concert, sales: 3500000, featured: [Keith Jarrett]}
  - {year: 1974, record: ECM 1050, name: Belonging, sales: 120000, featured: [Keith Jarrett, Jan Garbarek]}
`

// execute runs the CLI with args and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestImportMineExport(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "ecm.yaml", "storage:\n  driver: sqlite\n  path: "+filepath.Join(dir, "ecm.db")+"\nlogging:\n  level: error\n")
	seed := writeFile(t, dir, "seed.yaml", seedYAML)

	out, err := execute(t, "--config", cfg, "import", seed)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "saved 3 entities") {
		t.Fatalf("import output: %q", out)
	}

	out, err = execute(t, "--config", cfg, "mine", "most-selling", "--k", "1")
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if !strings.Contains(out, "The Köln Concert") || strings.Contains(out, "Belonging") {
		t.Fatalf("mine output: %q", out)
	}

	_, err = execute(t, "--config", cfg, "mine", "similar", "--k", "1", "--year", "1980", "--record", "ECM 9", "--name", "Missing")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("similar to an absent album: expected ErrInvalidArgument, got %v", err)
	}

	export := filepath.Join(dir, "export.json")
	if _, err := execute(t, "--config", cfg, "export", export); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(export)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), `"record": "ECM 1050"`) {
		t.Fatalf("export missing album: %s", data)
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	if err := printResult(&buf, "yaml", []int{1975, 1974}); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if buf.String() != "- 1975\n- 1974\n" {
		t.Fatalf("yaml output: %q", buf.String())
	}
	if err := printResult(&buf, "xml", nil); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
