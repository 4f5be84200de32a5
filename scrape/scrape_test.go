package scrape

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegistry(t *testing.T) {
	// WHAT: The registry exposes every strategy under its method name.
	reg := Registry(Config{})
	for _, name := range []string{"api", "html", "browser"} {
		s, ok := reg[name]
		if !ok {
			t.Fatalf("missing strategy %q", name)
		}
		if s.Name() != name {
			t.Errorf("strategy %q reports name %q", name, s.Name())
		}
	}
	if len(reg) != 3 {
		t.Errorf("registry size: got %d", len(reg))
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hnprobe.yaml")
	data := `
api:
  base_url: "http://localhost:9999/v0"
  workers: 3
html:
  user_agent: "probe/1.0"
browser:
  headful: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:9999/v0" || cfg.API.Workers != 3 {
		t.Errorf("api config: %+v", cfg.API)
	}
	if cfg.HTML.UserAgent != "probe/1.0" {
		t.Errorf("html config: %+v", cfg.HTML)
	}
	if !cfg.Browser.Headful {
		t.Errorf("browser config: %+v", cfg.Browser)
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	if _, err := LoadConfigFile("/nonexistent/hnprobe.yaml"); err == nil {
		t.Fatal("expected error")
	}
}
