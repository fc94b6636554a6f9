package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.API.Production != "https://creatorsforacause.fly.dev" {
		t.Errorf("production = %q", cfg.API.Production)
	}
	if cfg.API.Development != "http://localhost:8080" {
		t.Errorf("development = %q", cfg.API.Development)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
	if cfg.Render.Class != "date" || cfg.Render.Attribute != "data-unix-timestamp" {
		t.Errorf("render = %+v", cfg.Render)
	}
	if cfg.Render.MaxBuffer != 1000 {
		t.Errorf("max_buffer = %d", cfg.Render.MaxBuffer)
	}
	if cfg.Browser.Headless == nil || !*cfg.Browser.Headless {
		t.Error("headless should default to true")
	}
	if got := cfg.API.BaseURL(); got != "https://creatorsforacause.fly.dev" {
		t.Errorf("BaseURL with empty host = %q", got)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
api:
  development: http://127.0.0.1:9000
  host: localhost
  timeout: 3s
render:
  locale: fr_FR.UTF-8
  time_zone: Europe/Paris
  debounce: 50ms
site:
  listen: ":8081"
browser:
  headless: false
  resource_blocking: [images, fonts]
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := cfg.API.BaseURL(); got != "http://127.0.0.1:9000" {
		t.Errorf("BaseURL = %q", got)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
	if *cfg.Browser.Headless {
		t.Error("headless should be false")
	}
	if diff := cmp.Diff([]string{"images", "fonts"}, cfg.Browser.ResourceBlocking); diff != "" {
		t.Errorf("resource_blocking (-want +got):\n%s", diff)
	}

	rc := cfg.Render.Renderer()
	if rc.Locale != "fr_FR.UTF-8" || rc.Debounce != 50*time.Millisecond || rc.Class != "date" {
		t.Errorf("renderer config = %+v", rc)
	}
	if rc.Location == nil || rc.Location.String() != "Europe/Paris" {
		t.Errorf("location = %v", rc.Location)
	}
}

func TestParse_BadZone(t *testing.T) {
	if _, err := Parse([]byte("render:\n  time_zone: Not/AZone\n")); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

func TestParse_BadYAML(t *testing.T) {
	if _, err := Parse([]byte("api: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil || cfg.Site.Listen != "127.0.0.1:8000" {
		t.Fatalf("LoadFile(\"\") = %+v, %v", cfg, err)
	}

	path := filepath.Join(t.TempDir(), "c4ac.yaml")
	if err := os.WriteFile(path, []byte("site:\n  static_dir: ./static\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Site.StaticDir != "./static" {
		t.Errorf("static_dir = %q", cfg.Site.StaticDir)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
