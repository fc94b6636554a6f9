// Package config loads the c4ac configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/creatorsforacause/api"
	"github.com/hazyhaar/creatorsforacause/datewatch"
)

// Config is the top-level configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Render  RenderConfig  `yaml:"render"`
	Site    SiteConfig    `yaml:"site"`
	Browser BrowserConfig `yaml:"browser"`
}

// APIConfig locates the remote fundraiser/streams API.
type APIConfig struct {
	api.Endpoints `yaml:",inline"`
	// Host decides between the two endpoints, as the page's hostname does
	// in a browser. Empty selects production.
	Host    string        `yaml:"host"`
	Timeout time.Duration `yaml:"timeout"`
}

// RenderConfig controls the timestamp renderer.
type RenderConfig struct {
	Locale    string        `yaml:"locale"`    // BCP 47 or POSIX; empty = host locale
	TimeZone  string        `yaml:"time_zone"` // IANA name; empty = local zone
	Class     string        `yaml:"class"`
	Attribute string        `yaml:"attribute"`
	Debounce  time.Duration `yaml:"debounce"`
	MaxBuffer int           `yaml:"max_buffer"`
}

// SiteConfig controls page building and the preview server.
type SiteConfig struct {
	Template  string `yaml:"template"` // empty = embedded template
	StaticDir string `yaml:"static_dir"`
	Listen    string `yaml:"listen"`
}

// BrowserConfig controls Chrome for the live command.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	Headless         *bool    `yaml:"headless"`
	ResourceBlocking []string `yaml:"resource_blocking"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadFile reads a YAML configuration file. An empty path returns Default.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if _, err := cfg.Render.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.Production == "" {
		c.API.Production = api.DefaultEndpoints.Production
	}
	if c.API.Development == "" {
		c.API.Development = api.DefaultEndpoints.Development
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = 10 * time.Second
	}
	if c.Render.Class == "" {
		c.Render.Class = datewatch.DefaultClass
	}
	if c.Render.Attribute == "" {
		c.Render.Attribute = datewatch.DefaultAttribute
	}
	if c.Render.MaxBuffer <= 0 {
		c.Render.MaxBuffer = 1000
	}
	if c.Site.Listen == "" {
		c.Site.Listen = "127.0.0.1:8000"
	}
	if c.Browser.Headless == nil {
		h := true
		c.Browser.Headless = &h
	}
}

// BaseURL returns the API base URL selected by Host.
func (a APIConfig) BaseURL() string {
	return api.BaseURL(a.Host, a.Endpoints)
}

// Location resolves TimeZone.
func (r RenderConfig) Location() (*time.Location, error) {
	if r.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(r.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("config: time_zone %q: %w", r.TimeZone, err)
	}
	return loc, nil
}

// Renderer converts the section to a datewatch.Config. The logger is left
// for the caller.
func (r RenderConfig) Renderer() datewatch.Config {
	loc, err := r.Location()
	if err != nil {
		loc = nil
	}
	return datewatch.Config{
		Class:     r.Class,
		Attribute: r.Attribute,
		Locale:    r.Locale,
		Location:  loc,
		Debounce:  r.Debounce,
		MaxBuffer: r.MaxBuffer,
	}
}
