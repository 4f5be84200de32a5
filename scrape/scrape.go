// Package scrape implements three independent acquisition strategies for
// the Hacker News front page — direct Firebase API, HTML parsing, and
// headless-browser automation — all normalizing into the same record
// schema and instrumenting every network exchange they perform.
package scrape

import (
	"context"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/hnprobe/record"
	"github.com/hazyhaar/hnprobe/telemetry"
)

const (
	// FrontPageURL is the HTML listing page.
	FrontPageURL = "https://news.ycombinator.com/"

	// APIBaseURL is the official Firebase API root.
	APIBaseURL = "https://hacker-news.firebaseio.com/v0"

	// maxWorkers caps caller-supplied worker-pool sizes so a
	// misconfigured run cannot hammer the site.
	maxWorkers = 16

	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/123.0 Safari/537.36"
)

// Result is the output contract of one strategy run.
type Result struct {
	Records []record.Record
	Stats   telemetry.Stats
	Events  []telemetry.RequestEvent
}

// Scraper is one acquisition strategy. Run fetches up to limit front-page
// items and returns records in listing order together with the run's
// telemetry. Transport failures abort the run; extraction gaps degrade to
// empty values.
type Scraper interface {
	Name() string
	Run(ctx context.Context, limit int) (*Result, error)
}

// Config bundles the per-strategy tuning for a registry.
type Config struct {
	API     APIConfig     `yaml:"api"`
	HTML    HTMLConfig    `yaml:"html"`
	Browser BrowserConfig `yaml:"browser"`
}

// LoadConfigFile reads strategy tuning from a YAML file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Registry returns the available scrapers keyed by method name.
func Registry(cfg Config) map[string]Scraper {
	return map[string]Scraper{
		"api":     NewAPIScraper(cfg.API),
		"html":    NewHTMLScraper(cfg.HTML),
		"browser": NewBrowserScraper(cfg.Browser),
	}
}
