package scrape

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/hnprobe/record"
	"github.com/hazyhaar/hnprobe/telemetry"
)

// HTMLConfig tunes the HTML-document strategy.
type HTMLConfig struct {
	BaseURL   string        `yaml:"base_url"`   // default: FrontPageURL
	Throttle  time.Duration `yaml:"throttle"`   // default: 500ms
	Timeout   time.Duration `yaml:"timeout"`    // default: 15s
	UserAgent string        `yaml:"user_agent"` // default: desktop Chrome UA

	Logger *slog.Logger `yaml:"-"`
}

func (c *HTMLConfig) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = FrontPageURL
	}
	if c.Throttle <= 0 {
		c.Throttle = 500 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// HTMLScraper acquires front-page items by fetching and parsing the
// listing markup, with one further discussion-page fetch per item that
// has comments. Strictly sequential.
type HTMLScraper struct {
	cfg HTMLConfig
}

// NewHTMLScraper creates the strategy with defaults applied.
func NewHTMLScraper(cfg HTMLConfig) *HTMLScraper {
	cfg.defaults()
	return &HTMLScraper{cfg: cfg}
}

func (s *HTMLScraper) Name() string { return "html" }

// Run fetches the listing page and up to limit items. A non-success
// status aborts the run; missing optional markup degrades to empty/zero.
func (s *HTMLScraper) Run(ctx context.Context, limit int) (*Result, error) {
	rec := telemetry.NewRecorder()
	c := newClient(s.cfg.Timeout, s.cfg.Throttle, rec, s.cfg.UserAgent)
	start := time.Now()

	body, err := c.get(ctx, s.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("scrape: parse listing: %w", err)
	}

	items, err := parseListing(doc)
	if err != nil {
		return nil, err
	}
	s.cfg.Logger.Debug("scrape: html listing parsed", "rows", len(items))

	var records []record.Record
	for i, it := range items {
		if i >= limit {
			break
		}
		points := record.ParsePoints(it.pointsText)
		comments := record.ParseComments(it.commentsText)

		var topAuthor, topText string
		if comments > 0 {
			topAuthor, topText, err = s.fetchTopComment(ctx, c, it.id)
			if err != nil {
				return nil, err
			}
		}

		records = append(records, record.Build(
			it.id,
			it.title,
			resolveRef(s.cfg.BaseURL, it.url),
			points,
			comments,
			it.author,
			topAuthor,
			topText,
		))
	}

	events := rec.Drain()
	return &Result{
		Records: records,
		Stats:   telemetry.Reduce(s.Name(), time.Since(start), events),
		Events:  events,
	}, nil
}

// fetchTopComment loads an item's discussion page and extracts the first
// top-level comment. A transport failure is fatal; a page without a
// parseable comment yields empty strings.
func (s *HTMLScraper) fetchTopComment(ctx context.Context, c *client, id int64) (author, text string, err error) {
	url := fmt.Sprintf("%sitem?id=%d", s.cfg.BaseURL, id)
	body, err := c.get(ctx, url)
	if err != nil {
		return "", "", err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("scrape: parse discussion %d: %w", id, err)
	}
	author, text = parseFirstComment(doc)
	return author, text, nil
}
