package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/hnprobe/record"
	"github.com/hazyhaar/hnprobe/telemetry"
)

// BrowserConfig tunes the headless-browser strategy.
type BrowserConfig struct {
	BaseURL     string        `yaml:"base_url"`     // default: FrontPageURL
	Throttle    time.Duration `yaml:"throttle"`     // default: 500ms
	WaitTimeout time.Duration `yaml:"wait_timeout"` // default: 10s
	Headful     bool          `yaml:"headful"`      // headless unless set

	Logger *slog.Logger `yaml:"-"`
}

func (c *BrowserConfig) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = FrontPageURL
	}
	if c.Throttle <= 0 {
		c.Throttle = 500 * time.Millisecond
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// BrowserScraper drives a headless Chrome through the listing and
// discussion pages, reading records from the live DOM. It performs no
// per-call instrumentation; telemetry is reconstructed from the CDP
// Network lifecycle stream by the netlog correlation machine.
type BrowserScraper struct {
	cfg BrowserConfig
}

// NewBrowserScraper creates the strategy with defaults applied.
func NewBrowserScraper(cfg BrowserConfig) *BrowserScraper {
	cfg.defaults()
	return &BrowserScraper{cfg: cfg}
}

func (s *BrowserScraper) Name() string { return "browser" }

// Run launches an isolated browser session, crawls up to limit listing
// rows, and tears the session down on every exit path. Navigation
// timeouts and missing listing rows are fatal; a missing comment
// degrades to empty strings.
func (s *BrowserScraper) Run(ctx context.Context, limit int) (*Result, error) {
	start := time.Now()

	l := launcher.New().
		Headless(!s.cfg.Headful).
		Set("disable-blink-features", "AutomationControlled")
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("scrape: browser launch: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("scrape: browser connect: %w", err)
	}
	defer func() {
		browser.Close()
		l.Cleanup()
	}()

	nl := newNetlog()

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("scrape: open page: %w", err)
	}
	s.watchNetwork(ctx, page, nl)

	pctx := page.Context(ctx)
	if err := pctx.Timeout(s.cfg.WaitTimeout).Navigate(s.cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("scrape: navigate %s: %w", s.cfg.BaseURL, err)
	}
	if err := pctx.Timeout(s.cfg.WaitTimeout).WaitElementsMoreThan("tr.athing", 0); err != nil {
		return nil, fmt.Errorf("scrape: waiting for listing rows: %w", err)
	}
	rows, err := pctx.Elements("tr.athing")
	if err != nil {
		return nil, fmt.Errorf("scrape: listing rows: %w", err)
	}
	s.cfg.Logger.Debug("scrape: browser listing loaded", "rows", len(rows))

	var records []record.Record
	for i, row := range rows {
		if i >= limit {
			break
		}
		r, err := s.extractRow(ctx, browser, row, nl)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	events := nl.events()
	return &Result{
		Records: records,
		Stats:   telemetry.Reduce(s.Name(), time.Since(start), events),
		Events:  events,
	}, nil
}

// watchNetwork subscribes one page (or tab) to the CDP Network lifecycle
// events feeding the shared netlog. The subscription ends when the page
// closes or ctx is cancelled.
func (s *BrowserScraper) watchNetwork(ctx context.Context, page *rod.Page, nl *netlog) {
	wait := page.Context(ctx).EachEvent(
		func(e *proto.NetworkRequestWillBeSent) { nl.requestWillBeSent(e) },
		func(e *proto.NetworkResponseReceived) { nl.responseReceived(e) },
		func(e *proto.NetworkLoadingFinished) { nl.loadingFinished(e) },
	)
	go wait()
}

// extractRow reads one listing row from the live DOM. The row id and
// title anchor are mandatory; score, author, and comment metadata
// degrade to empty/zero.
func (s *BrowserScraper) extractRow(ctx context.Context, browser *rod.Browser, row *rod.Element, nl *netlog) (record.Record, error) {
	idAttr, err := row.Attribute("id")
	if err != nil {
		return record.Record{}, fmt.Errorf("scrape: listing row id: %w", err)
	}
	if idAttr == nil {
		return record.Record{}, fmt.Errorf("scrape: listing row without id")
	}
	id, err := strconv.ParseInt(*idAttr, 10, 64)
	if err != nil {
		return record.Record{}, fmt.Errorf("scrape: listing row id %q: %w", *idAttr, err)
	}

	anchors, err := row.Elements("span.titleline a")
	if err != nil || len(anchors) == 0 {
		return record.Record{}, fmt.Errorf("scrape: row %d has no title anchor", id)
	}
	title, err := anchors.First().Text()
	if err != nil {
		return record.Record{}, fmt.Errorf("scrape: row %d title: %w", id, err)
	}
	var pageURL string
	if href, _ := anchors.First().Attribute("href"); href != nil {
		pageURL = resolveRef(s.cfg.BaseURL, *href)
	}

	var pointsText, author, commentsText, commentURL string
	if meta, err := row.Next(); err == nil && meta != nil {
		if els, _ := meta.Elements("span.score"); len(els) > 0 {
			pointsText, _ = els.First().Text()
		}
		if els, _ := meta.Elements("a.hnuser"); len(els) > 0 {
			author, _ = els.First().Text()
		}
		if els, _ := meta.Elements("td.subtext a"); len(els) > 0 {
			last := els[len(els)-1]
			commentsText, _ = last.Text()
			if href, _ := last.Attribute("href"); href != nil {
				commentURL = resolveRef(s.cfg.BaseURL, *href)
			}
		}
	}

	points := record.ParsePoints(pointsText)
	comments := record.ParseComments(commentsText)

	var topAuthor, topText string
	if comments > 0 && commentURL != "" {
		topAuthor, topText, err = s.fetchComment(ctx, browser, commentURL, nl)
		if err != nil {
			return record.Record{}, err
		}
		if s.cfg.Throttle > 0 {
			time.Sleep(s.cfg.Throttle)
		}
	}

	return record.Build(id, title, pageURL, points, comments, author, topAuthor, topText), nil
}

// fetchComment opens the discussion page in a new tab, extracts the
// first comment, and closes the tab. A wait timeout or missing comment
// markup degrades to empty strings; failing to open the tab or to
// navigate it is fatal.
func (s *BrowserScraper) fetchComment(ctx context.Context, browser *rod.Browser, url string, nl *netlog) (author, text string, err error) {
	tab, err := stealth.Page(browser)
	if err != nil {
		return "", "", fmt.Errorf("scrape: open tab: %w", err)
	}
	defer tab.Close()
	s.watchNetwork(ctx, tab, nl)

	p := tab.Context(ctx).Timeout(s.cfg.WaitTimeout)
	if err := p.Navigate(url); err != nil {
		return "", "", fmt.Errorf("scrape: navigate %s: %w", url, err)
	}
	if err := p.WaitElementsMoreThan("tr.comtr", 0); err != nil {
		s.cfg.Logger.Debug("scrape: no comment rows", "url", url, "error", err)
		return "", "", nil
	}
	rows, err := p.Elements("tr.comtr")
	if err != nil || len(rows) == 0 {
		return "", "", nil
	}
	first := rows.First()
	if els, _ := first.Elements("span.commtext"); len(els) > 0 {
		text, _ = els.First().Text()
	}
	if els, _ := first.Elements("a.hnuser"); len(els) > 0 {
		author, _ = els.First().Text()
	}
	return author, text, nil
}
