package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/hazyhaar/hnprobe/record"
	"github.com/hazyhaar/hnprobe/telemetry"
)

// APIConfig tunes the direct-API strategy.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url"` // default: APIBaseURL
	Throttle time.Duration `yaml:"throttle"` // default: 200ms
	Workers  int           `yaml:"workers"`  // default: 5, capped at maxWorkers
	Timeout  time.Duration `yaml:"timeout"`  // default: 15s

	Logger *slog.Logger `yaml:"-"`
}

func (c *APIConfig) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = APIBaseURL
	}
	if c.Throttle <= 0 {
		c.Throttle = 200 * time.Millisecond
	}
	if c.Workers <= 0 {
		c.Workers = 5
	}
	if c.Workers > maxWorkers {
		c.Workers = maxWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// APIScraper acquires front-page items through the Firebase API: one
// ranked-id-list request, then per-item detail (and first-comment detail)
// requests through a bounded worker pool that preserves input-id order.
type APIScraper struct {
	cfg APIConfig
}

// NewAPIScraper creates the strategy with defaults applied.
func NewAPIScraper(cfg APIConfig) *APIScraper {
	cfg.defaults()
	return &APIScraper{cfg: cfg}
}

func (s *APIScraper) Name() string { return "api" }

// apiItem is the subset of the item schema this strategy reads.
type apiItem struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score int     `json:"score"`
	By    string  `json:"by"`
	Text  string  `json:"text"`
	Kids  []int64 `json:"kids"`
}

// Run fetches up to limit top stories. Any transport failure aborts the
// whole run; missing response fields degrade to empty values.
func (s *APIScraper) Run(ctx context.Context, limit int) (*Result, error) {
	rec := telemetry.NewRecorder()
	c := newClient(s.cfg.Timeout, s.cfg.Throttle, rec, "")
	start := time.Now()

	body, err := c.get(ctx, s.cfg.BaseURL+"/topstories.json")
	if err != nil {
		return nil, err
	}
	var ids []int64
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("scrape: decode topstories: %w", err)
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	s.cfg.Logger.Debug("scrape: api fetching items", "count", len(ids), "workers", s.cfg.Workers)

	// Index-addressed results keep output in input-id order regardless
	// of completion order. First failure cancels the remaining workers.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make([]record.Record, len(ids))
	var (
		wg      sync.WaitGroup
		once    sync.Once
		runErr  error
		workers = make(chan struct{}, s.cfg.Workers)
	)
	fail := func(err error) {
		once.Do(func() {
			runErr = err
			cancel()
		})
	}

	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			select {
			case workers <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-workers }()

			r, err := s.fetchItem(ctx, c, id)
			if err != nil {
				fail(err)
				return
			}
			records[i] = r
		}(i, id)
	}
	wg.Wait()
	if runErr != nil {
		return nil, runErr
	}

	events := rec.Drain()
	return &Result{
		Records: records,
		Stats:   telemetry.Reduce(s.Name(), time.Since(start), events),
		Events:  events,
	}, nil
}

// fetchItem loads one story's detail plus, when present, its first
// child comment.
func (s *APIScraper) fetchItem(ctx context.Context, c *client, id int64) (record.Record, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/item/%d.json", s.cfg.BaseURL, id))
	if err != nil {
		return record.Record{}, err
	}
	var it apiItem
	if err := json.Unmarshal(body, &it); err != nil {
		return record.Record{}, fmt.Errorf("scrape: decode item %d: %w", id, err)
	}

	url := it.URL
	if url == "" {
		// Self posts have no outbound URL; point at the discussion.
		url = fmt.Sprintf("%sitem?id=%d", FrontPageURL, id)
	}

	var topAuthor, topText string
	if len(it.Kids) > 0 {
		cbody, err := c.get(ctx, fmt.Sprintf("%s/item/%d.json", s.cfg.BaseURL, it.Kids[0]))
		if err != nil {
			return record.Record{}, err
		}
		var comment apiItem
		if err := json.Unmarshal(cbody, &comment); err != nil {
			return record.Record{}, fmt.Errorf("scrape: decode comment %d: %w", it.Kids[0], err)
		}
		topAuthor = comment.By
		topText = record.CleanCommentHTML(comment.Text)
	}

	return record.Build(id, it.Title, url, it.Score, len(it.Kids), it.By, topAuthor, topText), nil
}
