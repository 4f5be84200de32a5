package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hazyhaar/hnprobe/telemetry"
)

// client wraps http.Client with per-request instrumentation and a shared
// throttle limiter. Every GET records exactly one RequestEvent into the
// recorder — including non-2xx responses, which are recorded and then
// surfaced as errors.
type client struct {
	http      *http.Client
	rec       *telemetry.Recorder
	limiter   *rate.Limiter
	userAgent string
}

func newClient(timeout, throttle time.Duration, rec *telemetry.Recorder, userAgent string) *client {
	var lim *rate.Limiter
	if throttle > 0 {
		// One request per throttle interval, shared by all workers, so
		// the limiter doubles as the strategy's request-rate ceiling.
		lim = rate.NewLimiter(rate.Every(throttle), 1)
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &client{
		http:      &http.Client{Timeout: timeout},
		rec:       rec,
		limiter:   lim,
		userAgent: userAgent,
	}
}

// get fetches url, records the exchange, and returns the body. A non-2xx
// status is a transport failure: the event is still recorded, then an
// error is returned.
func (c *client) get(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("scrape: throttle: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("scrape: new request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scrape: read %s: %w", url, err)
	}
	elapsed := time.Since(start)

	c.rec.Record(telemetry.RequestEvent{
		URL:        url,
		Method:     http.MethodGet,
		StatusCode: resp.StatusCode,
		ElapsedMS:  float64(elapsed) / float64(time.Millisecond),
		BytesRead:  int64(len(body)),
		Timestamp:  time.Now(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scrape: http %d for %s", resp.StatusCode, url)
	}
	return body, nil
}
