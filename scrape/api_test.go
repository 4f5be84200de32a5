package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fakeAPI serves a minimal Firebase-style item tree.
func fakeAPI(t *testing.T, items map[string]string, delays map[string]time.Duration) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if d, ok := delays[r.URL.Path]; ok {
			time.Sleep(d)
		}
		body, ok := items[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func testAPIScraper(baseURL string, workers int) *APIScraper {
	return NewAPIScraper(APIConfig{
		BaseURL:  baseURL,
		Throttle: time.Millisecond,
		Workers:  workers,
		Timeout:  5 * time.Second,
	})
}

func TestAPIScraper_Run(t *testing.T) {
	// WHAT: Full happy path — id list, item details, top comment with
	// paragraph markup normalized to plain text.
	srv, requests := fakeAPI(t, map[string]string{
		"/topstories.json": "[1, 2]",
		"/item/1.json":     `{"id":1,"title":"One","url":"https://example.com/one","score":50,"by":"alice","kids":[11,12]}`,
		"/item/11.json":    `{"id":11,"by":"bob","text":"<p>nice</p><p>work &amp; all</p>"}`,
		"/item/2.json":     `{"id":2,"title":"Two","score":5,"by":"carol"}`,
	}, nil)

	res, err := testAPIScraper(srv.URL, 2).Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("records: got %d, want 2", len(res.Records))
	}

	first := res.Records[0]
	if first.PostID != 1 || first.Title != "One" || first.Points != 50 || first.Author != "alice" {
		t.Errorf("first record: %+v", first)
	}
	if first.CommentsCount != 2 {
		t.Errorf("comments count from kids: got %d, want 2", first.CommentsCount)
	}
	if first.TopCommentAuthor != "bob" {
		t.Errorf("top comment author: got %q", first.TopCommentAuthor)
	}
	if first.TopCommentText != "nice\nwork & all" {
		t.Errorf("top comment text: got %q", first.TopCommentText)
	}

	// Item without kids degrades to empty comment fields and a
	// synthesized discussion URL.
	second := res.Records[1]
	if second.TopCommentAuthor != "" || second.TopCommentText != "" {
		t.Errorf("no-kids item should have empty comment fields: %+v", second)
	}
	if second.URL != fmt.Sprintf("%sitem?id=2", FrontPageURL) {
		t.Errorf("fallback url: got %q", second.URL)
	}

	// topstories + 2 items + 1 comment.
	if got := requests.Load(); got != 4 {
		t.Errorf("server requests: got %d, want 4", got)
	}
	if res.Stats.TotalRequests != len(res.Events) {
		t.Errorf("stats/events mismatch: %d vs %d", res.Stats.TotalRequests, len(res.Events))
	}
	if res.Stats.TotalRequests != 4 {
		t.Errorf("instrumented requests: got %d, want 4", res.Stats.TotalRequests)
	}
	var bytes int64
	for _, ev := range res.Events {
		bytes += ev.BytesRead
	}
	if res.Stats.TotalBytes != bytes {
		t.Errorf("total bytes is not a reduction: %d vs %d", res.Stats.TotalBytes, bytes)
	}
}

func TestAPIScraper_OrderPreservedUnderConcurrency(t *testing.T) {
	// WHAT: Output order matches input-id order even when the first
	// item completes last.
	// WHY: The pool must preserve ranking, not completion order.
	srv, _ := fakeAPI(t, map[string]string{
		"/topstories.json": "[1, 2, 3]",
		"/item/1.json":     `{"id":1,"title":"One","url":"https://example.com/1","score":1,"by":"a"}`,
		"/item/2.json":     `{"id":2,"title":"Two","url":"https://example.com/2","score":2,"by":"b"}`,
		"/item/3.json":     `{"id":3,"title":"Three","url":"https://example.com/3","score":3,"by":"c"}`,
	}, map[string]time.Duration{
		"/item/1.json": 80 * time.Millisecond,
	})

	res, err := testAPIScraper(srv.URL, 3).Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []int64{1, 2, 3}
	for i, r := range res.Records {
		if r.PostID != want[i] {
			t.Fatalf("order: position %d got id %d, want %d", i, r.PostID, want[i])
		}
	}
}

func TestAPIScraper_LimitTruncates(t *testing.T) {
	srv, _ := fakeAPI(t, map[string]string{
		"/topstories.json": "[1, 2, 3]",
		"/item/1.json":     `{"id":1,"title":"One","url":"u","score":1,"by":"a"}`,
		"/item/2.json":     `{"id":2,"title":"Two","url":"u","score":2,"by":"b"}`,
	}, nil)

	res, err := testAPIScraper(srv.URL, 2).Run(context.Background(), 2)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("limit: got %d records", len(res.Records))
	}
	seen := map[int64]bool{}
	for _, r := range res.Records {
		if seen[r.PostID] {
			t.Errorf("duplicate post id %d", r.PostID)
		}
		seen[r.PostID] = true
	}
}

func TestAPIScraper_TransportFailureAborts(t *testing.T) {
	// WHAT: A 500 on any detail request fails the whole run with no
	// partial result.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/topstories.json" {
			fmt.Fprint(w, "[1, 2]")
			return
		}
		if r.URL.Path == "/item/2.json" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"id":1,"title":"One","url":"u","score":1,"by":"a"}`)
	}))
	defer srv.Close()

	res, err := testAPIScraper(srv.URL, 2).Run(context.Background(), 30)
	if err == nil {
		t.Fatal("expected error")
	}
	if res != nil {
		t.Errorf("partial result returned: %+v", res)
	}
}

func TestAPIScraper_TopstoriesFailureAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := testAPIScraper(srv.URL, 2).Run(context.Background(), 5); err == nil {
		t.Fatal("expected error")
	}
}

func TestAPIConfig_WorkerCeiling(t *testing.T) {
	// WHAT: Caller-supplied pool sizes are clamped.
	s := NewAPIScraper(APIConfig{Workers: 500})
	if s.cfg.Workers != maxWorkers {
		t.Errorf("workers: got %d, want %d", s.cfg.Workers, maxWorkers)
	}
}
