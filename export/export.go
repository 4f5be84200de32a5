// Package export writes scraper output for downstream consumers: record
// and stats CSVs with the stable column contract, and gzip-compressed
// NDJSON raw-event logs.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/hazyhaar/hnprobe/record"
	"github.com/hazyhaar/hnprobe/telemetry"
)

// recordHeader is the stable record column set. Order matters to
// downstream consumers; do not reorder.
var recordHeader = []string{
	"post_id", "title", "url", "points", "comments_count",
	"author", "top_comment_author", "top_comment_text",
}

var statsHeader = []string{
	"method", "total_time_s", "total_requests", "total_bytes", "avg_latency_ms",
}

// WriteRecordsCSV writes records to path, creating parent directories.
// Refuses an empty record set rather than writing a header-only file.
func WriteRecordsCSV(path string, records []record.Record) error {
	if len(records) == 0 {
		return fmt.Errorf("export: no records to write")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(recordHeader); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.FormatInt(r.PostID, 10),
			r.Title,
			r.URL,
			strconv.Itoa(r.Points),
			strconv.Itoa(r.CommentsCount),
			r.Author,
			r.TopCommentAuthor,
			r.TopCommentText,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("export: write record %d: %w", r.PostID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return f.Close()
}

// AppendStatsCSV appends one stats row to path, writing the header only
// when the file is new, so successive runs accumulate into one table.
func AppendStatsCSV(path string, stats telemetry.Stats) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("export: open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(statsHeader); err != nil {
			return fmt.Errorf("export: write header: %w", err)
		}
	}
	row := []string{
		stats.Method,
		strconv.FormatFloat(stats.TotalTimeS, 'f', -1, 64),
		strconv.Itoa(stats.TotalRequests),
		strconv.FormatInt(stats.TotalBytes, 10),
		strconv.FormatFloat(stats.AvgLatencyMS, 'f', -1, 64),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("export: write stats: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return f.Close()
}

// WriteEventsNDJSON writes the raw event log as gzip-compressed NDJSON,
// one event object per line.
func WriteEventsNDJSON(path string, events []telemetry.RequestEvent) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	for i, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("export: encode event %d: %w", i, err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("export: gzip close: %w", err)
	}
	return f.Close()
}
