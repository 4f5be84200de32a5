// Package store archives scraper runs to SQLite so downstream analysis
// can compare strategies across collections.
//
// Import the driver in the binary:
//
//	import _ "modernc.org/sqlite"
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/hnprobe/record"
	"github.com/hazyhaar/hnprobe/scrape"
	"github.com/hazyhaar/hnprobe/telemetry"
)

// Store wraps the archive database.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the archive at path with production pragmas
// and applies the schema. Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// RunSummary is one archived run's stats row.
type RunSummary struct {
	ID        int64
	StartedAt time.Time
	Stats     telemetry.Stats
}

// SaveResult archives one completed run in a single transaction and
// returns the run id.
func (s *Store) SaveResult(ctx context.Context, startedAt time.Time, res *scrape.Result) (int64, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	r, err := tx.ExecContext(ctx, `
		INSERT INTO runs (method, started_at, total_time_s, total_requests, total_bytes, avg_latency_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		res.Stats.Method, startedAt.UnixMilli(), res.Stats.TotalTimeS,
		res.Stats.TotalRequests, res.Stats.TotalBytes, res.Stats.AvgLatencyMS,
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert run: %w", err)
	}
	runID, err := r.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: run id: %w", err)
	}

	for i, rec := range res.Records {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO records (run_id, position, post_id, title, url, points,
				comments_count, author, top_comment_author, top_comment_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, rec.PostID, rec.Title, rec.URL, rec.Points,
			rec.CommentsCount, rec.Author, rec.TopCommentAuthor, rec.TopCommentText,
		); err != nil {
			return 0, fmt.Errorf("store: insert record %d: %w", rec.PostID, err)
		}
	}

	for i, ev := range res.Events {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (run_id, position, url, method, status_code, elapsed_ms, bytes_read, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, ev.URL, ev.Method, ev.StatusCode, ev.ElapsedMS, ev.BytesRead,
			ev.Timestamp.UnixMilli(),
		); err != nil {
			return 0, fmt.Errorf("store: insert event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return runID, nil
}

// LatestRuns returns the most recent n run summaries, newest first.
func (s *Store) LatestRuns(ctx context.Context, n int) ([]RunSummary, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, method, started_at, total_time_s, total_requests, total_bytes, avg_latency_ms
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("store: latest runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var startedAt int64
		if err := rows.Scan(&r.ID, &r.Stats.Method, &startedAt, &r.Stats.TotalTimeS,
			&r.Stats.TotalRequests, &r.Stats.TotalBytes, &r.Stats.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunRecords returns a run's records in listing order.
func (s *Store) RunRecords(ctx context.Context, runID int64) ([]record.Record, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT post_id, title, url, points, comments_count, author, top_comment_author, top_comment_text
		FROM records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: run records: %w", err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var r record.Record
		if err := rows.Scan(&r.PostID, &r.Title, &r.URL, &r.Points, &r.CommentsCount,
			&r.Author, &r.TopCommentAuthor, &r.TopCommentText); err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunEvents returns a run's raw request events in capture order.
func (s *Store) RunEvents(ctx context.Context, runID int64) ([]telemetry.RequestEvent, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT url, method, status_code, elapsed_ms, bytes_read, timestamp
		FROM events WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: run events: %w", err)
	}
	defer rows.Close()

	var out []telemetry.RequestEvent
	for rows.Next() {
		var ev telemetry.RequestEvent
		var ts int64
		if err := rows.Scan(&ev.URL, &ev.Method, &ev.StatusCode, &ev.ElapsedMS, &ev.BytesRead, &ts); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		ev.Timestamp = time.UnixMilli(ts)
		out = append(out, ev)
	}
	return out, rows.Err()
}
