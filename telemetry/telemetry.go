// Package telemetry captures per-request network instrumentation for
// scraper runs: an append-only event log and the reduction of that log
// into summary statistics.
package telemetry

import (
	"sync"
	"time"
)

// RequestEvent is one completed network exchange. Immutable once recorded.
type RequestEvent struct {
	URL        string    `json:"url"`
	Method     string    `json:"method"`
	StatusCode int       `json:"status_code"`
	ElapsedMS  float64   `json:"elapsed_ms"`
	BytesRead  int64     `json:"bytes_read"`
	Timestamp  time.Time `json:"timestamp"`
}

// Stats summarises one scraper run. Every counter except TotalTimeS is a
// pure reduction over the event log; TotalTimeS is wall clock measured by
// the caller so it also reflects throttle idle time.
type Stats struct {
	Method        string  `json:"method"`
	TotalTimeS    float64 `json:"total_time_s"`
	TotalRequests int     `json:"total_requests"`
	TotalBytes    int64   `json:"total_bytes"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
}

// Recorder is a thread-safe append-only log of RequestEvents. Multiple
// workers may Record concurrently; Drain returns a snapshot copy.
type Recorder struct {
	mu     sync.Mutex
	events []RequestEvent
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one event. Never rejects.
func (r *Recorder) Record(ev RequestEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Len returns the number of events recorded so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Drain returns a copy of the accumulated events in capture order.
func (r *Recorder) Drain() []RequestEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RequestEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Reduce folds an event log into Stats. AvgLatencyMS is 0 when the log
// is empty.
func Reduce(method string, wall time.Duration, events []RequestEvent) Stats {
	var bytes int64
	var latency float64
	for _, ev := range events {
		bytes += ev.BytesRead
		latency += ev.ElapsedMS
	}
	avg := 0.0
	if len(events) > 0 {
		avg = latency / float64(len(events))
	}
	return Stats{
		Method:        method,
		TotalTimeS:    wall.Seconds(),
		TotalRequests: len(events),
		TotalBytes:    bytes,
		AvgLatencyMS:  avg,
	}
}
