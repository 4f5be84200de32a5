package scrape

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/hnprobe/telemetry"
)

// exchangeState tracks where one network exchange is in its CDP
// lifecycle. Exchanges leave the map when they complete; anything still
// open when the run ends never produces an event.
type exchangeState int

const (
	exchangeStarted exchangeState = iota + 1
	exchangeResponded
)

type exchange struct {
	state    exchangeState
	url      string
	method   string
	status   int
	start    time.Duration // CDP monotonic clock
	hasStart bool
}

// netlog correlates independently delivered Network lifecycle messages
// into completed RequestEvents, keyed by the protocol request id:
//
//	requestWillBeSent → started (start time, URL, method)
//	responseReceived  → responded (status; URL fallback if never started)
//	loadingFinished   → emit one event and drop the id
//
// Callbacks arrive from multiple page subscriptions, hence the mutex.
type netlog struct {
	mu   sync.Mutex
	open map[proto.NetworkRequestID]*exchange
	done []telemetry.RequestEvent
}

func newNetlog() *netlog {
	return &netlog{open: map[proto.NetworkRequestID]*exchange{}}
}

func (l *netlog) requestWillBeSent(e *proto.NetworkRequestWillBeSent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ex := l.ensure(e.RequestID)
	ex.state = exchangeStarted
	ex.start = e.Timestamp.Duration()
	ex.hasStart = true
	if e.Request != nil {
		ex.url = e.Request.URL
		ex.method = e.Request.Method
	}
}

func (l *netlog) responseReceived(e *proto.NetworkResponseReceived) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ex := l.ensure(e.RequestID)
	ex.state = exchangeResponded
	if e.Response != nil {
		ex.status = e.Response.Status
		if ex.url == "" {
			ex.url = e.Response.URL
		}
	}
}

func (l *netlog) loadingFinished(e *proto.NetworkLoadingFinished) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ex := l.ensure(e.RequestID)

	elapsed := 0.0
	if ex.hasStart {
		elapsed = float64(e.Timestamp.Duration()-ex.start) / float64(time.Millisecond)
		if elapsed < 0 {
			elapsed = 0
		}
	}
	method := ex.method
	if method == "" {
		method = http.MethodGet
	}

	l.done = append(l.done, telemetry.RequestEvent{
		URL:        ex.url,
		Method:     method,
		StatusCode: ex.status,
		ElapsedMS:  elapsed,
		BytesRead:  int64(e.EncodedDataLength),
		Timestamp:  time.Now(),
	})
	delete(l.open, e.RequestID)
}

// events returns the completed exchanges in emission order. Exchanges
// still mid-lifecycle are dropped, not reported.
func (l *netlog) events() []telemetry.RequestEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]telemetry.RequestEvent, len(l.done))
	copy(out, l.done)
	return out
}

func (l *netlog) ensure(id proto.NetworkRequestID) *exchange {
	ex, ok := l.open[id]
	if !ok {
		ex = &exchange{}
		l.open[id] = ex
	}
	return ex
}
