// Package sse streams data change notifications to HTTP subscribers as
// server-sent events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType names the SSE event a change is sent as
type EventType string

const (
	EventRowsAdded   EventType = "rows_added"
	EventRowsEdited  EventType = "rows_edited"
	EventRowsRemoved EventType = "rows_removed"
)

// HeartbeatInterval is how often an idle stream gets a keep-alive comment
var HeartbeatInterval = 30 * time.Second

// subscriberBuffer is the number of pending changes a slow subscriber may
// hold before further changes are dropped for it
const subscriberBuffer = 32

// Change is the payload of a data change event. Row contents are never
// included.
type Change struct {
	Method   string `json:"method"`
	Schema   string `json:"schema"`
	Affected int64  `json:"affected"`
	Subject  string `json:"subject,omitempty"`
}

// subscriber is one open stream and the changes it asked for. Empty filter
// sets match everything.
type subscriber struct {
	schemas map[string]struct{}
	methods map[string]struct{}
	out     chan []byte
}

func (s *subscriber) wants(c Change) bool {
	if len(s.schemas) > 0 {
		if _, ok := s.schemas[strings.ToLower(c.Schema)]; !ok {
			return false
		}
	}
	if len(s.methods) > 0 {
		if _, ok := s.methods[c.Method]; !ok {
			return false
		}
	}
	return true
}

// Feed fans published changes out to subscribers
type Feed struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	seq         atomic.Uint64
	done        chan struct{}
	stopOnce    sync.Once
}

// NewFeed creates an empty feed
func NewFeed() *Feed {
	return &Feed{
		subscribers: make(map[*subscriber]struct{}),
		done:        make(chan struct{}),
	}
}

// Publish sends c to every subscriber whose filters match. Subscribers
// that are not keeping up miss the change.
func (f *Feed) Publish(t EventType, c Change) {
	data, err := json.Marshal(c)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal change event")
		return
	}
	message := fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", f.seq.Add(1), t, data)

	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.subscribers {
		if !s.wants(c) {
			continue
		}
		select {
		case s.out <- message:
		default:
			log.Warn().Str("schema", c.Schema).Str("method", c.Method).Msg("Change subscriber is behind, dropping event")
		}
	}
}

// Subscribers returns the number of open streams
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

// Stop ends every open stream and refuses new ones. It is safe to call
// more than once.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() { close(f.done) })
}

func (f *Feed) subscribe(s *subscriber) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
		return false
	default:
	}
	f.subscribers[s] = struct{}{}
	return true
}

func (f *Feed) unsubscribe(s *subscriber) {
	f.mu.Lock()
	delete(f.subscribers, s)
	f.mu.Unlock()
}

// filterSet collects repeated or comma-separated query values
func filterSet(values []string, lower bool) map[string]struct{} {
	set := make(map[string]struct{})
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			part = strings.TrimSpace(part)
			if lower {
				part = strings.ToLower(part)
			}
			if part != "" {
				set[part] = struct{}{}
			}
		}
	}
	return set
}

// ServeHTTP streams changes until the client goes away or the feed stops.
// The schema and method query parameters narrow the stream, e.g.
// ?schema=users&method=add,remove.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	s := &subscriber{
		schemas: filterSet(query["schema"], true),
		methods: filterSet(query["method"], false),
		out:     make(chan []byte, subscriberBuffer),
	}
	if !f.subscribe(s) {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer f.unsubscribe(s)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	// Comment line so clients see the stream open before the first change
	_, _ = fmt.Fprint(w, ": subscribed\n\n")
	flusher.Flush()

	log.Debug().
		Int("schemas", len(s.schemas)).
		Int("methods", len(s.methods)).
		Str("remote", r.RemoteAddr).
		Msg("Change subscriber connected")
	defer log.Debug().Str("remote", r.RemoteAddr).Msg("Change subscriber disconnected")

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-f.done:
			return
		case msg := <-s.out:
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
