package reconciler

import (
	"encoding/json"
	"io"
	"sync"

	"pdf-reconciliation-service/pkg/logger"
)

// EventType identifies the kind of progress notification.
type EventType string

const (
	// EventLog is a free-form progress message.
	EventLog EventType = "log"
	// EventItemStarted signals that an invoice entered processing.
	EventItemStarted EventType = "item_started"
	// EventItemFinished signals that an invoice finished processing.
	EventItemFinished EventType = "item_finished"
	// EventPageStatus reports the extraction outcome of one proof page.
	EventPageStatus EventType = "page_status"
	// EventDone carries the final summary of a successful run.
	EventDone EventType = "done"
	// EventError reports a fatal failure; it is the last event of a run.
	EventError EventType = "error"
)

// Event is one progress notification emitted during a run.
type Event struct {
	Type    EventType              `json:"type"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Sink receives events as the run progresses. Implementations must accept
// events from a single goroutine without blocking the run for long.
type Sink interface {
	Emit(event Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit calls the function.
func (f SinkFunc) Emit(event Event) { f(event) }

// NopSink discards all events.
var NopSink Sink = SinkFunc(func(Event) {})

// ndjsonSink writes one JSON object per line.
type ndjsonSink struct {
	enc *json.Encoder
	log logger.Logger
	mu  sync.Mutex
}

// NewNDJSONSink creates a sink that streams events to w as NDJSON.
func NewNDJSONSink(w io.Writer) Sink {
	return &ndjsonSink{
		enc: json.NewEncoder(w),
		log: logger.GetGlobalLogger().WithComponent("event_sink"),
	}
}

func (s *ndjsonSink) Emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(event); err != nil {
		// A broken event stream must not abort the run.
		s.log.WithError(err).Warn("Failed to write event")
	}
}
