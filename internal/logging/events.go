package logging

import (
	"context"
	"sort"
	"sync"
)

// EventKind names an audit event emitted by the gens and lists editors.
type EventKind string

const (
	EventGenCreate      EventKind = "gens.editor.create"
	EventGenEdit        EventKind = "gens.editor.edit"
	EventGenTest        EventKind = "gens.editor.test"
	EventGenBackup      EventKind = "gens.editor.backup"
	EventGenResult      EventKind = "gens.result"
	EventGenResultLimit EventKind = "gens.result.ratelimit"
	EventGenAccessKey   EventKind = "gens.editor.access_key"
	EventListCreate     EventKind = "lists.editor.create"
)

// EventSink receives fire-and-forget events.
type EventSink interface {
	Event(ctx context.Context, kind EventKind, payload map[string]any)
}

// LogEventSink writes events as info records.
type LogEventSink struct {
	logger Logger
}

// NewLogEventSink creates an EventSink backed by logger.
func NewLogEventSink(logger Logger) *LogEventSink {
	return &LogEventSink{logger: logger.WithComponent("events")}
}

// Event implements EventSink.
func (s *LogEventSink) Event(ctx context.Context, kind EventKind, payload map[string]any) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]interface{}, 0, 2+2*len(keys))
	fields = append(fields, "event", string(kind))
	for _, k := range keys {
		fields = append(fields, k, payload[k])
	}
	s.logger.Info(ctx, "event", fields...)
}

// RecordedEvent is one event captured by a MemoryEventSink.
type RecordedEvent struct {
	Kind    EventKind
	Payload map[string]any
}

// MemoryEventSink keeps events in memory. Used by tests and the CLI.
type MemoryEventSink struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// NewMemoryEventSink creates an empty in-memory sink.
func NewMemoryEventSink() *MemoryEventSink {
	return &MemoryEventSink{}
}

// Event implements EventSink.
func (s *MemoryEventSink) Event(_ context.Context, kind EventKind, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, RecordedEvent{Kind: kind, Payload: payload})
}

// Events returns a copy of the recorded events.
func (s *MemoryEventSink) Events() []RecordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedEvent, len(s.events))
	copy(out, s.events)
	return out
}

// OfKind returns recorded events of one kind.
func (s *MemoryEventSink) OfKind(kind EventKind) []RecordedEvent {
	var out []RecordedEvent
	for _, e := range s.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
