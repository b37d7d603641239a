package helpers

import (
	"encoding/json"
	"sync"
)

// Recorder captures emitted channel events as decoded JSON objects.
type Recorder struct {
	mu     sync.Mutex
	events []map[string]interface{}
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit records event as it would appear on the wire.
func (r *Recorder) Emit(event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		panic(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		panic(err)
	}
	r.mu.Lock()
	r.events = append(r.events, m)
	r.mu.Unlock()
}

// Events returns every recorded event in order.
func (r *Recorder) Events() []map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]interface{}(nil), r.events...)
}

// Types returns the type field of every recorded event in order.
func (r *Recorder) Types() []string {
	events := r.Events()
	types := make([]string, 0, len(events))
	for _, e := range events {
		t, _ := e["type"].(string)
		types = append(types, t)
	}
	return types
}

// OfType returns the recorded events with the given type.
func (r *Recorder) OfType(eventType string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, e := range r.Events() {
		if e["type"] == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
