package harness

// Emitter pushes progress events to the observer. Emit never fails: a
// transport that cannot deliver logs the failure and drops the event.
type Emitter interface {
	Emit(event interface{})
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event interface{})

// Emit calls f(event).
func (f EmitterFunc) Emit(event interface{}) { f(event) }

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(interface{}) {})
