package session

import "time"

// Event is published on the controller's event channel so the UI can follow
// an attempt without polling. Delivery is best-effort: when the channel is
// full the event is dropped, and the controller's accessors remain the
// source of truth.
type Event interface {
	isEvent()
}

// StateEvent reports a state transition and the current error message.
type StateEvent struct {
	State State
	Err   string
}

// ElapsedEvent reports recording progress, published on every timer tick.
type ElapsedEvent struct {
	Elapsed  time.Duration
	Progress float64 // in [0,1] relative to the maximum duration
}

// PreviewEvent reports that a previewable artifact was assembled.
type PreviewEvent struct {
	Artifact *Artifact
}

func (StateEvent) isEvent()   {}
func (ElapsedEvent) isEvent() {}
func (PreviewEvent) isEvent() {}
