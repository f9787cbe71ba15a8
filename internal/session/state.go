// Package session implements the recording session controller: the state
// machine and resource-lifecycle logic that acquires capture streams, mixes
// the two audio sources, drives a time-bounded recording, and guarantees
// exactly-once cleanup on every exit path.
package session

// State is the controller's position in the attempt lifecycle.
type State int

const (
	// StateIdle: no attempt has run yet.
	StateIdle State = iota
	// StateAcquiring: streams, mixer, and encoder are being set up.
	StateAcquiring
	// StateRecording: the encoder is running and emitting segments.
	StateRecording
	// StateStopping: a stop was requested; waiting on the encoder flush.
	StateStopping
	// StateStopped: the attempt finished; a preview may be available.
	StateStopped
	// StateFailed: acquisition or encoding failed; Start may retry.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Active reports whether an attempt currently owns capture resources.
func (s State) Active() bool {
	switch s {
	case StateAcquiring, StateRecording, StateStopping:
		return true
	default:
		return false
	}
}
