package app

import (
	"github.com/jfelder/screencap/internal/history"
	"github.com/jfelder/screencap/internal/session"
)

// ControllerEventMsg wraps an event from the session controller's stream.
type ControllerEventMsg struct {
	Event session.Event
}

// StartResultMsg carries the outcome of a Start call.
type StartResultMsg struct {
	Err error
}

// StopRequestedMsg is sent after the stop request was handed to the
// controller. The actual transition arrives via controller events.
type StopRequestedMsg struct{}

// DownloadResultMsg carries the outcome of writing the artifact to disk.
type DownloadResultMsg struct {
	Path string
	Err  error
}

// HistoryLoadedMsg carries recent attempts read from the history store.
type HistoryLoadedMsg struct {
	Attempts []history.Attempt
}

// AttemptRecordedMsg is sent after an attempt row was written.
type AttemptRecordedMsg struct {
	Err error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
