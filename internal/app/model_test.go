package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jfelder/screencap/internal/history"
	"github.com/jfelder/screencap/internal/media"
	"github.com/jfelder/screencap/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

var errFake = errors.New("disk full")

func keyMsg(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel() Model {
	controller := session.New(&media.SyntheticEngine{}, session.Options{})
	return New(controller, nil, "")
}

func TestNewModel(t *testing.T) {
	m := newTestModel()
	if !m.supported {
		t.Error("synthetic engine should be supported")
	}
	if m.state != session.StateIdle {
		t.Errorf("state = %v, want Idle", m.state)
	}
	if m.artifact != nil {
		t.Error("new model should have no artifact")
	}
}

func TestNewModelUnsupported(t *testing.T) {
	controller := session.New(&media.SyntheticEngine{Unsupported: true}, session.Options{})
	m := New(controller, nil, "")
	if m.supported {
		t.Error("model should report unsupported")
	}
}

func TestElapsedEvent(t *testing.T) {
	m := newTestModel()

	m.handleEvent(session.ElapsedEvent{Elapsed: 42 * time.Second, Progress: 0.2333})

	if m.elapsed != 42*time.Second {
		t.Errorf("elapsed = %v", m.elapsed)
	}
	if m.progress != 0.2333 {
		t.Errorf("progress = %v", m.progress)
	}
}

func TestStateEventRecording(t *testing.T) {
	m := newTestModel()
	m.errorMessage = "stale"
	m.savedPath = "/tmp/stale"

	m.handleEvent(session.StateEvent{State: session.StateAcquiring})

	if m.errorMessage != "" {
		t.Error("new attempt should clear stale error")
	}
	if m.savedPath != "" {
		t.Error("new attempt should clear stale saved path")
	}

	m.handleEvent(session.StateEvent{State: session.StateRecording})
	if m.state != session.StateRecording {
		t.Errorf("state = %v", m.state)
	}
	if m.statusText != "Recording" {
		t.Errorf("status = %q", m.statusText)
	}
}

func TestFailedEventIsTransient(t *testing.T) {
	m := newTestModel()

	cmd := m.handleEvent(session.StateEvent{State: session.StateFailed, Err: "capture permission was denied"})

	if m.errorMessage != "capture permission was denied" {
		t.Errorf("error = %q", m.errorMessage)
	}
	if !m.errorTransient {
		t.Error("failure message should be transient")
	}
	if cmd == nil {
		t.Error("failed event should schedule a clear command")
	}

	updated, _ := m.Update(ClearTransientErrorMsg{})
	model := updated.(Model)
	if model.errorMessage != "" {
		t.Error("transient error should clear")
	}
}

func TestPreviewEvent(t *testing.T) {
	m := newTestModel()

	artifact, err := session.BuildArtifact(
		[]media.Segment{[]byte("data")},
		media.Format{Container: "webm"},
		time.Now(),
	)
	if err != nil {
		t.Fatalf("build artifact: %v", err)
	}

	m.handleEvent(session.PreviewEvent{Artifact: artifact})

	if m.artifact != artifact {
		t.Error("preview event should set the artifact")
	}
}

func TestStoppedRecordsAttempt(t *testing.T) {
	m := newTestModel()
	m.handleEvent(session.StateEvent{State: session.StateRecording})

	cmd := m.handleEvent(session.StateEvent{State: session.StateStopped})
	if cmd == nil {
		t.Fatal("stopped after recording should record an attempt")
	}
	if _, ok := cmd().(AttemptRecordedMsg); !ok {
		t.Error("record command should yield AttemptRecordedMsg")
	}
}

func TestStoppedWithoutAttemptDoesNotRecord(t *testing.T) {
	m := newTestModel()

	// Stopped arriving while idle (no active attempt preceding it).
	if cmd := m.handleEvent(session.StateEvent{State: session.StateStopped}); cmd != nil {
		t.Error("no attempt row should be written without a preceding active state")
	}
}

func TestDownloadGatedOnArtifact(t *testing.T) {
	m := newTestModel()
	m.width = 80
	m.height = 24

	if _, cmd := m.handleKey(keyMsg("d")); cmd != nil {
		t.Error("download without artifact should be a no-op")
	}

	artifact, err := session.BuildArtifact(
		[]media.Segment{[]byte("data")},
		media.Format{Container: "webm"},
		time.Now(),
	)
	if err != nil {
		t.Fatalf("build artifact: %v", err)
	}
	m.artifact = artifact
	m.outDir = t.TempDir()

	_, cmd := m.handleKey(keyMsg("d"))
	if cmd == nil {
		t.Fatal("download with artifact should run")
	}
	msg, ok := cmd().(DownloadResultMsg)
	if !ok {
		t.Fatalf("msg = %T, want DownloadResultMsg", cmd())
	}
	if msg.Err != nil {
		t.Fatalf("download: %v", msg.Err)
	}
	if !strings.HasSuffix(msg.Path, ".webm") {
		t.Errorf("path = %q", msg.Path)
	}
}

func TestSpaceGatedWhileUnsupported(t *testing.T) {
	controller := session.New(&media.SyntheticEngine{Unsupported: true}, session.Options{})
	m := New(controller, nil, "")

	if _, cmd := m.handleKey(keyMsg(" ")); cmd != nil {
		t.Error("start should be disabled while unsupported")
	}
}

func TestSpaceStopsWhileRecording(t *testing.T) {
	m := newTestModel()
	m.state = session.StateRecording

	_, cmd := m.handleKey(keyMsg(" "))
	if cmd == nil {
		t.Fatal("space while recording should stop")
	}
	if _, ok := cmd().(StopRequestedMsg); !ok {
		t.Error("space while recording should request a stop")
	}
}

func TestDownloadResult(t *testing.T) {
	m := newTestModel()

	updated, _ := m.Update(DownloadResultMsg{Path: "/tmp/out/recording.webm"})
	model := updated.(Model)
	if model.savedPath != "/tmp/out/recording.webm" {
		t.Errorf("savedPath = %q", model.savedPath)
	}

	updated, cmd := m.Update(DownloadResultMsg{Err: errFake})
	model = updated.(Model)
	if model.errorMessage == "" {
		t.Error("failed download should surface an error")
	}
	if cmd == nil {
		t.Error("failed download should schedule a clear")
	}
}

func TestHistoryLoaded(t *testing.T) {
	m := newTestModel()

	updated, _ := m.Update(HistoryLoadedMsg{Attempts: []history.Attempt{
		{ID: "a", Outcome: history.OutcomeCompleted},
		{ID: "b", Outcome: history.OutcomeFailed},
	}})
	model := updated.(Model)
	if len(model.attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(model.attempts))
	}
}

func TestViewRenders(t *testing.T) {
	m := newTestModel()
	if got := m.View(); got != "Initializing..." {
		t.Errorf("zero-width view = %q", got)
	}

	m.width = 80
	m.height = 24
	view := m.View()
	if !strings.Contains(view, "SCREENCAP") {
		t.Error("view missing title")
	}
	if !strings.Contains(view, "IDLE") {
		t.Error("view missing idle indicator")
	}
	if !strings.Contains(view, "RECENT RECORDINGS") {
		t.Error("view missing history panel")
	}
}

func TestViewRecording(t *testing.T) {
	m := newTestModel()
	m.width = 80
	m.height = 24
	m.state = session.StateRecording
	m.elapsed = 65 * time.Second
	m.progress = 65.0 / 180.0

	view := m.View()
	if !strings.Contains(view, "REC") {
		t.Error("view missing recording indicator")
	}
	if !strings.Contains(view, "01:05") {
		t.Error("view missing elapsed clock")
	}
	if !strings.Contains(view, "03:00") {
		t.Error("view missing max duration")
	}
}

func TestFormatClock(t *testing.T) {
	if got := formatClock(0); got != "00:00" {
		t.Errorf("formatClock(0) = %q", got)
	}
	if got := formatClock(65 * time.Second); got != "01:05" {
		t.Errorf("formatClock(65s) = %q", got)
	}
	if got := formatClock(3 * time.Minute); got != "03:00" {
		t.Errorf("formatClock(3m) = %q", got)
	}
	if got := formatClock(-time.Second); got != "00:00" {
		t.Errorf("formatClock(-1s) = %q", got)
	}
}
