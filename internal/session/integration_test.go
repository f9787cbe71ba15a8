package session

import (
	"testing"
	"time"

	"github.com/jfelder/screencap/internal/media"
)

// End-to-end over the synthetic engine: real goroutines, real ticker, no
// canned callbacks.
func TestSyntheticEngineEndToEnd(t *testing.T) {
	engine := &media.SyntheticEngine{
		SegmentSize:  512,
		SegmentEvery: 5 * time.Millisecond,
	}
	c := New(engine, Options{TickInterval: 10 * time.Millisecond})

	if !c.Supported() {
		t.Fatal("synthetic engine should be supported")
	}
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Let the encoder emit a few segments.
	deadline := time.Now().Add(2 * time.Second)
	for c.SegmentCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d segments after deadline", c.SegmentCount())
		}
		time.Sleep(5 * time.Millisecond)
	}

	c.RequestStop()

	for c.State() != StateStopped {
		if time.Now().After(deadline) {
			t.Fatalf("never reached Stopped, state = %v", c.State())
		}
		time.Sleep(5 * time.Millisecond)
	}

	artifact := c.Artifact()
	if artifact == nil {
		t.Fatal("artifact missing")
	}
	if artifact.Size() == 0 || artifact.Size()%512 != 0 {
		t.Errorf("artifact size = %d, want a non-zero multiple of the segment size", artifact.Size())
	}
	if artifact.ContentType() != "video/webm" {
		t.Errorf("content type = %q", artifact.ContentType())
	}

	data, err := artifact.Preview()
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(data) != artifact.Size() {
		t.Errorf("preview bytes = %d, want %d", len(data), artifact.Size())
	}

	// Save and read back through the download path.
	path, err := artifact.SaveTo(t.TempDir())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if path == "" {
		t.Error("save returned empty path")
	}
}

func TestSyntheticEngineDeniedDisplay(t *testing.T) {
	engine := &media.SyntheticEngine{DenyDisplay: true}
	c := New(engine, Options{})

	if err := c.Start(); err == nil {
		t.Fatal("start should fail")
	}
	if c.State() != StateFailed {
		t.Fatalf("state = %v, want Failed", c.State())
	}
	if c.Err() != "capture permission was denied" {
		t.Errorf("err = %q", c.Err())
	}
}
