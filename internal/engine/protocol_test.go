package engine

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCommandMarshalOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(Command{Cmd: "probe"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"cmd":"probe"}` {
		t.Errorf("probe command = %s", data)
	}
}

func TestCommandMarshalAcquireDisplay(t *testing.T) {
	cmd := Command{
		Cmd:         "acquireDisplay",
		FrameRate:   30,
		SystemAudio: BoolPtr(true),
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"cmd":"acquireDisplay"`, `"frameRate":30`, `"systemAudio":true`} {
		if !strings.Contains(s, want) {
			t.Errorf("command %s missing %s", s, want)
		}
	}
}

func TestCommandMarshalSystemAudioFalse(t *testing.T) {
	// An explicit false must survive onto the wire; only nil is omitted.
	data, err := json.Marshal(Command{Cmd: "acquireDisplay", SystemAudio: BoolPtr(false)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"systemAudio":false`) {
		t.Errorf("command = %s, want explicit systemAudio:false", data)
	}
}

func TestResponseUnmarshalFailure(t *testing.T) {
	line := `{"ok":false,"error":"user dismissed the picker","code":"denied"}`
	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.OK {
		t.Error("ok should be false")
	}
	if resp.Code != CodeDenied {
		t.Errorf("code = %q, want denied", resp.Code)
	}
	if resp.Error != "user dismissed the picker" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestResponseUnmarshalTracks(t *testing.T) {
	line := `{"ok":true,"tracks":[{"id":"t1","kind":"video"},{"id":"t2","kind":"audio"}]}`
	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(resp.Tracks))
	}
	if resp.Tracks[0].Kind != "video" || resp.Tracks[1].Kind != "audio" {
		t.Errorf("tracks = %+v", resp.Tracks)
	}
}

func TestEventUnmarshalSegment(t *testing.T) {
	// encoding/json decodes []byte from base64: "aGVsbG8=" is "hello".
	line := `{"event":"segment","encoderId":"enc-1","data":"aGVsbG8=","seq":3}`
	var ev Event
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Event != "segment" || ev.EncoderID != "enc-1" {
		t.Errorf("event = %+v", ev)
	}
	if string(ev.Data) != "hello" {
		t.Errorf("data = %q, want hello", ev.Data)
	}
	if ev.Seq == nil || *ev.Seq != 3 {
		t.Errorf("seq = %v, want 3", ev.Seq)
	}
}
