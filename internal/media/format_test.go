package media

import "testing"

// supportsFunc adapts a function into the Engine methods SelectFormat uses.
type supportsFunc func(Format) bool

func (f supportsFunc) Probe() bool                              { return true }
func (f supportsFunc) Supports(fm Format) bool                  { return f(fm) }
func (f supportsFunc) AcquireDisplay(Constraints) (*Stream, error) { return nil, nil }
func (f supportsFunc) AcquireMicrophone() (*Stream, error)      { return nil, nil }
func (f supportsFunc) NewMixer(system, mic Track) (Mixer, error) { return nil, nil }
func (f supportsFunc) NewEncoder(video, audio Track, format Format) (Encoder, error) {
	return nil, nil
}

func TestSelectFormatPicksFirstSupported(t *testing.T) {
	vp8Only := supportsFunc(func(f Format) bool {
		return f.Container == "webm" && f.Codecs == "vp8,opus"
	})
	got := SelectFormat(vp8Only, PreferredFormats())
	if got.Container != "webm" || got.Codecs != "vp8,opus" {
		t.Errorf("selected = %+v, want webm/vp8,opus", got)
	}
}

func TestSelectFormatPrefersVP9(t *testing.T) {
	all := supportsFunc(func(Format) bool { return true })
	got := SelectFormat(all, PreferredFormats())
	if got.Codecs != "vp9,opus" {
		t.Errorf("selected = %+v, want vp9,opus first", got)
	}
}

func TestSelectFormatFallsBackToZero(t *testing.T) {
	none := supportsFunc(func(Format) bool { return false })
	got := SelectFormat(none, PreferredFormats())
	if got != (Format{}) {
		t.Errorf("selected = %+v, want zero Format", got)
	}
}

func TestFormatMIME(t *testing.T) {
	f := Format{Container: "webm", Codecs: "vp9,opus"}
	if got := f.MIME(); got != "video/webm;codecs=vp9,opus" {
		t.Errorf("mime = %q", got)
	}
	if got := (Format{Container: "mp4"}).MIME(); got != "video/mp4" {
		t.Errorf("mime = %q", got)
	}
	if got := (Format{}).MIME(); got != "" {
		t.Errorf("zero format mime = %q, want empty", got)
	}
}

func TestFormatContentTypeAndExtension(t *testing.T) {
	f := Format{Container: "mp4"}
	if f.ContentType() != "video/mp4" {
		t.Errorf("content type = %q", f.ContentType())
	}
	if f.Extension() != ".mp4" {
		t.Errorf("extension = %q", f.Extension())
	}

	var zero Format
	if zero.ContentType() != "video/webm" {
		t.Errorf("zero content type = %q, want video/webm", zero.ContentType())
	}
	if zero.Extension() != ".webm" {
		t.Errorf("zero extension = %q, want .webm", zero.Extension())
	}
}
