package media

// Format is a container+codec pair an encoder can be asked to produce.
// The zero Format is the engine's unparameterized default.
type Format struct {
	Container string // "webm", "mp4"
	Codecs    string // "vp9,opus"; empty for container default
}

// fallbackContainer is used when no preferred format reported as supported.
const fallbackContainer = "webm"

// PreferredFormats is the selection order for the recording encoder, most to
// least preferred. The last resort is the zero Format.
func PreferredFormats() []Format {
	return []Format{
		{Container: "webm", Codecs: "vp9,opus"},
		{Container: "webm", Codecs: "vp8,opus"},
		{Container: "webm"},
		{Container: "mp4"},
	}
}

// SelectFormat returns the first format the engine reports as supported.
// If none do, it returns the zero Format so the encoder falls back to its
// unparameterized default.
func SelectFormat(e Engine, prefs []Format) Format {
	for _, f := range prefs {
		if e.Supports(f) {
			return f
		}
	}
	return Format{}
}

// MIME renders the full media type, including codecs when present.
func (f Format) MIME() string {
	if f.Container == "" {
		return ""
	}
	if f.Codecs == "" {
		return "video/" + f.Container
	}
	return "video/" + f.Container + ";codecs=" + f.Codecs
}

// ContentType is the artifact content type: video/<container>, or the
// generic container type for the zero Format.
func (f Format) ContentType() string {
	if f.Container == "" {
		return "video/" + fallbackContainer
	}
	return "video/" + f.Container
}

// Extension is the artifact filename extension, dot included.
func (f Format) Extension() string {
	if f.Container == "" {
		return "." + fallbackContainer
	}
	return "." + f.Container
}
