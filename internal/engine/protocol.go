// Package engine talks to the out-of-process capture engine over a Unix
// socket using NDJSON. The capture engine owns the real devices and the
// recording encoder; this package exposes them as a media.Engine so the
// session controller never sees the wire.
package engine

// Command is sent from the client to the capture engine.
type Command struct {
	Cmd         string `json:"cmd"`
	FrameRate   int    `json:"frameRate,omitempty"`
	SystemAudio *bool  `json:"systemAudio,omitempty"`
	TrackID     string `json:"trackId,omitempty"`
	SystemTrack string `json:"systemTrack,omitempty"`
	MicTrack    string `json:"micTrack,omitempty"`
	VideoTrack  string `json:"videoTrack,omitempty"`
	AudioTrack  string `json:"audioTrack,omitempty"`
	MixerID     string `json:"mixerId,omitempty"`
	EncoderID   string `json:"encoderId,omitempty"`
	Format      string `json:"format,omitempty"`
}

// TrackInfo identifies a track held by the capture engine.
type TrackInfo struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// Response is returned by the engine after processing a command.
type Response struct {
	OK        bool        `json:"ok"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"` // "denied" or "unavailable"
	Supported *bool       `json:"supported,omitempty"`
	Tracks    []TrackInfo `json:"tracks,omitempty"`
	Output    *TrackInfo  `json:"output,omitempty"`
	MixerID   string      `json:"mixerId,omitempty"`
	EncoderID string      `json:"encoderId,omitempty"`
	Format    string      `json:"format,omitempty"`
}

// Event is streamed from the engine to the subscribed connection.
// Data carries segment bytes, base64-encoded on the wire.
type Event struct {
	Event     string `json:"event"`
	EncoderID string `json:"encoderId,omitempty"`
	TrackID   string `json:"trackId,omitempty"`
	Data      []byte `json:"data,omitempty"`
	Seq       *int   `json:"seq,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Acquisition failure codes carried in Response.Code.
const (
	CodeDenied      = "denied"
	CodeUnavailable = "unavailable"
)

// BoolPtr returns a pointer to a bool value. Convenience for building commands.
func BoolPtr(b bool) *bool { return &b }
