// Package media defines the capture-device and encoder abstractions the
// session controller drives. A concrete Engine supplies display and
// microphone streams, an audio mixer, and a segment-emitting encoder;
// the controller never touches devices directly.
package media

import "errors"

// Acquisition failures reported by an Engine.
var (
	// ErrAcquisitionDenied means the user or host refused the capture request.
	ErrAcquisitionDenied = errors.New("capture permission denied")
	// ErrAcquisitionUnavailable means no matching device or capability exists.
	ErrAcquisitionUnavailable = errors.New("capture source unavailable")
)

// Kind identifies what a track carries.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Constraints describe a display-capture request.
type Constraints struct {
	// FrameRate is the target video frame rate.
	FrameRate int
	// SystemAudio requests the host's combined system audio where offered.
	SystemAudio bool
}

// Segment is one incrementally emitted chunk of encoded recording data.
type Segment []byte

// Track is a live media track owned by one recording attempt.
// Stop is idempotent; stopping an already-stopped track is a no-op.
type Track interface {
	ID() string
	Kind() Kind
	Stop()
	// OnEnded registers a callback fired when the host ends the track on its
	// own (for example the host UI's "stop sharing" control). At most one
	// callback is kept; registering replaces any previous one.
	OnEnded(func())
}

// Stream is an ordered set of tracks from one acquisition call.
type Stream struct {
	tracks []Track
}

// NewStream builds a stream over the given tracks.
func NewStream(tracks ...Track) *Stream {
	return &Stream{tracks: tracks}
}

// Tracks returns every track in the stream.
func (s *Stream) Tracks() []Track {
	if s == nil {
		return nil
	}
	return s.tracks
}

// VideoTrack returns the first video track, or nil.
func (s *Stream) VideoTrack() Track {
	return s.firstOfKind(KindVideo)
}

// AudioTrack returns the first audio track, or nil.
func (s *Stream) AudioTrack() Track {
	return s.firstOfKind(KindAudio)
}

func (s *Stream) firstOfKind(k Kind) Track {
	if s == nil {
		return nil
	}
	for _, t := range s.tracks {
		if t.Kind() == k {
			return t
		}
	}
	return nil
}

// Mixer owns the audio-processing graph combining two source tracks into one
// output track. Close is idempotent and may be called on a partially built
// graph.
type Mixer interface {
	Output() Track
	Close() error
}

// Encoder wraps a combined video+audio pair in a recording encoder. Callbacks
// must be registered before Start. Stop is idempotent: the encoder guarantees
// the stop callback fires at most once per attempt, regardless of how many
// stop requests race.
type Encoder interface {
	// OnSegment is invoked for each emitted chunk, in emission order.
	OnSegment(func(Segment))
	// OnStop is invoked once, after the final flush.
	OnStop(func())
	// OnError is invoked when encoding fails mid-recording.
	OnError(func(error))
	Start() error
	Stop()
	Format() Format
}

// Engine is the host environment's capture capability. Implementations:
// the daemon-backed engine (internal/engine) and the in-process synthetic
// engine used for demos and tests.
type Engine interface {
	// Probe reports whether display capture and a recording encoder are both
	// available. Pure check: no side effects, never errors.
	Probe() bool
	// Supports reports whether the engine can encode the given format.
	Supports(Format) bool
	// AcquireDisplay requests a screen/window capture stream. The stream
	// carries a video track and, when SystemAudio was requested and the host
	// offers it, a system-audio track.
	AcquireDisplay(Constraints) (*Stream, error)
	// AcquireMicrophone requests a microphone stream with one audio track.
	AcquireMicrophone() (*Stream, error)
	// NewMixer connects both input tracks to a single destination node.
	NewMixer(system, mic Track) (Mixer, error)
	// NewEncoder builds an encoder over the video track and the mixed audio
	// track. A zero Format selects the engine's unparameterized default.
	NewEncoder(video, audio Track, format Format) (Encoder, error)
}
