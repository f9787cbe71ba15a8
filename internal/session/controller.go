package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jfelder/screencap/internal/media"
)

const (
	// DefaultMaxDuration bounds every recording attempt.
	DefaultMaxDuration = 3 * time.Minute
	// DefaultTickInterval is the elapsed-time publication interval.
	DefaultTickInterval = 250 * time.Millisecond

	displayFrameRate = 30
)

// ErrUnsupported is returned by Start when the capability probe failed.
var ErrUnsupported = errors.New("recording is not supported in this environment")

// Options tune a Controller. Zero values select the defaults.
type Options struct {
	MaxDuration  time.Duration
	TickInterval time.Duration
	// Formats overrides the encoder preference list.
	Formats []media.Format
	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

// Controller owns the lifecycle of recording attempts. At most one attempt is
// active at a time; the attempt exclusively owns every acquired resource, and
// cleanup runs exactly once per attempt no matter which trigger ended it.
//
// All methods are safe for concurrent use. Racing termination triggers (user
// stop, display track ended, timer timeout, encoder error) funnel into
// RequestStop, whose checked state transition lets exactly one of them win.
type Controller struct {
	engine    media.Engine
	supported bool
	maxDur    time.Duration
	tick      time.Duration
	formats   []media.Format
	clock     func() time.Time
	events    chan Event

	mu         sync.Mutex
	state      State
	attemptID  string
	startedAt  time.Time
	elapsed    time.Duration
	lastErr    string
	segments   []media.Segment
	totalBytes int
	format     media.Format
	display    *media.Stream
	mic        *media.Stream
	mixer      media.Mixer
	encoder    media.Encoder
	timer      *attemptTimer
	artifact   *Artifact
	cleaned    bool
}

// New probes the engine once and returns a controller in the Idle state.
func New(engine media.Engine, opts Options) *Controller {
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if len(opts.Formats) == 0 {
		opts.Formats = media.PreferredFormats()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Controller{
		engine:    engine,
		supported: engine.Probe(),
		maxDur:    opts.MaxDuration,
		tick:      opts.TickInterval,
		formats:   opts.Formats,
		clock:     opts.Clock,
		events:    make(chan Event, 64),
		state:     StateIdle,
	}
}

// Events is the controller's notification stream. See Event for the delivery
// contract.
func (c *Controller) Events() <-chan Event { return c.events }

// Supported reports the capability probe result. When false, Start always
// fails with ErrUnsupported.
func (c *Controller) Supported() bool { return c.supported }

// Start begins a new recording attempt. Starting while an attempt is active
// is a no-op. The call suspends through stream acquisition (user-driven,
// unbounded) and returns once the encoder is running or the attempt failed.
func (c *Controller) Start() error {
	c.mu.Lock()
	if !c.supported {
		c.lastErr = ErrUnsupported.Error()
		c.mu.Unlock()
		c.publishState()
		return ErrUnsupported
	}
	if c.state.Active() {
		c.mu.Unlock()
		return nil
	}
	// Fresh attempt: revoke the stale preview and clear per-attempt state.
	if c.artifact != nil {
		c.artifact.Revoke()
		c.artifact = nil
	}
	c.attemptID = uuid.NewString()
	c.segments = nil
	c.totalBytes = 0
	c.lastErr = ""
	c.elapsed = 0
	c.format = media.Format{}
	c.cleaned = false
	c.state = StateAcquiring
	c.mu.Unlock()
	c.publishState()

	display, err := c.engine.AcquireDisplay(media.Constraints{
		FrameRate:   displayFrameRate,
		SystemAudio: true,
	})
	if err != nil {
		return c.fail(fmt.Errorf("acquire display: %w", err))
	}
	c.mu.Lock()
	c.display = display
	c.mu.Unlock()

	videoTrack := display.VideoTrack()
	if videoTrack == nil {
		return c.fail(fmt.Errorf("display stream carries no video track: %w", media.ErrAcquisitionUnavailable))
	}
	systemTrack := display.AudioTrack()
	if systemTrack == nil {
		// Both audio sources must be present before the combined stream is
		// built; a recording never starts with one source silently missing.
		return c.fail(fmt.Errorf("display stream carries no system audio track: %w", media.ErrAcquisitionUnavailable))
	}

	micStream, err := c.engine.AcquireMicrophone()
	if err != nil {
		return c.fail(fmt.Errorf("acquire microphone: %w", err))
	}
	c.mu.Lock()
	c.mic = micStream
	c.mu.Unlock()

	micTrack := micStream.AudioTrack()
	if micTrack == nil {
		return c.fail(fmt.Errorf("microphone stream carries no audio track: %w", media.ErrAcquisitionUnavailable))
	}

	mixer, err := c.engine.NewMixer(systemTrack, micTrack)
	if err != nil {
		return c.fail(fmt.Errorf("mix audio: %w", err))
	}
	c.mu.Lock()
	c.mixer = mixer
	c.mu.Unlock()

	format := media.SelectFormat(c.engine, c.formats)
	encoder, err := c.engine.NewEncoder(videoTrack, mixer.Output(), format)
	if err != nil {
		return c.fail(fmt.Errorf("create encoder: %w", err))
	}
	encoder.OnSegment(c.appendSegment)
	encoder.OnStop(c.finishStop)
	encoder.OnError(c.encoderFailed)
	c.mu.Lock()
	c.encoder = encoder
	c.format = encoder.Format()
	c.mu.Unlock()

	// The host ending the shared display feeds the same termination path as
	// the user stop and the timeout.
	videoTrack.OnEnded(c.RequestStop)

	if err := encoder.Start(); err != nil {
		return c.fail(fmt.Errorf("start encoder: %w", err))
	}

	c.mu.Lock()
	c.state = StateRecording
	c.startedAt = c.clock()
	timer := newAttemptTimer(c.clock, c.tick, c.maxDur, c.onTick, c.RequestStop)
	c.timer = timer
	c.mu.Unlock()
	timer.start()
	c.publishState()
	return nil
}

// RequestStop is the single termination entry point shared by the user stop,
// the display track ending, the timer timeout, and encoder errors. The first
// caller wins; later calls find the attempt already past Recording and
// return without effect.
func (c *Controller) RequestStop() {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return
	}
	c.state = StateStopping
	c.elapsed = c.clock().Sub(c.startedAt)
	timer := c.timer
	encoder := c.encoder
	c.mu.Unlock()
	c.publishState()

	if timer != nil {
		timer.halt()
	}
	if encoder != nil {
		encoder.Stop()
	}
}

// Close stops any active attempt and revokes the preview handle.
func (c *Controller) Close() {
	c.RequestStop()
	c.mu.Lock()
	artifact := c.artifact
	c.mu.Unlock()
	if artifact != nil {
		artifact.Revoke()
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the surfaced error message, cleared on each new Start.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Elapsed returns the attempt's elapsed recording time.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Progress returns elapsed over the maximum duration, clamped to [0,1].
func (c *Controller) Progress() float64 {
	p := float64(c.Elapsed()) / float64(c.maxDur)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// MaxDuration returns the configured recording bound.
func (c *Controller) MaxDuration() time.Duration { return c.maxDur }

// AttemptID identifies the current or most recent attempt.
func (c *Controller) AttemptID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attemptID
}

// StartedAt returns the attempt's origin timestamp.
func (c *Controller) StartedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startedAt
}

// Artifact returns the previewable result of the last completed attempt, or
// nil when none exists. It is replaced (and its preview revoked) by the next
// Start.
func (c *Controller) Artifact() *Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.artifact
}

// SegmentCount reports how many non-empty segments were retained.
func (c *Controller) SegmentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.segments)
}

// TotalBytes reports the retained segment bytes for the current attempt.
func (c *Controller) TotalBytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalBytes
}

// appendSegment buffers an emitted chunk. Empty segments are discarded,
// never appended.
func (c *Controller) appendSegment(seg media.Segment) {
	if len(seg) == 0 {
		return
	}
	c.mu.Lock()
	// The final flush may still deliver during Stopping.
	if c.state == StateRecording || c.state == StateStopping {
		c.segments = append(c.segments, seg)
		c.totalBytes += len(seg)
	}
	c.mu.Unlock()
}

// encoderFailed records a mid-recording encoder error and feeds the shared
// termination path.
func (c *Controller) encoderFailed(err error) {
	c.mu.Lock()
	if err != nil && c.lastErr == "" {
		c.lastErr = err.Error()
	}
	c.mu.Unlock()
	c.RequestStop()
}

// finishStop runs from the encoder's stop callback, which fires at most once
// per attempt. It assembles the artifact, halts the timer, and releases every
// acquired resource.
func (c *Controller) finishStop() {
	c.mu.Lock()
	if c.state != StateRecording && c.state != StateStopping {
		c.mu.Unlock()
		return
	}
	if c.state == StateRecording {
		// Encoder-initiated stop that bypassed RequestStop.
		c.elapsed = c.clock().Sub(c.startedAt)
		c.state = StateStopping
	}
	segments := c.segments
	format := c.format
	completed := c.clock()
	c.mu.Unlock()

	c.cleanup()

	artifact, err := BuildArtifact(segments, format, completed)
	c.mu.Lock()
	if err == nil {
		c.artifact = artifact
	}
	// An empty attempt still reaches Stopped; the download simply stays
	// withheld because no artifact exists.
	c.state = StateStopped
	c.mu.Unlock()
	c.publishState()
	if artifact != nil {
		c.publish(PreviewEvent{Artifact: artifact})
	}
}

// fail aborts the attempt: partial resources are released, the error message
// is surfaced, and the state allows an immediate retry.
func (c *Controller) fail(err error) error {
	c.cleanup()
	c.mu.Lock()
	c.lastErr = failureMessage(err)
	c.state = StateFailed
	c.mu.Unlock()
	c.publishState()
	return err
}

// cleanup releases every per-attempt resource exactly once. Best-effort by
// contract: stopping an already-stopped track is a no-op and a mixer close
// failure never propagates. All references are nilled so a later Start
// cannot reuse stale handles.
func (c *Controller) cleanup() {
	c.mu.Lock()
	if c.cleaned {
		c.mu.Unlock()
		return
	}
	c.cleaned = true
	display, mic, mixer, timer := c.display, c.mic, c.mixer, c.timer
	c.display = nil
	c.mic = nil
	c.mixer = nil
	c.encoder = nil
	c.timer = nil
	c.mu.Unlock()

	if timer != nil {
		timer.halt()
	}
	for _, stream := range []*media.Stream{display, mic} {
		for _, track := range stream.Tracks() {
			track.Stop()
		}
	}
	if mixer != nil {
		if out := mixer.Output(); out != nil {
			out.Stop()
		}
		_ = mixer.Close()
	}
}

func (c *Controller) onTick(elapsed time.Duration) {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return
	}
	c.elapsed = elapsed
	c.mu.Unlock()
	c.publish(ElapsedEvent{Elapsed: elapsed, Progress: c.Progress()})
}

func (c *Controller) publishState() {
	c.mu.Lock()
	ev := StateEvent{State: c.state, Err: c.lastErr}
	c.mu.Unlock()
	c.publish(ev)
}

func (c *Controller) publish(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrAcquisitionDenied):
		return "capture permission was denied"
	case errors.Is(err, media.ErrAcquisitionUnavailable):
		return "a required capture source is unavailable"
	default:
		return err.Error()
	}
}
