package media

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SyntheticEngine is an in-process Engine that fabricates capture tracks and
// an encoder emitting deterministic dummy segments. It backs `-engine
// synthetic` demo runs and the controller tests; no real devices are touched.
type SyntheticEngine struct {
	// Unsupported makes Probe report false.
	Unsupported bool
	// DenyDisplay and DenyMicrophone fail the corresponding acquisition.
	DenyDisplay    bool
	DenyMicrophone bool
	// OmitSystemAudio returns a display stream without a system-audio track.
	OmitSystemAudio bool
	// SegmentSize and SegmentEvery shape the synthetic encoder output.
	// Zero values fall back to 32 KiB every 500 ms.
	SegmentSize  int
	SegmentEvery time.Duration
}

// Probe implements Engine.
func (e *SyntheticEngine) Probe() bool {
	return !e.Unsupported
}

// Supports reports webm containers as encodable, mirroring the common host
// support matrix the preference list was written against.
func (e *SyntheticEngine) Supports(f Format) bool {
	if e.Unsupported {
		return false
	}
	return f.Container == "webm"
}

// AcquireDisplay implements Engine.
func (e *SyntheticEngine) AcquireDisplay(c Constraints) (*Stream, error) {
	if e.DenyDisplay {
		return nil, fmt.Errorf("display capture: %w", ErrAcquisitionDenied)
	}
	tracks := []Track{newSyntheticTrack(KindVideo)}
	if c.SystemAudio && !e.OmitSystemAudio {
		tracks = append(tracks, newSyntheticTrack(KindAudio))
	}
	return NewStream(tracks...), nil
}

// AcquireMicrophone implements Engine.
func (e *SyntheticEngine) AcquireMicrophone() (*Stream, error) {
	if e.DenyMicrophone {
		return nil, fmt.Errorf("microphone capture: %w", ErrAcquisitionDenied)
	}
	return NewStream(newSyntheticTrack(KindAudio)), nil
}

// NewMixer implements Engine. The synthetic graph is a single output track
// standing in for the destination node.
func (e *SyntheticEngine) NewMixer(system, mic Track) (Mixer, error) {
	if system == nil || mic == nil {
		return nil, fmt.Errorf("mixer requires both input tracks")
	}
	return &syntheticMixer{output: newSyntheticTrack(KindAudio)}, nil
}

// NewEncoder implements Engine.
func (e *SyntheticEngine) NewEncoder(video, audio Track, format Format) (Encoder, error) {
	if video == nil || audio == nil {
		return nil, fmt.Errorf("encoder requires a video and an audio track")
	}
	size := e.SegmentSize
	if size <= 0 {
		size = 32 * 1024
	}
	every := e.SegmentEvery
	if every <= 0 {
		every = 500 * time.Millisecond
	}
	return &syntheticEncoder{format: format, size: size, every: every}, nil
}

// SyntheticTrack is the Track implementation fabricated by SyntheticEngine.
// EndNow simulates a device-initiated end, such as the host's own stop
// control.
type SyntheticTrack struct {
	id   string
	kind Kind

	mu      sync.Mutex
	stopped bool
	ended   bool
	onEnded func()
}

func newSyntheticTrack(k Kind) *SyntheticTrack {
	return &SyntheticTrack{id: uuid.NewString(), kind: k}
}

func (t *SyntheticTrack) ID() string { return t.id }

func (t *SyntheticTrack) Kind() Kind { return t.kind }

// Stop implements Track; repeated calls are no-ops.
func (t *SyntheticTrack) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

// Stopped reports whether Stop has been called. Used by tests to verify
// cleanup released the track.
func (t *SyntheticTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *SyntheticTrack) OnEnded(fn func()) {
	t.mu.Lock()
	t.onEnded = fn
	t.mu.Unlock()
}

// EndNow fires the ended callback once, unless the track was already stopped.
func (t *SyntheticTrack) EndNow() {
	t.mu.Lock()
	if t.stopped || t.ended {
		t.mu.Unlock()
		return
	}
	t.ended = true
	fn := t.onEnded
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type syntheticMixer struct {
	output *SyntheticTrack

	mu     sync.Mutex
	closed bool
}

func (m *syntheticMixer) Output() Track { return m.output }

// Close is idempotent.
func (m *syntheticMixer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type syntheticEncoder struct {
	format Format
	size   int
	every  time.Duration

	onSegment func(Segment)
	onStop    func()
	onError   func(error)

	mu      sync.Mutex
	started bool
	done    chan struct{}
	stop    sync.Once
	seq     int
}

func (e *syntheticEncoder) OnSegment(fn func(Segment)) { e.onSegment = fn }
func (e *syntheticEncoder) OnStop(fn func())           { e.onStop = fn }
func (e *syntheticEncoder) OnError(fn func(error))     { e.onError = fn }
func (e *syntheticEncoder) Format() Format             { return e.format }

func (e *syntheticEncoder) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return fmt.Errorf("encoder already started")
	}
	e.started = true
	e.done = make(chan struct{})
	go e.run(e.done)
	return nil
}

func (e *syntheticEncoder) run(done chan struct{}) {
	ticker := time.NewTicker(e.every)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			e.emit()
		}
	}
}

func (e *syntheticEncoder) emit() {
	e.mu.Lock()
	seq := e.seq
	e.seq++
	fn := e.onSegment
	e.mu.Unlock()
	if fn == nil {
		return
	}
	seg := make(Segment, e.size)
	for i := range seg {
		seg[i] = byte(seq)
	}
	fn(seg)
}

// Stop flushes one final segment and fires the stop callback exactly once.
func (e *syntheticEncoder) Stop() {
	e.stop.Do(func() {
		e.mu.Lock()
		started := e.started
		done := e.done
		e.mu.Unlock()
		if !started {
			return
		}
		close(done)
		e.emit()
		if e.onStop != nil {
			e.onStop()
		}
	})
}
