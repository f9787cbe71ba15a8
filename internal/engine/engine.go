package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jfelder/screencap/internal/media"
)

// Engine adapts the capture-engine protocol to media.Engine. It holds two
// connections: one for commands, one subscribed to the event stream, with a
// reader goroutine dispatching events to the tracks and encoders they name.
type Engine struct {
	cmd *Client
	ev  *Client

	mu       sync.Mutex
	tracks   map[string]*remoteTrack
	encoders map[string]*remoteEncoder
}

// Dial connects both channels and starts the event reader.
func Dial(socketPath string) (*Engine, error) {
	cmd, err := Connect(socketPath)
	if err != nil {
		return nil, err
	}
	ev, err := Connect(socketPath)
	if err != nil {
		cmd.Close()
		return nil, err
	}
	if _, err := ev.SendCommand(Command{Cmd: "subscribe"}); err != nil {
		cmd.Close()
		ev.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	e := &Engine{
		cmd:      cmd,
		ev:       ev,
		tracks:   make(map[string]*remoteTrack),
		encoders: make(map[string]*remoteEncoder),
	}
	go e.readEvents()
	return e, nil
}

// Close shuts down both connections.
func (e *Engine) Close() error {
	e.cmd.Close()
	return e.ev.Close()
}

func (e *Engine) readEvents() {
	for {
		ev, err := e.ev.ReadEvent()
		if err != nil {
			return
		}
		e.dispatch(ev)
	}
}

func (e *Engine) dispatch(ev Event) {
	switch ev.Event {
	case "segment":
		if enc := e.encoderByID(ev.EncoderID); enc != nil {
			enc.emit(ev.Data)
		}
	case "encoderStopped":
		if enc := e.encoderByID(ev.EncoderID); enc != nil {
			enc.stopped()
		}
	case "trackEnded":
		if tr := e.trackByID(ev.TrackID); tr != nil {
			tr.ended()
		}
	case "error":
		if enc := e.encoderByID(ev.EncoderID); enc != nil {
			enc.failed(errors.New(ev.Message))
		}
	}
}

func (e *Engine) trackByID(id string) *remoteTrack {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracks[id]
}

func (e *Engine) encoderByID(id string) *remoteEncoder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encoders[id]
}

// Probe implements media.Engine. A failed round trip reads as unsupported
// rather than an error.
func (e *Engine) Probe() bool {
	resp, err := e.cmd.SendCommand(Command{Cmd: "probe"})
	if err != nil || !resp.OK {
		return false
	}
	return resp.Supported != nil && *resp.Supported
}

// Supports implements media.Engine.
func (e *Engine) Supports(f media.Format) bool {
	resp, err := e.cmd.SendCommand(Command{Cmd: "supports", Format: f.MIME()})
	if err != nil || !resp.OK {
		return false
	}
	return resp.Supported != nil && *resp.Supported
}

// AcquireDisplay implements media.Engine. The call blocks until the user
// grants or denies the host's picker.
func (e *Engine) AcquireDisplay(c media.Constraints) (*media.Stream, error) {
	resp, err := e.cmd.SendCommand(Command{
		Cmd:         "acquireDisplay",
		FrameRate:   c.FrameRate,
		SystemAudio: BoolPtr(c.SystemAudio),
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, respError(resp)
	}
	return e.registerStream(resp.Tracks), nil
}

// AcquireMicrophone implements media.Engine.
func (e *Engine) AcquireMicrophone() (*media.Stream, error) {
	resp, err := e.cmd.SendCommand(Command{Cmd: "acquireMicrophone"})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, respError(resp)
	}
	return e.registerStream(resp.Tracks), nil
}

// NewMixer implements media.Engine.
func (e *Engine) NewMixer(system, mic media.Track) (media.Mixer, error) {
	resp, err := e.cmd.SendCommand(Command{
		Cmd:         "mix",
		SystemTrack: system.ID(),
		MicTrack:    mic.ID(),
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK || resp.Output == nil {
		return nil, respError(resp)
	}
	return &remoteMixer{
		engine: e,
		id:     resp.MixerID,
		output: e.registerTrack(*resp.Output),
	}, nil
}

// NewEncoder implements media.Engine. The engine echoes the format it will
// actually produce, which may differ from the request when the request was
// the unparameterized default.
func (e *Engine) NewEncoder(video, audio media.Track, format media.Format) (media.Encoder, error) {
	resp, err := e.cmd.SendCommand(Command{
		Cmd:        "encode",
		VideoTrack: video.ID(),
		AudioTrack: audio.ID(),
		Format:     format.MIME(),
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK || resp.EncoderID == "" {
		return nil, respError(resp)
	}
	actual := format
	if resp.Format != "" {
		actual = parseFormat(resp.Format)
	}
	enc := &remoteEncoder{engine: e, id: resp.EncoderID, format: actual}
	e.mu.Lock()
	e.encoders[enc.id] = enc
	e.mu.Unlock()
	return enc, nil
}

func (e *Engine) registerStream(infos []TrackInfo) *media.Stream {
	tracks := make([]media.Track, 0, len(infos))
	for _, info := range infos {
		tracks = append(tracks, e.registerTrack(info))
	}
	return media.NewStream(tracks...)
}

func (e *Engine) registerTrack(info TrackInfo) *remoteTrack {
	tr := &remoteTrack{engine: e, id: info.ID, kind: media.Kind(info.Kind)}
	e.mu.Lock()
	e.tracks[info.ID] = tr
	e.mu.Unlock()
	return tr
}

// respError maps a failure response onto the media acquisition sentinels.
func respError(resp Response) error {
	msg := resp.Error
	if msg == "" {
		msg = "capture engine refused the request"
	}
	switch resp.Code {
	case CodeDenied:
		return fmt.Errorf("%s: %w", msg, media.ErrAcquisitionDenied)
	case CodeUnavailable:
		return fmt.Errorf("%s: %w", msg, media.ErrAcquisitionUnavailable)
	default:
		return errors.New(msg)
	}
}

// parseFormat turns a media type like "video/webm;codecs=vp9,opus" back into
// a media.Format.
func parseFormat(mime string) media.Format {
	rest, ok := strings.CutPrefix(mime, "video/")
	if !ok {
		return media.Format{}
	}
	container, codecs, _ := strings.Cut(rest, ";codecs=")
	return media.Format{Container: container, Codecs: codecs}
}

// remoteTrack mirrors a track held by the capture engine.
type remoteTrack struct {
	engine *Engine
	id     string
	kind   media.Kind

	mu        sync.Mutex
	stopped   bool
	endedSeen bool
	onEnded   func()
}

func (t *remoteTrack) ID() string       { return t.id }
func (t *remoteTrack) Kind() media.Kind { return t.kind }

// Stop releases the engine-side track. Best-effort and idempotent.
func (t *remoteTrack) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.mu.Unlock()
	_, _ = t.engine.cmd.SendCommand(Command{Cmd: "stopTrack", TrackID: t.id})
}

func (t *remoteTrack) OnEnded(fn func()) {
	t.mu.Lock()
	t.onEnded = fn
	t.mu.Unlock()
}

// ended handles the engine reporting a device-initiated end.
func (t *remoteTrack) ended() {
	t.mu.Lock()
	if t.stopped || t.endedSeen {
		t.mu.Unlock()
		return
	}
	t.endedSeen = true
	fn := t.onEnded
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// remoteMixer mirrors the engine-side audio graph.
type remoteMixer struct {
	engine *Engine
	id     string
	output *remoteTrack

	closeOnce sync.Once
	closeErr  error
}

func (m *remoteMixer) Output() media.Track { return m.output }

// Close releases the engine-side graph. Idempotent.
func (m *remoteMixer) Close() error {
	m.closeOnce.Do(func() {
		_, m.closeErr = m.engine.cmd.SendCommand(Command{Cmd: "closeMixer", MixerID: m.id})
	})
	return m.closeErr
}

// remoteEncoder mirrors the engine-side recording encoder.
type remoteEncoder struct {
	engine *Engine
	id     string
	format media.Format

	mu        sync.Mutex
	onSegment func(media.Segment)
	onStop    func()
	onError   func(error)
	stopOnce  sync.Once
	doneOnce  sync.Once
}

func (r *remoteEncoder) OnSegment(fn func(media.Segment)) {
	r.mu.Lock()
	r.onSegment = fn
	r.mu.Unlock()
}

func (r *remoteEncoder) OnStop(fn func()) {
	r.mu.Lock()
	r.onStop = fn
	r.mu.Unlock()
}

func (r *remoteEncoder) OnError(fn func(error)) {
	r.mu.Lock()
	r.onError = fn
	r.mu.Unlock()
}

func (r *remoteEncoder) Format() media.Format { return r.format }

func (r *remoteEncoder) Start() error {
	resp, err := r.engine.cmd.SendCommand(Command{Cmd: "startEncode", EncoderID: r.id})
	if err != nil {
		return err
	}
	if !resp.OK {
		return respError(resp)
	}
	return nil
}

// Stop asks the engine to flush and stop. If the request cannot be sent the
// stop callback fires locally so the attempt still completes.
func (r *remoteEncoder) Stop() {
	r.stopOnce.Do(func() {
		if _, err := r.engine.cmd.SendCommand(Command{Cmd: "stopEncode", EncoderID: r.id}); err != nil {
			r.stopped()
		}
	})
}

func (r *remoteEncoder) emit(data []byte) {
	r.mu.Lock()
	fn := r.onSegment
	r.mu.Unlock()
	if fn != nil {
		fn(media.Segment(data))
	}
}

func (r *remoteEncoder) stopped() {
	r.doneOnce.Do(func() {
		r.mu.Lock()
		fn := r.onStop
		r.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

func (r *remoteEncoder) failed(err error) {
	r.mu.Lock()
	fn := r.onError
	r.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
