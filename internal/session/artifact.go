package session

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jfelder/screencap/internal/media"
)

var (
	// ErrEmptyArtifact is returned when no recorded bytes were retained.
	ErrEmptyArtifact = errors.New("no recorded data to build an artifact from")
	// ErrPreviewRevoked is returned once the preview handle was invalidated.
	ErrPreviewRevoked = errors.New("preview handle has been revoked")
)

// Artifact is the assembled result of one attempt: the joined segments, the
// format the encoder actually produced, and a revocable preview handle. It is
// derived from the attempt's segments on demand and owns no device resources.
type Artifact struct {
	data        []byte
	format      media.Format
	completedAt time.Time

	mu     sync.Mutex
	handle string
}

// BuildArtifact joins the retained segments, in arrival order, into a single
// previewable artifact. Building from an empty segment sequence is rejected.
func BuildArtifact(segments []media.Segment, format media.Format, completedAt time.Time) (*Artifact, error) {
	total := 0
	for _, s := range segments {
		total += len(s)
	}
	if total == 0 {
		return nil, ErrEmptyArtifact
	}
	data := make([]byte, 0, total)
	for _, s := range segments {
		data = append(data, s...)
	}
	return &Artifact{
		data:        data,
		format:      format,
		completedAt: completedAt,
		handle:      "preview:" + uuid.NewString(),
	}, nil
}

// Size is the total byte length, equal to the sum of the segment sizes.
func (a *Artifact) Size() int { return len(a.data) }

// ContentType is video/<container> for the selected format.
func (a *Artifact) ContentType() string { return a.format.ContentType() }

// CompletedAt is the attempt's completion timestamp.
func (a *Artifact) CompletedAt() time.Time { return a.completedAt }

// Filename derives the download name from the completion timestamp,
// truncated to second precision with filesystem-safe separators.
func (a *Artifact) Filename() string {
	return "recording_" + a.completedAt.Format("2006-01-02_15-04-05") + a.format.Extension()
}

// Handle returns the preview handle, or the empty string after revocation.
func (a *Artifact) Handle() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handle
}

// Preview returns the artifact bytes for playback while the handle is valid.
func (a *Artifact) Preview() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.handle == "" {
		return nil, ErrPreviewRevoked
	}
	return a.data, nil
}

// Revoke invalidates the preview handle immediately. Idempotent.
func (a *Artifact) Revoke() {
	a.mu.Lock()
	a.handle = ""
	a.mu.Unlock()
}

// SaveTo writes the artifact into dir under Filename and returns the full
// path. The download action stays valid after the preview is revoked.
func (a *Artifact) SaveTo(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, a.Filename())
	if err := os.WriteFile(path, a.data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
