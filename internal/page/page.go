package page

import "context"

// EventKind identifies a change signal emitted by the host adapter.
type EventKind int

const (
	// EventStructure signals a document mutation that may have changed the
	// set of rendered videos.
	EventStructure EventKind = iota
	// EventScroll signals viewport movement.
	EventScroll
	// EventNavigation signals a soft (single-page) navigation.
	EventNavigation
	// EventCandidate signals that a platform detector observed a fresh
	// candidate asynchronously, bypassing the polling path.
	EventCandidate
)

// Event is one change signal from the host adapter.
type Event struct {
	Kind EventKind
	// Platform is set on EventCandidate pushes.
	Platform string
}

// Rect is an element's bounding box in viewport coordinates.
type Rect struct {
	Top    int
	Left   int
	Width  int
	Height int
}

// VerticalCenter returns the vertical midpoint of the rectangle.
func (r Rect) VerticalCenter() int {
	return r.Top + r.Height/2
}

// VideoInfo is a host-side observation of one rendered video player.
type VideoInfo struct {
	// MountPoint identifies where an indicator attaches for this player.
	// It stays stable while the player element remains in the document.
	MountPoint string
	Bounds     Rect
	Playing    bool
	SourceURL  string
	Title      string
	Channel    string
	Attributes map[string]string
}

// Snapshot is the host's view of the current document state. Snapshots are
// cheap, immutable value captures; detectors operate on them without
// touching the live document.
type Snapshot struct {
	URL            string
	ViewportHeight int
	Videos         []VideoInfo
}

// PlaybackState captures the observable playback settings of a video so
// they can be restored after sampling.
type PlaybackState struct {
	Position float64
	Paused   bool
	Muted    bool
	Rate     float64
}

// VideoHandle is a live reference to a rendered video element.
type VideoHandle interface {
	// Duration returns the video duration in seconds, or 0 when the
	// metadata is not yet available.
	Duration(ctx context.Context) (float64, error)
	// Seek moves playback to the given position and returns once the
	// host reports the seek completed or ctx is done.
	Seek(ctx context.Context, seconds float64) error
	Playback(ctx context.Context) (PlaybackState, error)
	SetPlayback(ctx context.Context, state PlaybackState) error
	Bounds(ctx context.Context) (Rect, error)
}

// Session is the host adapter for one open page. Implementations bridge to
// whatever renders the document; the engine never assumes more than this
// surface.
type Session interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Video resolves a live handle for the player at the given mount
	// point. Returns an error when the mount point left the document.
	Video(ctx context.Context, mountPoint string) (VideoHandle, error)
	// Capture encodes a still image of the given viewport region.
	Capture(ctx context.Context, region Rect, quality float64) ([]byte, error)
	// Events delivers change signals until Close. The channel is owned by
	// the session and closed on Close.
	Events() <-chan Event
	Close() error
}
