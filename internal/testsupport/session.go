package testsupport

import (
	"context"
	"fmt"
	"sync"

	"scrollsafe/internal/page"
)

// FakeVideo is a scriptable page.VideoHandle.
type FakeVideo struct {
	mu sync.Mutex

	DurationValue float64
	// DurationDelayCalls returns 0 from Duration for the first n calls,
	// simulating metadata that is not yet loaded.
	DurationDelayCalls int
	durationCalls      int

	State      page.PlaybackState
	BoundsRect page.Rect

	SeekErr     error
	SeekBlocks  bool
	SeekHistory []float64

	PlaybackErr    error
	SetPlaybackErr error
	setStates      []page.PlaybackState
}

func (v *FakeVideo) Duration(context.Context) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.durationCalls++
	if v.durationCalls <= v.DurationDelayCalls {
		return 0, nil
	}
	return v.DurationValue, nil
}

func (v *FakeVideo) Seek(ctx context.Context, seconds float64) error {
	v.mu.Lock()
	v.SeekHistory = append(v.SeekHistory, seconds)
	blocks := v.SeekBlocks
	err := v.SeekErr
	v.mu.Unlock()
	if err != nil {
		return err
	}
	if blocks {
		<-ctx.Done()
		return ctx.Err()
	}
	v.mu.Lock()
	v.State.Position = seconds
	v.mu.Unlock()
	return nil
}

func (v *FakeVideo) Playback(context.Context) (page.PlaybackState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.PlaybackErr != nil {
		return page.PlaybackState{}, v.PlaybackErr
	}
	return v.State, nil
}

func (v *FakeVideo) SetPlayback(_ context.Context, state page.PlaybackState) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.SetPlaybackErr != nil {
		return v.SetPlaybackErr
	}
	v.setStates = append(v.setStates, state)
	v.State = state
	return nil
}

func (v *FakeVideo) Bounds(context.Context) (page.Rect, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.BoundsRect, nil
}

// SetStates returns every playback state pushed to the element, in order.
func (v *FakeVideo) SetStates() []page.PlaybackState {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]page.PlaybackState, len(v.setStates))
	copy(out, v.setStates)
	return out
}

// FakeSession is a scriptable page.Session.
type FakeSession struct {
	mu sync.Mutex

	Snap       *page.Snapshot
	SnapErr    error
	Videos     map[string]*FakeVideo
	CaptureErr error
	// CaptureFailAfter fails captures once this many succeeded; negative
	// disables the trip.
	CaptureFailAfter int
	captureCalls     int

	events chan page.Event
	closed bool
}

func NewFakeSession() *FakeSession {
	return &FakeSession{
		Videos:           make(map[string]*FakeVideo),
		CaptureFailAfter: -1,
		events:           make(chan page.Event, 16),
	}
}

func (s *FakeSession) Snapshot(context.Context) (*page.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SnapErr != nil {
		return nil, s.SnapErr
	}
	if s.Snap == nil {
		return &page.Snapshot{}, nil
	}
	snap := *s.Snap
	return &snap, nil
}

// SetSnapshot swaps the document state returned by Snapshot.
func (s *FakeSession) SetSnapshot(snap *page.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Snap = snap
}

// SetVideo registers a scriptable element for a mount point.
func (s *FakeSession) SetVideo(mountPoint string, video *FakeVideo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Videos[mountPoint] = video
}

func (s *FakeSession) Video(_ context.Context, mountPoint string) (page.VideoHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.Videos[mountPoint]
	if !ok {
		return nil, fmt.Errorf("mount point %q not in document", mountPoint)
	}
	return video, nil
}

func (s *FakeSession) Capture(_ context.Context, region page.Rect, _ float64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CaptureErr != nil {
		return nil, s.CaptureErr
	}
	if s.CaptureFailAfter >= 0 && s.captureCalls >= s.CaptureFailAfter {
		return nil, fmt.Errorf("capture primitive failed")
	}
	s.captureCalls++
	return []byte(fmt.Sprintf("frame-%d-%dx%d", s.captureCalls, region.Width, region.Height)), nil
}

func (s *FakeSession) Events() <-chan page.Event {
	return s.events
}

// Emit pushes a change event to the bridge.
func (s *FakeSession) Emit(event page.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events <- event
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

// CaptureCalls reports how many frames the session handed out.
func (s *FakeSession) CaptureCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captureCalls
}
