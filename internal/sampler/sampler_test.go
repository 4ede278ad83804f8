package sampler_test

import (
	"context"
	"math"
	"testing"

	"scrollsafe/internal/logging"
	"scrollsafe/internal/page"
	"scrollsafe/internal/sampler"
	"scrollsafe/internal/services"
	"scrollsafe/internal/testsupport"
)

func newSampler(t *testing.T, session *testsupport.FakeSession) *sampler.Sampler {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return sampler.New(session, cfg, logging.NewNop())
}

func TestTimestampsEvenSpacing(t *testing.T) {
	stamps := sampler.Timestamps(16, 16)
	if len(stamps) != 16 {
		t.Fatalf("expected 16 timestamps, got %d", len(stamps))
	}
	for i, at := range stamps {
		want := float64(i) + 0.5
		if math.Abs(at-want) > 1e-9 {
			t.Fatalf("timestamp %d = %v, want %v", i, at, want)
		}
		if at > 16 {
			t.Fatalf("timestamp %d = %v exceeds duration", i, at)
		}
	}
}

func TestTimestampsDegenerateInputs(t *testing.T) {
	if stamps := sampler.Timestamps(0, 8); stamps != nil {
		t.Fatalf("expected nil for zero duration, got %v", stamps)
	}
	if stamps := sampler.Timestamps(10, 0); stamps != nil {
		t.Fatalf("expected nil for zero count, got %v", stamps)
	}
}

func TestCaptureProducesOrderedBatchAndRestoresPlayback(t *testing.T) {
	session := testsupport.NewFakeSession()
	video := &testsupport.FakeVideo{
		DurationValue: 16,
		State:         page.PlaybackState{Position: 3.2, Paused: false, Muted: false, Rate: 1},
		BoundsRect:    page.Rect{Width: 360, Height: 640},
	}
	session.Videos["m-1"] = video

	s := newSampler(t, session)
	frames, err := s.Capture(context.Background(), "m-1", 4, nil)
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}
	if len(video.SeekHistory) != 4 {
		t.Fatalf("expected 4 seeks, got %v", video.SeekHistory)
	}
	for i, at := range video.SeekHistory {
		want := 16 * (float64(i) + 0.5) / 4
		if math.Abs(at-want) > 1e-9 {
			t.Fatalf("seek %d = %v, want %v", i, at, want)
		}
	}

	// First push pauses and mutes, last push restores the snapshot.
	states := video.SetStates()
	if len(states) < 2 {
		t.Fatalf("expected pause and restore pushes, got %d", len(states))
	}
	if !states[0].Paused || !states[0].Muted {
		t.Fatalf("expected forced pause+mute, got %+v", states[0])
	}
	final := states[len(states)-1]
	if final.Paused || final.Muted || final.Position != 3.2 || final.Rate != 1 {
		t.Fatalf("playback not restored: %+v", final)
	}
}

func TestCaptureFailureMidBatchAbortsAndRestores(t *testing.T) {
	session := testsupport.NewFakeSession()
	session.CaptureFailAfter = 2
	video := &testsupport.FakeVideo{
		DurationValue: 10,
		State:         page.PlaybackState{Position: 1, Rate: 1},
	}
	session.Videos["m-1"] = video

	s := newSampler(t, session)
	if _, err := s.Capture(context.Background(), "m-1", 8, nil); err == nil {
		t.Fatal("expected capture failure")
	} else if !services.IsCapture(err) {
		t.Fatalf("expected capture classification, got %v", err)
	}

	states := video.SetStates()
	final := states[len(states)-1]
	if final.Paused || final.Muted || final.Position != 1 {
		t.Fatalf("playback not restored after failure: %+v", final)
	}
}

func TestCaptureWaitsForDurationMetadata(t *testing.T) {
	session := testsupport.NewFakeSession()
	video := &testsupport.FakeVideo{
		DurationValue:      12,
		DurationDelayCalls: 3,
		State:              page.PlaybackState{Rate: 1},
	}
	session.Videos["m-1"] = video

	s := newSampler(t, session)
	frames, err := s.Capture(context.Background(), "m-1", 2, nil)
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
}

func TestCaptureMissingDurationIsTerminal(t *testing.T) {
	session := testsupport.NewFakeSession()
	video := &testsupport.FakeVideo{
		DurationValue:      0,
		DurationDelayCalls: 0,
		State:              page.PlaybackState{Rate: 1},
	}
	session.Videos["m-1"] = video

	s := newSampler(t, session)
	if _, err := s.Capture(context.Background(), "m-1", 2, nil); err == nil {
		t.Fatal("expected metadata failure")
	} else if !services.IsCapture(err) {
		t.Fatalf("expected capture classification, got %v", err)
	}
	if session.CaptureCalls() != 0 {
		t.Fatalf("expected no captures without duration, got %d", session.CaptureCalls())
	}
}

func TestCaptureSeekTimeoutProceeds(t *testing.T) {
	session := testsupport.NewFakeSession()
	video := &testsupport.FakeVideo{
		DurationValue: 8,
		SeekBlocks:    true,
		State:         page.PlaybackState{Rate: 1},
	}
	session.Videos["m-1"] = video

	s := newSampler(t, session)
	frames, err := s.Capture(context.Background(), "m-1", 2, nil)
	if err != nil {
		t.Fatalf("expected timed-out seeks to proceed, got %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
}

func TestCaptureUnknownMountIsCaptureError(t *testing.T) {
	session := testsupport.NewFakeSession()
	s := newSampler(t, session)
	if _, err := s.Capture(context.Background(), "gone", 2, nil); err == nil {
		t.Fatal("expected error for missing mount point")
	} else if !services.IsCapture(err) {
		t.Fatalf("expected capture classification, got %v", err)
	}
}

func TestCaptureReportsProgress(t *testing.T) {
	session := testsupport.NewFakeSession()
	session.Videos["m-1"] = &testsupport.FakeVideo{
		DurationValue: 9,
		State:         page.PlaybackState{Rate: 1},
	}

	var calls [][2]int
	s := newSampler(t, session)
	if _, err := s.Capture(context.Background(), "m-1", 3, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	}); err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 progress calls, got %v", calls)
	}
	for i, call := range calls {
		if call[0] != i+1 || call[1] != 3 {
			t.Fatalf("unexpected progress call %d: %v", i, call)
		}
	}
}

func TestCaptureDefaultsToAmbientBatchSize(t *testing.T) {
	session := testsupport.NewFakeSession()
	video := &testsupport.FakeVideo{
		DurationValue: 32,
		State:         page.PlaybackState{Rate: 1},
	}
	session.Videos["m-1"] = video

	// A non-positive count means "ambient batch": the configured default
	// of 16 frames.
	s := newSampler(t, session)
	frames, err := s.Capture(context.Background(), "m-1", 0, nil)
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if len(frames) != 16 {
		t.Fatalf("expected the ambient default of 16 frames, got %d", len(frames))
	}
	if len(video.SeekHistory) != 16 {
		t.Fatalf("expected 16 seeks, got %d", len(video.SeekHistory))
	}
}
