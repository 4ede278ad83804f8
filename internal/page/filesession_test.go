package page_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scrollsafe/internal/logging"
	"scrollsafe/internal/page"
)

const sampleDocument = `{
  "url": "https://www.youtube.com/shorts/abc123",
  "viewport_height": 900,
  "videos": [
    {
      "mount_point": "player-1",
      "bounds": {"top": 100, "left": 0, "width": 420, "height": 700},
      "playing": true,
      "title": "holiday vlog",
      "duration": 34.5
    }
  ]
}`

func writeDocument(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	// Coarse filesystem timestamps can swallow rapid rewrites.
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		t.Fatalf("touch document: %v", err)
	}
}

func newFileSession(t *testing.T, path string) *page.FileSession {
	t.Helper()
	session, err := page.NewFileSession(path, 10*time.Millisecond, logging.NewNop())
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestFileSessionSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "document.json")
	writeDocument(t, path, sampleDocument)

	session := newFileSession(t, path)
	snap, err := session.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.URL != "https://www.youtube.com/shorts/abc123" || len(snap.Videos) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	video := snap.Videos[0]
	if video.MountPoint != "player-1" || !video.Playing || video.Bounds.Height != 700 {
		t.Fatalf("unexpected video info: %+v", video)
	}
}

func TestFileSessionMissingFileIsEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "document.json")
	session := newFileSession(t, path)

	snap, err := session.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.URL != "" || len(snap.Videos) != 0 {
		t.Fatalf("expected empty document, got %+v", snap)
	}
}

func TestFileSessionEmitsEventsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "document.json")
	writeDocument(t, path, sampleDocument)
	session := newFileSession(t, path)

	// Same URL, different structure.
	writeDocument(t, path, `{
	  "url": "https://www.youtube.com/shorts/abc123",
	  "viewport_height": 900,
	  "videos": []
	}`)
	waitForEvent(t, session, page.EventStructure)

	// URL change is a navigation.
	writeDocument(t, path, `{"url": "https://www.youtube.com/shorts/zzz999", "viewport_height": 900, "videos": []}`)
	waitForEvent(t, session, page.EventNavigation)
}

func TestFileSessionPushesTikTokCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "document.json")
	writeDocument(t, path, `{
	  "url": "https://www.tiktok.com/foryou",
	  "viewport_height": 900,
	  "videos": [
	    {
	      "mount_point": "feed-item-1",
	      "bounds": {"top": 0, "left": 0, "width": 420, "height": 900},
	      "playing": true,
	      "source_url": "https://www.tiktok.com/@creator/video/731"
	    }
	  ]
	}`)
	session := newFileSession(t, path)

	// The feed advancing a fresh video without a navigation is a candidate
	// push, so the bridge reacts without waiting for a poll.
	writeDocument(t, path, `{
	  "url": "https://www.tiktok.com/foryou",
	  "viewport_height": 900,
	  "videos": [
	    {
	      "mount_point": "feed-item-2",
	      "bounds": {"top": 0, "left": 0, "width": 420, "height": 900},
	      "playing": true,
	      "source_url": "https://www.tiktok.com/@creator/video/732"
	    }
	  ]
	}`)
	event := nextEvent(t, session)
	if event.Kind != page.EventCandidate || event.Platform != "tiktok" {
		t.Fatalf("expected tiktok candidate push, got %+v", event)
	}

	// Removing a video without adding one is plain structure churn.
	writeDocument(t, path, `{"url": "https://www.tiktok.com/foryou", "viewport_height": 900, "videos": []}`)
	waitForEvent(t, session, page.EventStructure)
}

func nextEvent(t *testing.T, session *page.FileSession) page.Event {
	t.Helper()
	select {
	case event, ok := <-session.Events():
		if !ok {
			t.Fatal("event channel closed")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
	}
	return page.Event{}
}

func waitForEvent(t *testing.T, session *page.FileSession, kind page.EventKind) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event, ok := <-session.Events():
			if !ok {
				t.Fatal("event channel closed")
			}
			if event.Kind == kind {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
		}
	}
}

func TestFileSessionVideoHandle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "document.json")
	writeDocument(t, path, sampleDocument)
	session := newFileSession(t, path)

	handle, err := session.Video(ctx, "player-1")
	if err != nil {
		t.Fatalf("video: %v", err)
	}
	duration, err := handle.Duration(ctx)
	if err != nil || duration != 34.5 {
		t.Fatalf("unexpected duration: %v %v", duration, err)
	}

	if err := handle.Seek(ctx, 100); err != nil {
		t.Fatalf("seek: %v", err)
	}
	state, err := handle.Playback(ctx)
	if err != nil {
		t.Fatalf("playback: %v", err)
	}
	if state.Position != 34.5 {
		t.Fatalf("seek should clamp to duration, got %v", state.Position)
	}

	if err := handle.SetPlayback(ctx, page.PlaybackState{Position: 3, Paused: true, Muted: true, Rate: 1}); err != nil {
		t.Fatalf("set playback: %v", err)
	}
	state, _ = handle.Playback(ctx)
	if !state.Paused || !state.Muted {
		t.Fatalf("playback state not applied: %+v", state)
	}

	if _, err := session.Video(ctx, "player-404"); err == nil {
		t.Fatal("expected error for unknown mount point")
	}
}

func TestFileSessionCapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "document.json")
	writeDocument(t, path, sampleDocument)
	session := newFileSession(t, path)

	frame, err := session.Capture(context.Background(), page.Rect{Top: 100, Width: 420, Height: 700}, 0.85)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if len(frame) < 4 || frame[0] != 0xFF || frame[1] != 0xD8 {
		t.Fatalf("frame missing JPEG framing: %v", frame[:2])
	}
}
