package detect_test

import (
	"testing"

	"scrollsafe/internal/detect"
	"scrollsafe/internal/media"
	"scrollsafe/internal/page"
)

func shortsSnapshot(videoID string, videos ...page.VideoInfo) *page.Snapshot {
	return &page.Snapshot{
		URL:            "https://www.youtube.com/shorts/" + videoID,
		ViewportHeight: 800,
		Videos:         videos,
	}
}

func TestYouTubeDetectsActiveShort(t *testing.T) {
	registry, err := detect.DefaultRegistry([]string{"youtube", "tiktok", "reels"})
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}

	snap := shortsSnapshot("abc123", page.VideoInfo{
		MountPoint: "m-1",
		Bounds:     page.Rect{Top: 100, Height: 600},
		Playing:    true,
		Title:      "  A   short  ",
		Channel:    "creator",
	})

	candidate := registry.Resolve(snap)
	if candidate == nil {
		t.Fatal("expected candidate")
	}
	if candidate.Platform != detect.PlatformYouTube || candidate.VideoID != "abc123" {
		t.Fatalf("unexpected identity: %s:%s", candidate.Platform, candidate.VideoID)
	}
	if candidate.MountPoint != "m-1" {
		t.Fatalf("unexpected mount point: %q", candidate.MountPoint)
	}
	if candidate.CanonicalURL != "https://www.youtube.com/shorts/abc123" {
		t.Fatalf("unexpected canonical url: %q", candidate.CanonicalURL)
	}
}

func TestYouTubeSkipsNonShortsPages(t *testing.T) {
	det := detect.NewYouTube()
	snap := &page.Snapshot{URL: "https://www.youtube.com/watch?v=abc123"}
	if det.Match(snap) {
		t.Fatal("watch page should not match the shorts detector")
	}
}

func TestActiveVideoPrefersPlaying(t *testing.T) {
	det := detect.NewYouTube()
	snap := shortsSnapshot("abc123",
		page.VideoInfo{MountPoint: "m-center", Bounds: page.Rect{Top: 300, Height: 200}},
		page.VideoInfo{MountPoint: "m-playing", Bounds: page.Rect{Top: 900, Height: 200}, Playing: true},
	)
	candidate := det.Detect(snap)
	if candidate == nil || candidate.MountPoint != "m-playing" {
		t.Fatalf("expected playing video to win, got %+v", candidate)
	}
}

func TestActiveVideoFallsBackToViewportCenter(t *testing.T) {
	det := detect.NewYouTube()
	snap := shortsSnapshot("abc123",
		page.VideoInfo{MountPoint: "m-top", Bounds: page.Rect{Top: 0, Height: 100}},
		page.VideoInfo{MountPoint: "m-center", Bounds: page.Rect{Top: 300, Height: 200}},
		page.VideoInfo{MountPoint: "m-bottom", Bounds: page.Rect{Top: 900, Height: 100}},
	)
	candidate := det.Detect(snap)
	if candidate == nil || candidate.MountPoint != "m-center" {
		t.Fatalf("expected centered video to win, got %+v", candidate)
	}
}

func TestTikTokIdentityFromElementLink(t *testing.T) {
	det := detect.NewTikTok()
	snap := &page.Snapshot{
		URL:            "https://www.tiktok.com/foryou",
		ViewportHeight: 800,
		Videos: []page.VideoInfo{{
			MountPoint: "feed-3",
			Bounds:     page.Rect{Top: 200, Height: 500},
			Playing:    true,
			SourceURL:  "https://www.tiktok.com/@someone/video/7312345678901234567",
			Title:      "clip",
		}},
	}
	if !det.Match(snap) {
		t.Fatal("expected tiktok host to match")
	}
	candidate := det.Detect(snap)
	if candidate == nil || candidate.VideoID != "7312345678901234567" {
		t.Fatalf("unexpected candidate: %+v", candidate)
	}
}

func TestTikTokIdentityFromAttribute(t *testing.T) {
	det := detect.NewTikTok()
	snap := &page.Snapshot{
		URL:            "https://www.tiktok.com/foryou",
		ViewportHeight: 800,
		Videos: []page.VideoInfo{{
			MountPoint: "feed-4",
			Playing:    true,
			Attributes: map[string]string{"data-video-id": "99887766"},
		}},
	}
	candidate := det.Detect(snap)
	if candidate == nil || candidate.VideoID != "99887766" {
		t.Fatalf("unexpected candidate: %+v", candidate)
	}
}

func TestTikTokNoIdentityIsSkip(t *testing.T) {
	det := detect.NewTikTok()
	snap := &page.Snapshot{
		URL:            "https://www.tiktok.com/foryou",
		ViewportHeight: 800,
		Videos:         []page.VideoInfo{{MountPoint: "feed-5", Playing: true}},
	}
	if candidate := det.Detect(snap); candidate != nil {
		t.Fatalf("expected nil candidate, got %+v", candidate)
	}
}

func TestReelsDetectsFromPageURL(t *testing.T) {
	det := detect.NewReels()
	snap := &page.Snapshot{
		URL:            "https://www.instagram.com/reels/Cxyz123/",
		ViewportHeight: 800,
		Videos: []page.VideoInfo{{
			MountPoint: "reel-1",
			Playing:    true,
			Title:      "a reel",
		}},
	}
	if !det.Match(snap) {
		t.Fatal("expected reels path to match")
	}
	candidate := det.Detect(snap)
	if candidate == nil || candidate.VideoID != "Cxyz123" {
		t.Fatalf("unexpected candidate: %+v", candidate)
	}
	if candidate.CanonicalURL != "https://www.instagram.com/reel/Cxyz123/" {
		t.Fatalf("unexpected canonical url: %q", candidate.CanonicalURL)
	}
}

func TestRegistryOrderStopsAtFirstMatch(t *testing.T) {
	registry, err := detect.DefaultRegistry([]string{"tiktok", "youtube"})
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	if got := registry.Platforms(); got[0] != "tiktok" || got[1] != "youtube" {
		t.Fatalf("unexpected order: %v", got)
	}

	// A tiktok page with no resolvable identity must not fall through to
	// a later detector; the matched detector owns the pass.
	snap := &page.Snapshot{
		URL:            "https://www.tiktok.com/foryou",
		ViewportHeight: 800,
		Videos:         []page.VideoInfo{{MountPoint: "feed-1", Playing: true}},
	}
	if candidate := registry.Resolve(snap); candidate != nil {
		t.Fatalf("expected skip, got %+v", candidate)
	}
}

func TestRegistryRejectsUnknownPlatform(t *testing.T) {
	if _, err := detect.DefaultRegistry([]string{"vimeo"}); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestRegistryRejectsDuplicateAndSealed(t *testing.T) {
	registry := detect.NewRegistry()
	if err := registry.Register(detect.NewYouTube()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := registry.Register(detect.NewYouTube()); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	registry.Seal()
	if err := registry.Register(detect.NewTikTok()); err == nil {
		t.Fatal("expected sealed registry to reject registration")
	}
}

func TestScreenKeywords(t *testing.T) {
	verdict, hit := detect.ScreenKeywords("My Deepfake compilation", "channel")
	if !hit {
		t.Fatal("expected keyword hit")
	}
	if verdict.Label != media.LabelAIDetected || verdict.Source != media.SourceHeuristic {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
	if value, ok := verdict.ConfidenceValue(); !ok || value != 0.7 {
		t.Fatalf("unexpected confidence: %v %v", value, ok)
	}

	verdict, hit = detect.ScreenKeywords("cooking pasta", "HomeCook")
	if hit {
		t.Fatal("expected no keyword hit")
	}
	if verdict.Label != media.LabelVerified || verdict.Reason != "no_keywords" {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
}
