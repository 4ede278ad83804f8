package daemon_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"scrollsafe/internal/config"
	"scrollsafe/internal/daemon"
	"scrollsafe/internal/indicator"
	"scrollsafe/internal/logging"
	"scrollsafe/internal/media"
	"scrollsafe/internal/page"
	"scrollsafe/internal/pipeline"
	"scrollsafe/internal/testsupport"
)

type harness struct {
	cfg      *config.Config
	session  *testsupport.FakeSession
	backend  *testsupport.FakeBackend
	recorder *testsupport.Recorder
	daemon   *daemon.Daemon
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()

	h := &harness{
		cfg:      testsupport.NewConfig(t, opts...),
		session:  testsupport.NewFakeSession(),
		backend:  testsupport.NewFakeBackend(),
		recorder: testsupport.NewRecorder(),
	}
	d, err := daemon.New(daemon.Options{
		Config:   h.cfg,
		Session:  h.session,
		Logger:   logging.NewNop(),
		Reporter: h.recorder,
		Backend:  h.backend,
	})
	if err != nil {
		t.Fatalf("build daemon: %v", err)
	}
	h.daemon = d
	t.Cleanup(func() { _ = d.Close() })
	return h
}

func shortsSnapshot(mount, videoID string) *page.Snapshot {
	return &page.Snapshot{
		URL:            "https://www.youtube.com/shorts/" + videoID,
		ViewportHeight: 900,
		Videos: []page.VideoInfo{{
			MountPoint: mount,
			Bounds:     page.Rect{Top: 100, Width: 420, Height: 700},
			Playing:    true,
			Title:      "holiday vlog",
		}},
	}
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDaemonStartStop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !h.daemon.Status().Running {
		t.Fatal("daemon should report running")
	}
	if err := h.daemon.Start(ctx); err == nil {
		t.Fatal("second start should fail")
	}

	h.daemon.Stop()
	if h.daemon.Status().Running {
		t.Fatal("daemon should report stopped")
	}
	// Stop is idempotent.
	h.daemon.Stop()
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	second, err := daemon.New(daemon.Options{
		Config:   h.cfg,
		Session:  testsupport.NewFakeSession(),
		Logger:   logging.NewNop(),
		Reporter: testsupport.NewRecorder(),
		Backend:  testsupport.NewFakeBackend(),
	})
	if err != nil {
		t.Fatalf("build second daemon: %v", err)
	}
	defer second.Close()

	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}

func TestDaemonDetectsOnStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.backend.SetAuthoritative("youtube", "abc123", media.Verdict{
		Label:      media.LabelVerified,
		Confidence: media.NewConfidence(0.95),
		Source:     media.SourceBatch,
	})
	h.session.SetSnapshot(shortsSnapshot("mount-1", "abc123"))

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	// The bridge fires an immediate signal on start, so whatever is already
	// on screen resolves without further events.
	waitFor(t, 2*time.Second, "initial detection", func() bool {
		last, ok := h.recorder.Last("mount-1")
		return ok && last.State.Kind == indicator.KindResult
	})

	status := h.daemon.Status()
	if len(status.Mounts) != 1 || status.Mounts[0].VideoID != "abc123" {
		t.Fatalf("unexpected status mounts: %+v", status.Mounts)
	}

	entries, err := h.daemon.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].VideoID != "abc123" {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestDaemonReactsToEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	h.backend.SetAuthoritative("youtube", "late99", media.Verdict{
		Label:  media.LabelLikelyReal,
		Source: media.SourceBatch,
	})
	h.session.SetSnapshot(shortsSnapshot("mount-2", "late99"))
	h.session.Emit(page.Event{Kind: page.EventStructure})

	waitFor(t, 2*time.Second, "event-driven detection", func() bool {
		last, ok := h.recorder.Last("mount-2")
		return ok && last.State.Kind == indicator.KindResult
	})
}

func TestScanAsyncRepeatSignalsBusy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.backend.SetAuthoritative("youtube", "abc123", media.Verdict{
		Label:  media.LabelVerified,
		Source: media.SourceBatch,
	})
	h.session.SetVideo("mount-1", &testsupport.FakeVideo{DurationValue: 30})
	h.session.SetSnapshot(shortsSnapshot("mount-1", "abc123"))

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, 2*time.Second, "initial detection", func() bool {
		last, ok := h.recorder.Last("mount-1")
		return ok && last.State.Kind == indicator.KindResult
	})

	// The backend never reaches a terminal poll state, so the first scan
	// stays in flight while the second request lands.
	if err := h.daemon.ScanAsync("mount-1"); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	waitFor(t, 2*time.Second, "scan start", func() bool {
		return h.recorder.CountKind("mount-1", indicator.KindDeepScanStart) >= 1
	})

	err := h.daemon.ScanAsync("mount-1")
	if !errors.Is(err, pipeline.ErrScanActive) {
		t.Fatalf("expected ErrScanActive, got %v", err)
	}
	if got := h.recorder.CountKind("mount-1", indicator.KindDeepScanBusy); got != 1 {
		t.Fatalf("expected one busy transition for the repeat request, got %d", got)
	}
}

func TestScanAsyncUnknownMount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.daemon.ScanAsync("nowhere"); err == nil {
		t.Fatal("expected error for untracked mount point")
	}
}
