package pipeline

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"scrollsafe/internal/config"
	"scrollsafe/internal/detect"
	"scrollsafe/internal/indicator"
	"scrollsafe/internal/logging"
	"scrollsafe/internal/media"
	"scrollsafe/internal/page"
	"scrollsafe/internal/services/backend"
	"scrollsafe/internal/store"
)

// Backend is the slice of the analysis service the pipeline consumes.
type Backend interface {
	Lookup(ctx context.Context, platform, videoID string) (*media.Verdict, error)
	Analyze(ctx context.Context, candidate media.Candidate) (media.Verdict, error)
	StartDeepScan(ctx context.Context, scan backend.DeepScanRequest) (string, error)
	PollDeepScan(ctx context.Context, jobID string) (backend.JobStatus, error)
}

// FrameSource captures a batch of stills for a mount point.
type FrameSource interface {
	Capture(ctx context.Context, mountPoint string, frameCount int, progress func(done, total int)) ([][]byte, error)
}

// HistorySink records verdict observations.
type HistorySink interface {
	Append(ctx context.Context, entry media.HistoryEntry) error
}

// mountState tracks one mount point. All fields are guarded by Pipeline.mu;
// asynchronous continuations re-read generation after every suspension point
// and abandon themselves when it moved on.
type mountState struct {
	handle          indicator.Handle
	trackedIdentity string
	candidate       media.Candidate
	generation      uint64
	displayed       *media.Verdict
	debounce        *time.Timer
	checkCancel     context.CancelFunc
}

// Pipeline is the detection core: it consumes candidates, runs the
// cheap/cached/expensive workflow per mount point, and drives the indicator
// state machine. One instance serves one page session.
type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	session  page.Session
	registry *detect.Registry
	reporter indicator.Reporter
	backend  Backend
	frames   FrameSource
	history  HistorySink
	shared   store.Cache
	local    *store.MemoryCache

	mu        sync.Mutex
	mounts    map[string]*mountState
	deepScans map[string]bool
	// ephemeral is the last-known non-authoritative verdict per identity,
	// fed to deep scans as client hints and surfaced in status output.
	ephemeral map[string]media.Verdict
}

// Options wires a pipeline.
type Options struct {
	Config   *config.Config
	Session  page.Session
	Registry *detect.Registry
	Reporter indicator.Reporter
	Backend  Backend
	Frames   FrameSource
	History  HistorySink
	// Shared is the authoritative shared cache; nil disables it.
	Shared store.Cache
	Logger *slog.Logger
}

// New builds a pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{
		cfg:       opts.Config,
		logger:    logging.WithComponent(opts.Logger, "pipeline"),
		session:   opts.Session,
		registry:  opts.Registry,
		reporter:  opts.Reporter,
		backend:   opts.Backend,
		frames:    opts.Frames,
		history:   opts.History,
		shared:    opts.Shared,
		local:     store.NewMemoryCache(),
		mounts:    make(map[string]*mountState),
		deepScans: make(map[string]bool),
		ephemeral: make(map[string]media.Verdict),
	}
}

// identityAt reports the tracked identity and generation for a mount point.
func (p *Pipeline) identityAt(mount string) (string, uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.mounts[mount]
	if !ok {
		return "", 0, false
	}
	return st.trackedIdentity, st.generation, true
}

// stillCurrent reports whether the mount point still tracks the identity
// captured at generation gen. This is the staleness check performed after
// every suspension point.
func (p *Pipeline) stillCurrent(mount string, gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.mounts[mount]
	return ok && st.generation == gen
}

// MountStatus is one row of the status surface.
type MountStatus struct {
	MountPoint string         `json:"mount_point"`
	Platform   string         `json:"platform"`
	VideoID    string         `json:"video_id"`
	Title      string         `json:"title,omitempty"`
	Verdict    *media.Verdict `json:"verdict,omitempty"`
	DeepScan   bool           `json:"deep_scan_active"`
}

// Status reports the currently tracked mount points.
func (p *Pipeline) Status() []MountStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]MountStatus, 0, len(p.mounts))
	for mount, st := range p.mounts {
		if st.trackedIdentity == "" {
			continue
		}
		status := MountStatus{
			MountPoint: mount,
			Platform:   st.candidate.Platform,
			VideoID:    st.candidate.VideoID,
			Title:      st.candidate.Title,
			DeepScan:   p.deepScans[st.trackedIdentity],
		}
		if st.displayed != nil {
			verdict := *st.displayed
			status.Verdict = &verdict
		}
		out = append(out, status)
	}
	return out
}

// EphemeralVerdict returns the last non-authoritative verdict seen for an
// identity, if any.
func (p *Pipeline) EphemeralVerdict(platform, videoID string) (media.Verdict, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	verdict, ok := p.ephemeral[platform+":"+videoID]
	return verdict, ok
}

// Close cancels pending work for every mount point.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, st := range p.mounts {
		if st.debounce != nil {
			st.debounce.Stop()
			st.debounce = nil
		}
		if st.checkCancel != nil {
			st.checkCancel()
			st.checkCancel = nil
		}
		st.generation++
	}
}

// recordHistory appends a verdict observation; failures are logged, never
// propagated, so history problems cannot destabilize detection.
func (p *Pipeline) recordHistory(ctx context.Context, candidate media.Candidate, verdict media.Verdict) {
	if p.history == nil {
		return
	}
	entry := media.HistoryEntry{
		Platform:   candidate.Platform,
		VideoID:    candidate.VideoID,
		Title:      candidate.Title,
		Label:      verdict.Label,
		Confidence: verdict.Confidence,
		Source:     verdict.Source,
		ObservedAt: time.Now().UTC(),
	}
	if err := p.history.Append(ctx, entry); err != nil {
		p.logger.Warn("history append failed",
			logging.String(logging.FieldPlatform, candidate.Platform),
			logging.String(logging.FieldVideoID, candidate.VideoID),
			logging.Error(err),
		)
	}
}

// persistAuthoritative copies an authoritative verdict into the local cache
// and, when enabled, the shared store.
func (p *Pipeline) persistAuthoritative(ctx context.Context, candidate media.Candidate, verdict media.Verdict) {
	if !verdict.Authoritative() {
		return
	}
	if err := p.local.Set(ctx, candidate.Platform, candidate.VideoID, verdict); err != nil {
		p.logger.Warn("local cache write failed", logging.Error(err))
	}
	if p.shared != nil {
		if err := p.shared.Set(ctx, candidate.Platform, candidate.VideoID, verdict); err != nil {
			p.logger.Warn("shared cache write failed", logging.Error(err))
		}
	}
}
