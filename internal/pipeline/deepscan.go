package pipeline

import (
	"context"
	"errors"
	"time"

	"scrollsafe/internal/detect"
	"scrollsafe/internal/indicator"
	"scrollsafe/internal/logging"
	"scrollsafe/internal/media"
	"scrollsafe/internal/services"
	"scrollsafe/internal/services/backend"
)

// ErrScanActive reports that a deep scan is already running for the video;
// the caller gets a busy signal instead of a second job.
var ErrScanActive = errors.New("deep scan already active")

// Progress fill bounds for the three deep-scan phases.
const (
	captureProgressCap = 0.60
	pollProgressCap    = 0.85
	preFinalProgress   = 0.95
)

// ReportScanBusy surfaces the busy indicator at a mount point whose tracked
// video already has a scan in flight. Callers that detect the collision
// before reaching TriggerDeepScan use this so a repeat request still gets a
// visible busy state.
func (p *Pipeline) ReportScanBusy(mount string) {
	p.mu.Lock()
	st, ok := p.mounts[mount]
	if !ok {
		p.mu.Unlock()
		return
	}
	handle := st.handle
	p.mu.Unlock()
	p.reporter.Set(handle, indicator.DeepScanBusy())
}

// TriggerDeepScan runs the expensive multi-frame workflow for the video
// currently tracked at mount. The dedup key is the video identity alone: a
// video re-rendered at a new mount point while a scan is in flight yields a
// busy signal, never a second job.
func (p *Pipeline) TriggerDeepScan(ctx context.Context, mount string) error {
	p.mu.Lock()
	st, ok := p.mounts[mount]
	if !ok || st.trackedIdentity == "" {
		p.mu.Unlock()
		return services.Wrap(services.ErrNotFound, "deep-scan", "trigger", "no tracked video at mount point", nil)
	}
	identity := st.trackedIdentity
	candidate := st.candidate
	gen := st.generation
	handle := st.handle
	if p.deepScans[identity] {
		p.mu.Unlock()
		p.reporter.Set(handle, indicator.DeepScanBusy())
		return ErrScanActive
	}
	p.deepScans[identity] = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.deepScans, identity)
		p.mu.Unlock()
	}()

	err := p.runDeepScan(ctx, mount, candidate, gen, handle)
	return p.finishDeepScan(err, candidate, handle)
}

// finishDeepScan translates a deep-scan failure into its indicator state.
// Cancellation is not an error: the mount point has moved on.
func (p *Pipeline) finishDeepScan(err error, candidate media.Candidate, handle indicator.Handle) error {
	if err == nil {
		return nil
	}
	if services.IsCancelled(err) {
		p.logger.Debug("deep scan abandoned",
			logging.String(logging.FieldPlatform, candidate.Platform),
			logging.String(logging.FieldVideoID, candidate.VideoID),
		)
		return nil
	}
	p.logger.Warn("deep scan failed",
		logging.String(logging.FieldPlatform, candidate.Platform),
		logging.String(logging.FieldVideoID, candidate.VideoID),
		logging.Error(err),
	)
	switch {
	case services.IsCapture(err):
		p.reporter.Set(handle, indicator.DeepScanError("frame capture failed"))
	case services.IsTimeout(err):
		p.reporter.Set(handle, indicator.DeepScanError("deep scan timed out"))
	default:
		p.reporter.Set(handle, indicator.DeepScanError("deep scan failed, tap to retry"))
	}
	return err
}

func (p *Pipeline) runDeepScan(ctx context.Context, mount string, candidate media.Candidate, gen uint64, handle indicator.Handle) error {
	pollInterval := time.Duration(p.cfg.DeepScan.PollIntervalSeconds) * time.Second
	maxAttempts := p.cfg.DeepScan.PollMaxAttempts
	p.reporter.Set(handle, indicator.DeepScanStart(pollInterval*time.Duration(maxAttempts)))

	frames, err := p.frames.Capture(ctx, mount, p.cfg.Sampler.DeepScanFrames, func(done, total int) {
		p.reporter.Set(handle, indicator.DeepScanBump(captureProgressCap*float64(done)/float64(total)))
	})
	if err != nil {
		return err
	}
	if !p.stillCurrent(mount, gen) {
		return services.Wrap(services.ErrCancelled, "deep-scan", "capture", "identity changed", nil)
	}

	hints, _ := detect.ScreenKeywords(candidate.Title, candidate.Channel)
	jobID, err := p.backend.StartDeepScan(ctx, backend.DeepScanRequest{
		Platform:     candidate.Platform,
		VideoID:      candidate.VideoID,
		CanonicalURL: candidate.CanonicalURL,
		Frames:       frames,
		ClientHints:  &hints,
	})
	if err != nil {
		return err
	}
	if !p.stillCurrent(mount, gen) {
		return services.Wrap(services.ErrCancelled, "deep-scan", "submit", "identity changed", nil)
	}
	p.logger.Info("deep scan submitted",
		logging.String(logging.FieldPlatform, candidate.Platform),
		logging.String(logging.FieldVideoID, candidate.VideoID),
		logging.String(logging.FieldJobID, jobID),
	)

	result, err := p.pollDeepScan(ctx, mount, gen, handle, jobID, pollInterval, maxAttempts)
	if err != nil {
		return err
	}

	p.reporter.Set(handle, indicator.DeepScanBump(preFinalProgress))

	// An authoritative verdict that landed while the job ran takes
	// precedence; the deep-scan's own result is discarded, not cached.
	authoritative, lookupErr := p.authoritativeLookup(ctx, candidate)
	if lookupErr != nil {
		p.logger.Warn("final authoritative re-check failed", logging.Error(lookupErr))
	}
	if !p.stillCurrent(mount, gen) {
		return services.Wrap(services.ErrCancelled, "deep-scan", "finalize", "identity changed", nil)
	}
	if authoritative != nil {
		p.applyVerdict(ctx, candidate, gen, handle, *authoritative, applyOptions{persist: true, clearStaleScan: true})
	} else {
		verdict := *result
		if verdict.Source == "" {
			verdict.Source = media.SourceDeepScan
		}
		p.applyVerdict(ctx, candidate, gen, handle, verdict, applyOptions{})
		if err := p.local.Set(ctx, candidate.Platform, candidate.VideoID, verdict); err != nil {
			p.logger.Warn("local cache write failed", logging.Error(err))
		}
	}
	p.reporter.Set(handle, indicator.DeepScanComplete())
	return nil
}

// pollDeepScan watches the job until a terminal state, re-validating on
// every iteration that the mount point still tracks this video.
func (p *Pipeline) pollDeepScan(ctx context.Context, mount string, gen uint64, handle indicator.Handle, jobID string, interval time.Duration, maxAttempts int) (*media.Verdict, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, services.Wrap(services.ErrCancelled, "deep-scan", "poll", "", ctx.Err())
		case <-time.After(interval):
		}
		if !p.stillCurrent(mount, gen) {
			return nil, services.Wrap(services.ErrCancelled, "deep-scan", "poll", "identity changed", nil)
		}

		status, err := p.backend.PollDeepScan(ctx, jobID)
		if err != nil {
			return nil, err
		}

		ratio := captureProgressCap + (pollProgressCap-captureProgressCap)*float64(attempt)/float64(maxAttempts)
		if ratio > pollProgressCap {
			ratio = pollProgressCap
		}
		p.reporter.Set(handle, indicator.DeepScanBump(ratio))

		switch status.Status {
		case backend.JobDone:
			if status.Result == nil {
				return nil, services.Wrap(services.ErrRequest, "deep-scan", "poll", "job finished without result", nil)
			}
			return status.Result, nil
		case backend.JobFailed:
			return nil, services.Wrap(services.ErrRequest, "deep-scan", "poll", status.Error, nil)
		}
	}
	return nil, services.Wrap(services.ErrTimeout, "deep-scan", "poll", "attempt budget exhausted", nil)
}
