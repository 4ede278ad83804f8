package sampler

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"scrollsafe/internal/config"
	"scrollsafe/internal/logging"
	"scrollsafe/internal/page"
	"scrollsafe/internal/services"
)

// Sampler captures still frames spaced evenly across a video's duration.
// It coordinates seeks and the host capture primitive, and always restores
// the playback state it found, whatever the exit path.
type Sampler struct {
	session page.Session
	logger  *slog.Logger

	ambientFrames int
	seekTimeout   time.Duration
	settleDelay   time.Duration
	metadataRetry time.Duration
	metadataTries int
	quality       float64
}

// New builds a sampler over the given host session.
func New(session page.Session, cfg *config.Config, logger *slog.Logger) *Sampler {
	return &Sampler{
		session:       session,
		logger:        logging.WithComponent(logger, "sampler"),
		ambientFrames: cfg.Sampler.AmbientFrames,
		seekTimeout:   time.Duration(cfg.Sampler.SeekTimeoutSeconds) * time.Second,
		settleDelay:   time.Duration(cfg.Sampler.SettleDelayMs) * time.Millisecond,
		metadataRetry: time.Duration(cfg.Sampler.MetadataRetryMs) * time.Millisecond,
		metadataTries: cfg.Sampler.MetadataRetryAttempts,
		quality:       cfg.Sampler.CaptureQuality,
	}
}

// Timestamps computes n capture positions at (duration * (i + 0.5)) / n,
// clamped to the duration.
func Timestamps(duration float64, n int) []float64 {
	if n <= 0 || duration <= 0 {
		return nil
	}
	stamps := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		at := (duration * (float64(i) + 0.5)) / float64(n)
		if at > duration {
			at = duration
		}
		stamps = append(stamps, at)
	}
	return stamps
}

// Capture produces frameCount stills from the video at mountPoint; a
// non-positive count falls back to the configured ambient batch size. A
// failure on any individual frame aborts the whole batch. The optional
// progress callback is invoked after each captured frame.
func (s *Sampler) Capture(ctx context.Context, mountPoint string, frameCount int, progress func(done, total int)) ([][]byte, error) {
	if frameCount <= 0 {
		frameCount = s.ambientFrames
	}
	if frameCount <= 0 {
		return nil, services.Wrap(services.ErrValidation, "sampler", "capture", "frame count must be positive", nil)
	}

	handle, err := s.session.Video(ctx, mountPoint)
	if err != nil {
		return nil, services.Wrap(services.ErrCapture, "sampler", "resolve video", mountPoint, err)
	}

	duration, err := s.awaitDuration(ctx, handle)
	if err != nil {
		return nil, err
	}

	original, err := handle.Playback(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrCapture, "sampler", "snapshot playback", "", err)
	}
	muted := original
	muted.Paused = true
	muted.Muted = true
	if err := handle.SetPlayback(ctx, muted); err != nil {
		return nil, services.Wrap(services.ErrCapture, "sampler", "pause video", "", err)
	}
	defer func() {
		// Restore must run even when the batch context is already gone.
		restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := handle.SetPlayback(restoreCtx, original); err != nil {
			s.logger.Warn("failed to restore playback state",
				logging.String(logging.FieldMount, mountPoint),
				logging.Error(err),
			)
		}
	}()

	frames := make([][]byte, 0, frameCount)
	for _, at := range Timestamps(duration, frameCount) {
		frame, err := s.captureAt(ctx, handle, at)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
		if progress != nil {
			progress(len(frames), frameCount)
		}
	}
	if len(frames) == 0 {
		return nil, services.Wrap(services.ErrCapture, "sampler", "capture", "batch produced no frames", nil)
	}

	s.logger.Debug("frame batch captured",
		logging.String(logging.FieldMount, mountPoint),
		logging.Int("frames", len(frames)),
	)
	return frames, nil
}

// awaitDuration waits for duration metadata, retrying on a fixed cadence.
// Missing duration after the retry budget is terminal for the batch.
func (s *Sampler) awaitDuration(ctx context.Context, handle page.VideoHandle) (float64, error) {
	for attempt := 0; attempt < s.metadataTries; attempt++ {
		duration, err := handle.Duration(ctx)
		if err != nil {
			return 0, services.Wrap(services.ErrCapture, "sampler", "duration", "", err)
		}
		if duration > 0 {
			return duration, nil
		}
		select {
		case <-ctx.Done():
			return 0, services.Wrap(services.ErrCancelled, "sampler", "duration", "", ctx.Err())
		case <-time.After(s.metadataRetry):
		}
	}
	return 0, services.Wrap(services.ErrCapture, "sampler", "duration", "metadata never became available", nil)
}

func (s *Sampler) captureAt(ctx context.Context, handle page.VideoHandle, at float64) ([]byte, error) {
	seekCtx, cancel := context.WithTimeout(ctx, s.seekTimeout)
	err := handle.Seek(seekCtx, at)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			// A stuck seek must not stall the batch; capture whatever
			// frame the element settled on.
			s.logger.Debug("seek timed out, capturing anyway", logging.Float64("position", at))
		} else if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrCancelled, "sampler", "seek", "", ctx.Err())
		} else {
			return nil, services.Wrap(services.ErrCapture, "sampler", "seek", "", err)
		}
	}

	select {
	case <-ctx.Done():
		return nil, services.Wrap(services.ErrCancelled, "sampler", "settle", "", ctx.Err())
	case <-time.After(s.settleDelay):
	}

	bounds, err := handle.Bounds(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrCapture, "sampler", "bounds", "", err)
	}
	frame, err := s.session.Capture(ctx, bounds, s.quality)
	if err != nil {
		return nil, services.Wrap(services.ErrCapture, "sampler", "frame", "", err)
	}
	return frame, nil
}
