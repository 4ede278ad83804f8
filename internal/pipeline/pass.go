package pipeline

import (
	"context"
	"time"

	"scrollsafe/internal/indicator"
	"scrollsafe/internal/logging"
	"scrollsafe/internal/media"
	"scrollsafe/internal/services"
)

// RunDetectionPass resolves the current candidate and advances its mount
// point's state machine. The bridge invokes this on every debounced signal;
// it is safe to call concurrently with in-flight continuations.
func (p *Pipeline) RunDetectionPass(ctx context.Context) {
	snap, err := p.session.Snapshot(ctx)
	if err != nil {
		p.logger.Debug("snapshot unavailable", logging.Error(err))
		return
	}
	candidate := p.registry.Resolve(snap)
	if candidate == nil {
		// No eligible video. Expected, skip this pass.
		return
	}
	p.process(ctx, *candidate)
}

func (p *Pipeline) process(ctx context.Context, candidate media.Candidate) {
	identity := candidate.Key()

	p.mu.Lock()
	st, ok := p.mounts[candidate.MountPoint]
	if !ok {
		st = &mountState{handle: p.reporter.Attach(candidate.MountPoint)}
		p.mounts[candidate.MountPoint] = st
	}

	if st.trackedIdentity == identity {
		if st.displayed != nil {
			// Same video, live indicator. Idempotent no-op, except on
			// platforms where the backend can override metadata after
			// first display; those always re-check the authoritative
			// store.
			if !p.cfg.RecheckPlatform(candidate.Platform) {
				p.mu.Unlock()
				return
			}
			gen := st.generation
			handle := st.handle
			p.mu.Unlock()
			p.recheckAuthoritative(ctx, candidate, gen, handle)
			return
		}
		if st.debounce != nil || st.checkCancel != nil {
			// A check for this identity is already pending; at most one
			// outstanding cheap check per mount point.
			p.mu.Unlock()
			return
		}
	}

	// New identity at this mount point: abandon the previous one's timers
	// and in-flight check before rebinding.
	if st.debounce != nil {
		st.debounce.Stop()
		st.debounce = nil
	}
	if st.checkCancel != nil {
		st.checkCancel()
		st.checkCancel = nil
	}
	st.trackedIdentity = identity
	st.candidate = candidate
	st.generation++
	st.displayed = nil
	gen := st.generation
	handle := st.handle
	p.mu.Unlock()

	p.logger.Debug("tracking candidate",
		logging.String(logging.FieldMount, candidate.MountPoint),
		logging.String(logging.FieldPlatform, candidate.Platform),
		logging.String(logging.FieldVideoID, candidate.VideoID),
	)
	p.reporter.Set(handle, indicator.Checking())

	verdict, err := p.authoritativeLookup(ctx, candidate)
	if !p.stillCurrent(candidate.MountPoint, gen) {
		return
	}
	if err != nil {
		p.failCheck(candidate.MountPoint, gen, handle, "check failed, tap to retry")
		return
	}
	if verdict != nil {
		p.applyVerdict(ctx, candidate, gen, handle, *verdict, applyOptions{persist: true, clearStaleScan: true})
		return
	}

	cached, err := p.local.Get(ctx, candidate.Platform, candidate.VideoID)
	if err == nil && cached != nil {
		if !p.stillCurrent(candidate.MountPoint, gen) {
			return
		}
		// Cached hit short-circuits but is not re-persisted.
		p.applyVerdict(ctx, candidate, gen, handle, *cached, applyOptions{})
		return
	}

	p.armHeuristic(candidate, gen, handle)
}

// authoritativeLookup consults the shared cache first, then the backend. A
// shared cache failure degrades to the backend rather than failing the pass.
func (p *Pipeline) authoritativeLookup(ctx context.Context, candidate media.Candidate) (*media.Verdict, error) {
	if p.shared != nil {
		verdict, err := p.shared.Get(ctx, candidate.Platform, candidate.VideoID)
		if err != nil {
			p.logger.Warn("shared cache lookup failed", logging.Error(err))
		} else if verdict != nil {
			return verdict, nil
		}
	}
	return p.backend.Lookup(ctx, candidate.Platform, candidate.VideoID)
}

// recheckAuthoritative refreshes a known identity against the authoritative
// store without disturbing the current display on a miss.
func (p *Pipeline) recheckAuthoritative(ctx context.Context, candidate media.Candidate, gen uint64, handle indicator.Handle) {
	verdict, err := p.authoritativeLookup(ctx, candidate)
	if err != nil || verdict == nil {
		return
	}
	if !p.stillCurrent(candidate.MountPoint, gen) {
		return
	}
	p.applyVerdict(ctx, candidate, gen, handle, *verdict, applyOptions{persist: true, clearStaleScan: true})
}

type applyOptions struct {
	// persist writes authoritative verdicts through to the caches.
	persist bool
	// clearStaleScan drops any cached deep-scan record for the identity;
	// authoritative always wins.
	clearStaleScan bool
}

// applyVerdict displays a verdict for a mount point if it still tracks the
// generation it was produced for, then records it.
func (p *Pipeline) applyVerdict(ctx context.Context, candidate media.Candidate, gen uint64, handle indicator.Handle, verdict media.Verdict, opts applyOptions) {
	identity := candidate.Key()

	p.mu.Lock()
	st, ok := p.mounts[candidate.MountPoint]
	if !ok || st.generation != gen {
		p.mu.Unlock()
		return
	}
	shown := verdict
	st.displayed = &shown
	if opts.clearStaleScan {
		delete(p.ephemeral, identity)
	}
	if !verdict.Authoritative() {
		p.ephemeral[identity] = verdict
	}
	p.mu.Unlock()

	if opts.clearStaleScan && verdict.Authoritative() {
		p.local.Delete(ctx, candidate.Platform, candidate.VideoID)
	}

	if verdict.Label == media.LabelUnknown {
		p.reporter.Set(handle, indicator.Unknown(verdict.Reason))
	} else {
		p.reporter.Set(handle, indicator.Result(verdict))
	}
	p.recordHistory(ctx, candidate, verdict)
	if opts.persist {
		p.persistAuthoritative(ctx, candidate, verdict)
	}
}

// failCheck surfaces a recoverable failure and resets the mount point so the
// next pass retries from scratch.
func (p *Pipeline) failCheck(mount string, gen uint64, handle indicator.Handle, message string) {
	p.mu.Lock()
	st, ok := p.mounts[mount]
	if !ok || st.generation != gen {
		p.mu.Unlock()
		return
	}
	st.trackedIdentity = ""
	st.displayed = nil
	st.generation++
	p.mu.Unlock()

	p.reporter.Set(handle, indicator.RetryableUnknown(message))
}

// armHeuristic starts the quiet-period timer for a full miss. The timer's
// effect is discarded by re-reading the tracked generation when it fires; a
// fired-but-stale timer self-aborts.
func (p *Pipeline) armHeuristic(candidate media.Candidate, gen uint64, handle indicator.Handle) {
	p.mu.Lock()
	st, ok := p.mounts[candidate.MountPoint]
	if !ok || st.generation != gen {
		p.mu.Unlock()
		return
	}
	st.debounce = time.AfterFunc(p.cfg.HeuristicDebounce(), func() {
		p.fireHeuristic(candidate, gen, handle)
	})
	p.mu.Unlock()
}

func (p *Pipeline) fireHeuristic(candidate media.Candidate, gen uint64, handle indicator.Handle) {
	p.mu.Lock()
	st, ok := p.mounts[candidate.MountPoint]
	if !ok || st.generation != gen {
		p.mu.Unlock()
		return
	}
	st.debounce = nil
	ctx, cancel := context.WithCancel(context.Background())
	st.checkCancel = cancel
	p.mu.Unlock()
	defer cancel()

	verdict, err := p.backend.Analyze(ctx, candidate)

	p.mu.Lock()
	st, ok = p.mounts[candidate.MountPoint]
	if !ok || st.generation != gen {
		// Superseded while the request was in flight. The response is
		// discarded without any visible or persisted effect.
		p.mu.Unlock()
		return
	}
	st.checkCancel = nil
	p.mu.Unlock()

	if err != nil {
		if services.IsCancelled(err) {
			return
		}
		p.logger.Warn("heuristic request failed",
			logging.String(logging.FieldPlatform, candidate.Platform),
			logging.String(logging.FieldVideoID, candidate.VideoID),
			logging.Error(err),
		)
		p.failCheck(candidate.MountPoint, gen, handle, "check failed, tap to retry")
		return
	}
	p.applyVerdict(context.Background(), candidate, gen, handle, verdict, applyOptions{persist: true})
}
