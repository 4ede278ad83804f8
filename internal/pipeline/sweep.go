package pipeline

import (
	"context"
	"time"

	"scrollsafe/internal/logging"
)

// Sweep evicts state for mount points no longer attached to the document.
// Eviction cancels any pending debounce or in-flight check; continuations
// that already left the lock abandon themselves when they find their mount
// state gone.
func (p *Pipeline) Sweep(ctx context.Context) {
	snap, err := p.session.Snapshot(ctx)
	if err != nil {
		p.logger.Debug("sweep snapshot unavailable", logging.Error(err))
		return
	}
	live := make(map[string]bool, len(snap.Videos))
	for _, video := range snap.Videos {
		live[video.MountPoint] = true
	}

	p.mu.Lock()
	evicted := 0
	for mount, st := range p.mounts {
		if live[mount] {
			continue
		}
		if st.debounce != nil {
			st.debounce.Stop()
			st.debounce = nil
		}
		if st.checkCancel != nil {
			st.checkCancel()
			st.checkCancel = nil
		}
		delete(p.mounts, mount)
		evicted++
	}
	p.mu.Unlock()

	if evicted > 0 {
		p.logger.Debug("swept detached mount points", logging.Int("evicted", evicted))
	}
}

// RunSweeper sweeps on the configured interval until ctx is done.
func (p *Pipeline) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.SweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}
