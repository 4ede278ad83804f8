package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"scrollsafe/internal/logging"
	"scrollsafe/internal/page"
)

// Bridge coalesces host change events into a single debounced signal. The
// pipeline registers one callback and never sees raw events; structure and
// navigation changes settle on a short window, scroll movement on a longer
// one. The callback always runs on the bridge's own goroutine so event
// producers are never reentered.
type Bridge struct {
	logger   *slog.Logger
	events   <-chan page.Event
	onSignal func()

	structureDelay time.Duration
	scrollDelay    time.Duration

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Options configures a Bridge.
type Options struct {
	Events         <-chan page.Event
	OnSignal       func()
	StructureDelay time.Duration
	ScrollDelay    time.Duration
	Logger         *slog.Logger
}

// New builds a bridge. Events and OnSignal are required.
func New(opts Options) (*Bridge, error) {
	if opts.Events == nil {
		return nil, errors.New("bridge requires an event source")
	}
	if opts.OnSignal == nil {
		return nil, errors.New("bridge requires a signal callback")
	}
	if opts.StructureDelay <= 0 {
		opts.StructureDelay = 200 * time.Millisecond
	}
	if opts.ScrollDelay <= 0 {
		opts.ScrollDelay = 500 * time.Millisecond
	}
	return &Bridge{
		logger:         logging.WithComponent(opts.Logger, "bridge"),
		events:         opts.Events,
		onSignal:       opts.OnSignal,
		structureDelay: opts.StructureDelay,
		scrollDelay:    opts.ScrollDelay,
	}, nil
}

// Start begins coalescing and fires one immediate signal so the pipeline
// sees whatever is already on screen.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return errors.New("bridge already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.ctx = runCtx
	b.cancel = cancel
	b.running = true

	b.wg.Add(1)
	go b.loop()
	return nil
}

// Stop tears down the loop and any pending debounce timer. Safe to call
// more than once.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	cancel := b.cancel
	b.running = false
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
}

func (b *Bridge) loop() {
	defer b.wg.Done()

	b.onSignal()

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := false

	// arm restarts the quiet-period window: every event pushes the deadline
	// to now plus its class delay, so a sustained stream of events holds the
	// signal back until the stream goes quiet. A structure change landing
	// while the longer scroll window is pending shortens the wait to the
	// structure window rather than queueing behind the scroll one.
	arm := func(delay time.Duration) {
		if pending && !timer.Stop() {
			<-timer.C
		}
		pending = true
		timer.Reset(delay)
	}

	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.events:
			if !ok {
				b.logger.Debug("event source closed")
				return
			}
			switch event.Kind {
			case page.EventScroll:
				arm(b.scrollDelay)
			default:
				arm(b.structureDelay)
			}
		case <-timer.C:
			pending = false
			b.onSignal()
		}
	}
}
