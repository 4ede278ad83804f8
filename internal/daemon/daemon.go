package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"scrollsafe/internal/bridge"
	"scrollsafe/internal/config"
	"scrollsafe/internal/detect"
	"scrollsafe/internal/indicator"
	"scrollsafe/internal/logging"
	"scrollsafe/internal/media"
	"scrollsafe/internal/page"
	"scrollsafe/internal/pipeline"
	"scrollsafe/internal/sampler"
	"scrollsafe/internal/services"
	"scrollsafe/internal/services/backend"
	"scrollsafe/internal/store"
)

// Daemon coordinates the detection session and enforces single-instance
// execution: page session events flow through the bridge into the pipeline,
// and the HTTP API exposes status, history, and deep-scan control.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	session page.Session
	bridge  *bridge.Bridge
	pipe    *pipeline.Pipeline
	history *store.History
	shared  *store.RedisCache
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Options configures daemon construction. Reporter and Backend default to
// the log reporter and the HTTP client; tests inject fakes.
type Options struct {
	Config   *config.Config
	Session  page.Session
	Logger   *slog.Logger
	Reporter indicator.Reporter
	Backend  pipeline.Backend
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool                   `json:"running"`
	Mounts        []pipeline.MountStatus `json:"mounts"`
	HistoryDBPath string                 `json:"history_db_path"`
	LockFilePath  string                 `json:"lock_file_path"`
	APIAddress    string                 `json:"api_address,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil || opts.Session == nil {
		return nil, errors.New("daemon requires config and page session")
	}
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	registry, err := detect.DefaultRegistry(cfg.Detection.Platforms)
	if err != nil {
		return nil, fmt.Errorf("build detector registry: %w", err)
	}
	history, err := store.OpenHistory(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	var shared *store.RedisCache
	if cfg.SharedCache.Enabled {
		shared = store.NewRedisCache(cfg)
	}

	reporter := opts.Reporter
	if reporter == nil {
		reporter = indicator.NewLogReporter(logger)
	}
	var remote pipeline.Backend = opts.Backend
	if remote == nil {
		remote = backend.New(cfg, logger)
	}

	pipeOpts := pipeline.Options{
		Config:   cfg,
		Session:  opts.Session,
		Registry: registry,
		Reporter: reporter,
		Backend:  remote,
		Frames:   sampler.New(opts.Session, cfg, logger),
		History:  history,
		Logger:   logger,
	}
	if shared != nil {
		pipeOpts.Shared = shared
	}
	pipe := pipeline.New(pipeOpts)

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		session:  opts.Session,
		pipe:     pipe,
		history:  history,
		shared:   shared,
		lockPath: filepath.Join(cfg.Paths.StateDir, "scrollsafed.lock"),
	}
	d.lock = flock.New(d.lockPath)

	d.bridge, err = bridge.New(bridge.Options{
		Events:         opts.Session.Events(),
		OnSignal:       d.onSignal,
		StructureDelay: cfg.StructureDebounce(),
		ScrollDelay:    cfg.ScrollDebounce(),
		Logger:         logger,
	})
	if err != nil {
		_ = history.Close()
		return nil, fmt.Errorf("build bridge: %w", err)
	}

	d.api, err = newAPIServer(cfg, d, logger)
	if err != nil {
		_ = history.Close()
		return nil, err
	}
	return d, nil
}

// Start acquires the singleton lock and launches the bridge, sweeper, and
// API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scrollsafe daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if d.shared != nil {
		if err := d.shared.Ping(d.ctx); err != nil {
			d.logger.Warn("shared cache unreachable, continuing without it", logging.Error(err))
		}
	}

	if err := d.bridge.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start bridge: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.pipe.RunSweeper(d.ctx)
	}()

	if err := d.api.start(d.ctx); err != nil {
		d.bridge.Stop()
		d.cancel()
		_ = d.lock.Unlock()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("scrollsafe daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.bridge.Stop()
	d.wg.Wait()
	d.api.stop()
	d.pipe.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("scrollsafe daemon stopped")
}

// Close releases all resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.history != nil {
		errs = append(errs, d.history.Close())
	}
	if d.shared != nil {
		errs = append(errs, d.shared.Close())
	}
	if d.session != nil {
		errs = append(errs, d.session.Close())
	}
	return errors.Join(errs...)
}

func (d *Daemon) onSignal() {
	ctx := d.ctx
	if ctx == nil {
		return
	}
	d.pipe.RunDetectionPass(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:       d.running.Load(),
		Mounts:        d.pipe.Status(),
		HistoryDBPath: filepath.Join(d.cfg.Paths.StateDir, "history.db"),
		LockFilePath:  d.lockPath,
		APIAddress:    d.APIAddr(),
	}
}

// History returns the recent observation trail, newest first.
func (d *Daemon) History(ctx context.Context) ([]media.HistoryEntry, error) {
	return d.history.Recent(ctx)
}

// ScanAsync validates that the mount point tracks a video and launches the
// deep scan in the background. A scan already running for the same video is
// reported immediately; outcomes of the launched scan surface through the
// indicator and the log.
func (d *Daemon) ScanAsync(mountPoint string) error {
	if !d.running.Load() {
		return errors.New("daemon not running")
	}
	for _, mount := range d.pipe.Status() {
		if mount.MountPoint != mountPoint {
			continue
		}
		if mount.DeepScan {
			d.pipe.ReportScanBusy(mountPoint)
			return pipeline.ErrScanActive
		}
		ctx := d.ctx
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.pipe.TriggerDeepScan(ctx, mountPoint); err != nil && !errors.Is(err, pipeline.ErrScanActive) {
				d.logger.Warn("deep scan finished with error",
					logging.String(logging.FieldMount, mountPoint),
					logging.Error(err),
				)
			}
		}()
		return nil
	}
	return services.Wrap(services.ErrNotFound, "daemon", "scan", "no tracked video at mount point", nil)
}

// APIAddr returns the bound API listener address, if the server is running.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}
