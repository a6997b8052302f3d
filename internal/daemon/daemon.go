package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"danmaku/internal/artifact"
	"danmaku/internal/config"
	"danmaku/internal/logging"
	"danmaku/internal/mpv"
	"danmaku/internal/pipeline"
	"danmaku/internal/services"
	"danmaku/internal/services/danmu2ass"
)

// ErrAlreadyRunning reports that another daemon holds the socket lock.
var ErrAlreadyRunning = errors.New("another danmaku daemon is already attached to this socket")

// Dialer opens the host connection for a socket path.
type Dialer func(ctx context.Context, path string) (Host, error)

// Host is the player connection the daemon drives.
type Host interface {
	pipeline.Host
	Close() error
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithDialer replaces the mpv socket dialer.
func WithDialer(dial Dialer) Option {
	return func(d *Daemon) {
		if dial != nil {
			d.dial = dial
		}
	}
}

// WithConverter replaces the danmu2ass invoker built from config.
func WithConverter(conv pipeline.Converter) Option {
	return func(d *Daemon) {
		if conv != nil {
			d.converter = conv
		}
	}
}

// WithSessionID sets the identifier reported by Status and SessionID.
func WithSessionID(id string) Option {
	return func(d *Daemon) {
		if id = strings.TrimSpace(id); id != "" {
			d.sessionID = id
		}
	}
}

// WithRunObserver is forwarded to the orchestrator.
func WithRunObserver(fn func(pipeline.Report)) Option {
	return func(d *Daemon) {
		d.observer = fn
	}
}

// Daemon serves one mpv socket and enforces single-instance execution per socket.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	sessionID string

	dial      Dialer
	converter pipeline.Converter
	observer  func(pipeline.Report)

	lockPath string
	lock     *flock.Flock
	mu       sync.Mutex
	locked   bool

	running atomic.Bool
	runs    atomic.Int64
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	SessionID    string
	Socket       string
	LockFilePath string
	Runs         int64
}

// New constructs a daemon for cfg.MPV.Socket.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if strings.TrimSpace(cfg.MPV.Socket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "new", "mpv socket not configured", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		sessionID: uuid.NewString(),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.dial = d.dialMPV
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// SessionID identifies this daemon instance in logs.
func (d *Daemon) SessionID() string {
	return d.sessionID
}

// Acquire takes the per-socket lock. It fails with ErrAlreadyRunning when
// another process already serves the same socket.
func (d *Daemon) Acquire() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locked {
		return nil
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", d.lockPath, err)
	}
	if !ok {
		return fmt.Errorf("%w (socket %s, lock %s)", ErrAlreadyRunning, d.cfg.MPV.Socket, d.lockPath)
	}
	d.locked = true
	return nil
}

// Release drops the per-socket lock.
func (d *Daemon) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.locked {
		return
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.String("lock", d.lockPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "lock file stays held until the process exits"),
		)
	}
	d.locked = false
}

// Serve dials mpv and runs the pipeline until the player shuts down or ctx
// ends. The lock is acquired if the caller has not already done so.
// Context cancellation is a clean stop and returns nil.
func (d *Daemon) Serve(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	if err := d.Acquire(); err != nil {
		return err
	}
	defer d.Release()

	dialCtx, cancel := context.WithTimeout(ctx, d.connectTimeout())
	host, err := d.dial(dialCtx, d.cfg.MPV.Socket)
	cancel()
	if err != nil {
		return services.Wrap(services.ErrHost, "daemon", "dial", "connect to mpv "+d.cfg.MPV.Socket, err)
	}
	defer host.Close()

	conv := d.converter
	if conv == nil {
		client, err := danmu2ass.New(d.cfg.ConverterBinary(), d.cfg.Converter.TimeoutSeconds,
			danmu2ass.WithExtraArgs(d.cfg.Converter.ExtraArgs...))
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "daemon", "converter", "build converter", err)
		}
		conv = client
	}

	artifacts := artifact.Manager{BaseDir: d.cfg.Paths.TempDir, Extension: d.cfg.Subtitles.Extension}
	orch, err := pipeline.New(host, conv, artifacts,
		pipeline.WithLogger(d.logger),
		pipeline.WithAutoSelect(d.cfg.Subtitles.AutoSelect),
		pipeline.WithRetainArtifacts(d.cfg.Subtitles.RetainUntilNext),
		pipeline.WithRunObserver(d.observe),
	)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	d.logger.Info("danmaku daemon attached",
		logging.String(logging.FieldEventType, "daemon_attached"),
		logging.String("socket", d.cfg.MPV.Socket),
		logging.String("lock", d.lockPath),
	)

	err = orch.Run(ctx)
	switch {
	case err == nil:
		d.logger.Info("danmaku daemon detached", logging.String(logging.FieldEventType, "daemon_detached"))
		return nil
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		d.logger.Info("danmaku daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
		return nil
	default:
		return err
	}
}

// Status returns a snapshot of the daemon state.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		SessionID:    d.sessionID,
		Socket:       d.cfg.MPV.Socket,
		LockFilePath: d.lockPath,
		Runs:         d.runs.Load(),
	}
}

func (d *Daemon) observe(report pipeline.Report) {
	d.runs.Add(1)
	if d.observer != nil {
		d.observer(report)
	}
}

func (d *Daemon) connectTimeout() time.Duration {
	if d.cfg.MPV.ConnectTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.cfg.MPV.ConnectTimeoutSeconds) * time.Second
}

func (d *Daemon) dialMPV(ctx context.Context, path string) (Host, error) {
	client, err := mpv.Dial(ctx, path, mpv.WithLogger(d.logger))
	if err != nil {
		return nil, err
	}
	return client, nil
}
