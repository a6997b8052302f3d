package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"danmaku/internal/artifact"
	"danmaku/internal/logging"
	"danmaku/internal/mpv"
	"danmaku/internal/services"
	"danmaku/internal/services/danmu2ass"
	"danmaku/internal/tracks"
	"danmaku/internal/videoref"
)

// Host is the player capability surface used by a run.
type Host interface {
	WaitEvent(ctx context.Context) (mpv.Event, error)
	GetString(ctx context.Context, name string) (string, error)
	GetInt(ctx context.Context, name string) (int64, error)
	SetString(ctx context.Context, name, value string) error
	AddSubtitle(ctx context.Context, path, lang, title string) error
	RemoveSubtitle(ctx context.Context, id int64) error
}

// Converter produces subtitle bytes for a resolved URL.
type Converter interface {
	Run(ctx context.Context, target string) (danmu2ass.Result, error)
}

// ArtifactFactory creates per-run scratch artifacts.
type ArtifactFactory interface {
	Create(nameHint string) (*artifact.Artifact, error)
}

// State is the orchestrator lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateActive
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Report summarises one finished run.
type Report struct {
	RunID     string
	Decision  videoref.Decision
	Removed   bool
	Installed bool
	// SubtitlePath is the installed file. It only exists on disk while the
	// artifact is retained.
	SubtitlePath string
	Diagnostic   string
	Duration     time.Duration
	Err          error
}

// Canceled reports whether the run was abandoned for a newer event or shutdown.
func (r Report) Canceled() bool {
	return errors.Is(r.Err, context.Canceled)
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.NewComponentLogger(logger, "pipeline")
	}
}

// WithAutoSelect sets the value written to sub-auto before installing.
func WithAutoSelect(mode string) Option {
	return func(o *Orchestrator) {
		if mode = strings.TrimSpace(mode); mode != "" {
			o.autoSelect = mode
		}
	}
}

// WithRetainArtifacts keeps the installed artifact until the next run or
// shutdown instead of releasing it right after install.
func WithRetainArtifacts(retain bool) Option {
	return func(o *Orchestrator) {
		o.retain = retain
	}
}

// WithRunObserver registers a callback invoked from the event loop after every
// run finishes, canceled runs included.
func WithRunObserver(fn func(Report)) Option {
	return func(o *Orchestrator) {
		o.observer = fn
	}
}

// Orchestrator owns the event loop.
type Orchestrator struct {
	host       Host
	converter  Converter
	artifacts  ArtifactFactory
	logger     *slog.Logger
	autoSelect string
	retain     bool
	observer   func(Report)

	state    atomic.Int32
	current  *run
	retained *artifact.Artifact
}

type run struct {
	id     string
	cancel context.CancelFunc
	done   chan runResult
}

type runResult struct {
	report   Report
	artifact *artifact.Artifact
}

type hostEvent struct {
	event mpv.Event
	err   error
}

// New constructs an orchestrator.
func New(host Host, converter Converter, artifacts ArtifactFactory, opts ...Option) (*Orchestrator, error) {
	if host == nil {
		return nil, errors.New("pipeline host required")
	}
	if converter == nil {
		return nil, errors.New("pipeline converter required")
	}
	if artifacts == nil {
		return nil, errors.New("pipeline artifact factory required")
	}
	o := &Orchestrator{
		host:       host,
		converter:  converter,
		artifacts:  artifacts,
		logger:     logging.NewComponentLogger(nil, "pipeline"),
		autoSelect: "exact",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Run processes host events until shutdown, context cancellation, or a
// failing event source. A shutdown event returns nil.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.State() == StateTerminal {
		return errors.New("pipeline already terminated")
	}

	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()
	events := make(chan hostEvent)
	go o.pump(pumpCtx, events)

	for {
		var done <-chan runResult
		if o.current != nil {
			done = o.current.done
		}

		select {
		case <-ctx.Done():
			o.shutdown()
			return ctx.Err()
		case res := <-done:
			o.finish(res)
		case msg := <-events:
			if msg.err != nil {
				o.shutdown()
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return services.Wrap(services.ErrHost, "events", "wait event", "event source failed", msg.err)
			}
			switch {
			case msg.event.IsShutdown():
				o.logger.Info("player shutting down", logging.String(logging.FieldEventType, "host_shutdown"))
				o.shutdown()
				return nil
			case msg.event.IsMediaLoaded():
				o.start(ctx)
			default:
				o.logger.Debug("ignoring host event", logging.String("event", msg.event.Name))
			}
		}
	}
}

func (o *Orchestrator) pump(ctx context.Context, out chan<- hostEvent) {
	for {
		ev, err := o.host.WaitEvent(ctx)
		select {
		case out <- hostEvent{event: ev, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// start cancels any run in flight, waits for it, and launches a new one.
func (o *Orchestrator) start(ctx context.Context) {
	o.stopCurrent()
	if o.retained != nil {
		o.release(o.retained)
		o.retained = nil
	}

	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(services.WithRunID(ctx, id))
	r := &run{id: id, cancel: cancel, done: make(chan runResult, 1)}
	o.current = r
	o.state.Store(int32(StateActive))

	go func() {
		defer cancel()
		r.done <- o.execute(runCtx, id)
	}()
}

func (o *Orchestrator) stopCurrent() {
	if o.current == nil {
		return
	}
	o.logger.Debug("canceling run in flight", logging.String(logging.FieldRunID, o.current.id))
	o.current.cancel()
	o.finish(<-o.current.done)
}

func (o *Orchestrator) finish(res runResult) {
	o.current = nil
	if o.State() != StateTerminal {
		o.state.Store(int32(StateIdle))
	}
	if res.artifact != nil {
		o.retained = res.artifact
	}
	o.logReport(res.report)
	if o.observer != nil {
		o.observer(res.report)
	}
}

func (o *Orchestrator) shutdown() {
	o.state.Store(int32(StateTerminal))
	o.stopCurrent()
	if o.retained != nil {
		o.release(o.retained)
		o.retained = nil
	}
}

func (o *Orchestrator) release(art *artifact.Artifact) {
	if err := art.Release(); err != nil {
		logging.WarnWithContext(o.logger, "failed to remove subtitle artifact", "artifact_release_failed",
			logging.String("path", art.Dir()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the directory manually"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
	}
}

func (o *Orchestrator) logReport(report Report) {
	logger := o.logger.With(logging.String(logging.FieldRunID, report.RunID))
	switch {
	case report.Err == nil && !report.Installed:
		logger.Debug("run skipped",
			logging.String("reason", report.Decision.Reason),
			logging.String("shape", report.Decision.Shape.String()),
		)
	case report.Err == nil:
		logger.Info("danmaku subtitle installed",
			logging.String(logging.FieldEventType, services.EventType(nil)),
			logging.String("video_id", report.Decision.Ref.VideoID),
			logging.String("subtitle_path", report.SubtitlePath),
			logging.Bool("stale_track_removed", report.Removed),
			logging.Duration("duration", report.Duration),
		)
	case report.Canceled():
		logger.Info("run canceled",
			logging.String(logging.FieldEventType, "run_canceled"),
			logging.String("video_id", report.Decision.Ref.VideoID),
		)
	default:
		attrs := []logging.Attr{
			logging.Error(report.Err),
			logging.String(logging.FieldErrorHint, errorHint(report.Err)),
		}
		if report.Decision.Ref.VideoID != "" {
			attrs = append(attrs, logging.String("video_id", report.Decision.Ref.VideoID))
		}
		if stage, ok := stageOf(report.Err); ok {
			attrs = append(attrs, logging.String(logging.FieldStage, stage))
		}
		logging.ErrorWithContext(logger, "danmaku run failed", services.EventType(report.Err), attrs...)
	}
}

func errorHint(err error) string {
	var convErr *danmu2ass.ConversionError
	switch {
	case errors.As(err, &convErr) && convErr.Kind == danmu2ass.KindSpawnFailed:
		return "install danmu2ass or set converter.binary"
	case errors.Is(err, services.ErrTimeout):
		return "raise converter.timeout_seconds"
	case errors.Is(err, services.ErrExternalTool):
		return "check the converter diagnostic output"
	case errors.Is(err, services.ErrValidation):
		return "the video identifier could not be converted"
	case errors.Is(err, services.ErrHost):
		return "check that mpv is still running"
	default:
		return "check paths.temp_dir permissions and free space"
	}
}

type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }

func atStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: stage, err: err}
}

func stageOf(err error) (string, bool) {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage, true
	}
	return "", false
}

// execute performs one run. It owns the artifact it creates and releases it
// before returning unless the run installed it and retention is enabled.
func (o *Orchestrator) execute(ctx context.Context, runID string) (res runResult) {
	started := time.Now()
	res.report.RunID = runID
	defer func() {
		res.report.Duration = time.Since(started)
	}()
	logger := logging.WithContext(ctx, o.logger)

	path, err := o.host.GetString(services.WithStage(ctx, "read_path"), "path")
	if err != nil {
		res.report.Err = atStage("read_path", hostErr(ctx, "get_property path", err))
		return res
	}

	decision, err := videoref.ClassifyStrict(path)
	res.report.Decision = decision
	if err != nil {
		res.report.Err = atStage("classify", err)
		return res
	}
	if !decision.Resolved() {
		if decision.Reason == videoref.ReasonMalformedID {
			logger.Info("bilibili URL with unusable identifier; skipping", logging.String("path", path))
		}
		return res
	}
	ref := decision.Ref
	logger = logger.With(logging.String("video_id", ref.VideoID))
	logger.Info("resolving danmaku",
		logging.String("resolved_url", ref.ResolvedURL),
		logging.String("kind", ref.Kind.String()),
	)

	res.report.Removed = tracks.Reconcile(services.WithStage(ctx, "reconcile"), o.host, o.logger)

	if err := o.host.SetString(ctx, "sub-auto", o.autoSelect); err != nil {
		logging.WarnWithContext(logger, "failed to set subtitle auto-selection", "host_property_failed",
			logging.String("property", "sub-auto"),
			logging.Error(err),
			logging.String(logging.FieldImpact, "mpv may auto-load other subtitle files"),
		)
	}

	art, err := o.artifacts.Create(ref.Token)
	if err != nil {
		res.report.Err = atStage("artifact", err)
		return res
	}
	keep := false
	defer func() {
		if keep {
			res.artifact = art
			return
		}
		o.release(art)
	}()

	result, err := o.converter.Run(services.WithStage(ctx, "convert"), ref.ResolvedURL)
	res.report.Diagnostic = result.Diagnostic
	logDiagnostic(logger, result.Diagnostic)
	if err != nil {
		res.report.Err = atStage("convert", err)
		return res
	}
	if len(result.Subtitle) == 0 {
		logging.WarnWithContext(logger, "converter produced an empty subtitle", "converter_empty_output",
			logging.String(logging.FieldImpact, "the installed track will show no comments"),
		)
	}

	if err := art.Write(result.Subtitle); err != nil {
		res.report.Err = atStage("write", err)
		return res
	}

	// A newer file may have been loaded while the converter ran.
	if err := ctx.Err(); err != nil {
		res.report.Err = atStage("install", err)
		return res
	}
	if err := o.host.AddSubtitle(ctx, art.Path(), tracks.SentinelLang, tracks.SentinelTitle); err != nil {
		res.report.Err = atStage("install", hostErr(ctx, "sub-add", err))
		return res
	}
	res.report.Installed = true
	res.report.SubtitlePath = art.Path()
	keep = o.retain
	return res
}

func hostErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	if errors.Is(err, services.ErrHost) || errors.Is(err, services.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return services.Wrap(services.ErrHost, "host", op, "", err)
}

func logDiagnostic(logger *slog.Logger, diagnostic string) {
	if diagnostic == "" {
		logger.Debug("converter wrote no diagnostics")
		return
	}
	logger.Info("converter diagnostics", logging.String("stderr", diagnostic))
}
