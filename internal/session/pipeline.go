package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"turntable/internal/config"
	"turntable/internal/export"
	"turntable/internal/extract"
	"turntable/internal/frames"
	"turntable/internal/hosting"
	"turntable/internal/logging"
	"turntable/internal/motion"
	"turntable/internal/notifications"
	"turntable/internal/resample"
	"turntable/internal/rotation"
	"turntable/internal/services"
	"turntable/internal/stabilize"
	"turntable/internal/staging"
	"turntable/internal/store"
)

var (
	// ErrNoStabilizedFrames is returned when every decoded frame was unreadable.
	ErrNoStabilizedFrames = errors.New("no readable frames after stabilization")
	// ErrDraining is returned by Prepare once Drain has been called.
	ErrDraining = errors.New("server is shutting down")
)

// Decoder turns a video file into an ordered frame sequence in outDir.
type Decoder interface {
	Extract(ctx context.Context, videoPath, outDir string) (frames.Sequence, error)
}

// Result is the success payload of a session.
type Result struct {
	Success         bool     `json:"success"`
	SessionID       string   `json:"session_id"`
	FrameCount      int      `json:"frame_count"`
	FrameURLs       []string `json:"frame_urls"`
	RequestedFrames int      `json:"requested_frames"`
	Shortfall       int      `json:"shortfall"`
}

// Pipeline runs sessions against one configuration.
type Pipeline struct {
	cfg       *config.Config
	estimator motion.Estimator
	decoder   Decoder
	publisher hosting.Publisher
	store     *store.Store
	notifier  notifications.Service
	logger    *slog.Logger

	mu       sync.Mutex
	active   map[string]struct{}
	draining bool
	inflight sync.WaitGroup
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithDecoder replaces the ffmpeg decoder.
func WithDecoder(d Decoder) Option {
	return func(p *Pipeline) { p.decoder = d }
}

// WithPublisher replaces the configured publisher.
func WithPublisher(pub hosting.Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithStore records session history in st.
func WithStore(st *store.Store) Option {
	return func(p *Pipeline) { p.store = st }
}

// WithNotifier sends session outcomes through n.
func WithNotifier(n notifications.Service) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithEstimator replaces the configured motion backend.
func WithEstimator(est motion.Estimator) Option {
	return func(p *Pipeline) { p.estimator = est }
}

// New builds a Pipeline. The motion backend is resolved once here.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "session"),
		active: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.estimator == nil {
		est, err := motion.New(cfg.Motion)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "session", "motion backend", "", err)
		}
		p.estimator = est
	}
	if p.notifier == nil {
		p.notifier = notifications.NewService(cfg)
	}
	return p, nil
}

// Prepare allocates a session token and its workspace, and records the
// session as processing. ext is the uploaded video's extension.
func (p *Pipeline) Prepare(ctx context.Context, videoName, ext string) (staging.Workspace, error) {
	id := staging.NewSessionID()
	ws := staging.NewWorkspace(p.cfg.Paths.StagingDir, id, ext)
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return ws, services.Wrap(services.ErrTransient, "session", "prepare", "", ErrDraining)
	}
	p.active[id] = struct{}{}
	p.inflight.Add(1)
	p.mu.Unlock()
	if err := ws.Create(); err != nil {
		p.release(id)
		return ws, fmt.Errorf("create session workspace: %w", err)
	}
	if p.store != nil {
		if _, err := p.store.Create(ctx, id, videoName); err != nil {
			logging.WarnWithContext(p.logger, "session history unavailable", "store_write_failed",
				logging.String(logging.FieldSessionID, id),
				logging.Error(err),
				logging.String(logging.FieldImpact, "session missing from history"),
			)
		}
	}
	return ws, nil
}

// Active returns the ids of sessions currently processing.
func (p *Pipeline) Active() map[string]struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]struct{}, len(p.active))
	for id := range p.active {
		out[id] = struct{}{}
	}
	return out
}

func (p *Pipeline) release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.active[id]; ok {
		delete(p.active, id)
		p.inflight.Done()
	}
}

// Drain refuses new sessions and blocks until every prepared session has
// finished or failed.
func (p *Pipeline) Drain() {
	p.mu.Lock()
	p.draining = true
	p.mu.Unlock()
	p.inflight.Wait()
}

// stages holds the per-session component instances.
type stages struct {
	decoder    Decoder
	stabilizer *stabilize.Stabilizer
	tracker    *rotation.Tracker
	exporter   *export.Exporter
	publisher  hosting.Publisher
}

func (p *Pipeline) buildStages(logger *slog.Logger) (stages, error) {
	stab, err := stabilize.New(p.estimator, p.cfg.Stabilize, logger)
	if err != nil {
		return stages{}, services.Wrap(services.ErrConfiguration, "session", "stabilizer", "", err)
	}
	st := stages{
		decoder:    p.decoder,
		stabilizer: stab,
		tracker:    rotation.NewTracker(p.estimator, logger),
		exporter:   export.New(logger),
		publisher:  p.publisher,
	}
	if st.decoder == nil {
		st.decoder = extract.New(p.cfg.FFmpeg, logger)
	}
	if st.publisher == nil {
		st.publisher = hosting.NewPublisher(p.cfg, logger)
	}
	return st, nil
}

// Process runs every stage for ws. The uploaded video must already be at
// ws.Video. A returned error is fatal for the session; its services.Cause
// is the user-facing diagnostic.
func (p *Pipeline) Process(ctx context.Context, ws staging.Workspace) (Result, error) {
	defer p.release(ws.SessionID)
	started := time.Now()

	logger, closer, err := logging.NewSessionLogger(p.logger, p.cfg.SessionLogDir(), ws.SessionID)
	if err != nil {
		logging.WarnWithContext(p.logger, "session log unavailable", "session_log_failed",
			logging.String(logging.FieldSessionID, ws.SessionID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stage logs only reach the main log"),
		)
		logger, closer = p.logger, io.NopCloser(nil)
	}
	defer closer.Close()

	ctx = services.WithSessionID(ctx, ws.SessionID)
	result, err := p.run(ctx, ws, logger)
	if err != nil {
		p.finishFailed(ctx, ws, logger, err)
		return Result{SessionID: ws.SessionID}, err
	}

	if !p.cfg.Pipeline.KeepIntermediates {
		if rmErr := ws.RemoveIntermediates(); rmErr != nil {
			logging.WarnWithContext(logger, "failed to remove intermediates", "staging_cleanup_failed",
				logging.Error(rmErr),
				logging.String(logging.FieldImpact, "disk space not reclaimed until retention cleanup"),
			)
		}
	}
	if p.store != nil {
		if err := p.store.Complete(context.WithoutCancel(ctx), ws.SessionID, store.Outcome{
			FrameCount:      result.FrameCount,
			RequestedFrames: result.RequestedFrames,
			Remote:          p.cfg.HostingEnabled(),
			URLs:            result.FrameURLs,
		}); err != nil {
			logging.WarnWithContext(logger, "failed to record session result", "store_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "session history shows the session as processing"),
			)
		}
	}
	p.notify(ctx, logger, notifications.EventSessionCompleted, notifications.Notice{
		SessionID: ws.SessionID,
		Uploaded:  result.FrameCount,
		Requested: result.RequestedFrames,
	})
	logger.Info("session complete",
		logging.Int("frame_count", result.FrameCount),
		logging.Int("requested_frames", result.RequestedFrames),
		logging.Int("shortfall", result.Shortfall),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// Fail records a session that failed before Process ran, for example when
// the upload could not be saved.
func (p *Pipeline) Fail(ctx context.Context, ws staging.Workspace, err error) {
	defer p.release(ws.SessionID)
	p.finishFailed(services.WithSessionID(ctx, ws.SessionID), ws, p.logger, err)
}

func (p *Pipeline) finishFailed(ctx context.Context, ws staging.Workspace, logger *slog.Logger, err error) {
	cause := services.Cause(err)
	logging.ErrorWithContext(logging.WithContext(ctx, logger), "session failed", "session_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "see the session log for the failing stage"),
	)
	// A failed session serves no frames, even ones exported before the failure.
	cleanup := ws.Remove
	if p.cfg.Pipeline.KeepIntermediates {
		cleanup = ws.RemoveOutput
	}
	if rmErr := cleanup(); rmErr != nil {
		logging.WarnWithContext(logger, "failed to remove session files", "staging_cleanup_failed",
			logging.Error(rmErr),
			logging.String(logging.FieldImpact, "disk space not reclaimed until retention cleanup"),
		)
	}
	if p.store != nil {
		if storeErr := p.store.Fail(context.WithoutCancel(ctx), ws.SessionID, cause); storeErr != nil {
			logging.WarnWithContext(logger, "failed to record session failure", "store_write_failed",
				logging.Error(storeErr),
				logging.String(logging.FieldImpact, "session history shows the session as processing"),
			)
		}
	}
	p.notify(ctx, logger, notifications.EventSessionFailed, notifications.Notice{
		SessionID: ws.SessionID,
		Error:     cause,
	})
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, notice notifications.Notice) {
	if err := p.notifier.Publish(context.WithoutCancel(ctx), event, notice); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ntfy_topic and network connectivity"),
			logging.String(logging.FieldImpact, "no push notification for this session"),
		)
	}
}

func (p *Pipeline) run(ctx context.Context, ws staging.Workspace, logger *slog.Logger) (Result, error) {
	st, err := p.buildStages(logger)
	if err != nil {
		return Result{}, err
	}
	target := p.cfg.Pipeline.TargetFrames

	extracted, err := st.decoder.Extract(services.WithStage(ctx, "extract"), ws.Video, ws.Extracted)
	if err != nil {
		return Result{}, err
	}

	stageCtx := services.WithStage(ctx, "stabilize")
	if _, err := st.stabilizer.Run(stageCtx, extracted, ws.Stabilized); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "stabilize", "", "", err)
	}
	stabilized, err := frames.List(ws.Stabilized, frames.ExtractedPrefix)
	if err != nil {
		return Result{}, fmt.Errorf("list stabilized frames: %w", err)
	}
	if stabilized.Len() == 0 {
		return Result{}, services.Wrap(services.ErrExternalTool, "stabilize", "", "", ErrNoStabilizedFrames)
	}

	rot, err := st.tracker.Track(services.WithStage(ctx, "track"), stabilized)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "track", "", "", err)
	}

	indices, err := resample.Resample(rot.Curve, target)
	if err != nil {
		return Result{}, fmt.Errorf("resample: %w", err)
	}
	logging.WithContext(services.WithStage(ctx, "resample"), logger).Info("progress curve resampled",
		logging.Int("target", target),
		logging.Int("distinct_frames", indices.Distinct()),
		logging.Int("source_frames", stabilized.Len()),
	)

	names, err := st.exporter.Export(services.WithStage(ctx, "export"), stabilized, indices, ws.Output)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "export", "", "", err)
	}

	pub, err := st.publisher.PublishAll(services.WithStage(ctx, "publish"), ws.SessionID, ws.Output, names)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "publish", "", "", err)
	}

	urls := pub.URLs
	if urls == nil {
		urls = []string{}
	}
	return Result{
		Success:         true,
		SessionID:       ws.SessionID,
		FrameCount:      len(urls),
		FrameURLs:       urls,
		RequestedFrames: target,
		Shortfall:       target - len(urls),
	}, nil
}

// Sweep removes staging entries and finished history older than the
// configured retention, skipping sessions still processing.
func (p *Pipeline) Sweep(ctx context.Context) staging.CleanStaleResult {
	retention := time.Duration(p.cfg.Pipeline.SessionRetentionHours) * time.Hour
	if retention <= 0 {
		return staging.CleanStaleResult{}
	}
	result := staging.CleanStale(ctx, p.cfg.Paths.StagingDir, retention, p.Active(), p.logger)
	if p.store != nil {
		if n, err := p.store.Prune(ctx, time.Now().Add(-retention)); err != nil {
			logging.WarnWithContext(p.logger, "failed to prune session history", "store_prune_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "old sessions remain listed"),
			)
		} else if n > 0 {
			p.logger.Info("pruned session history", logging.Int64("removed", n))
		}
	}
	return result
}
