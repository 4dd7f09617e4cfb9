package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"turntable/internal/api"
	"turntable/internal/config"
	"turntable/internal/deps"
	"turntable/internal/logging"
	"turntable/internal/notifications"
	"turntable/internal/preflight"
	"turntable/internal/services"
	"turntable/internal/session"
	"turntable/internal/store"
)

const (
	lockFileName  = "turntable.lock"
	sweepInterval = time.Hour
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(bind) != "" {
				cfg.API.Bind = strings.TrimSpace(bind)
			}
			return runServer(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override the [api] bind address")
	return cmd
}

// acquireServerLock takes the staging root's lock so two servers never
// sweep each other's sessions.
func acquireServerLock(stagingDir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(stagingDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire server lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another turntable server is already using %s", stagingDir)
	}
	return lock, nil
}

func runServer(parent context.Context, cfg *config.Config, out io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	lock, err := acquireServerLock(cfg.Paths.StagingDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	if removed := pruneLogs(cfg, logger); removed > 0 {
		logger.Info("pruned old logs", logging.Int("removed", removed))
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logConfigWarnings(cfg, logger)
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "sessions may fail until resolved"),
		)
	}
	if missing := deps.MissingRequired(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
		return services.Wrap(services.ErrConfiguration, "serve", "preflight",
			"missing required tools: "+strings.Join(missing, ", "), nil)
	}

	st, err := store.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if n, err := st.FailInterrupted(ctx); err != nil {
		return err
	} else if n > 0 {
		logging.WarnWithContext(logger, "marked interrupted sessions as failed", "sessions_interrupted",
			logging.Int64("sessions", n),
			logging.String(logging.FieldImpact, "clients must resubmit those videos"),
		)
	}

	notifier := notifications.NewService(cfg)
	pipeline, err := session.New(cfg, logger, session.WithStore(st), session.WithNotifier(notifier))
	if err != nil {
		return err
	}

	server := api.NewServer(cfg, pipeline, st, logger)
	if err := server.Start(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Listening on %s\n", server.Addr())
	if err := notifier.Publish(ctx, notifications.EventServerStarted, notifications.Notice{Address: server.Addr()}); err != nil {
		logger.Debug("startup notification failed", logging.Error(err))
	}

	pipeline.Sweep(ctx)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			// Stop drains the pipeline, so the deferred store close runs
			// after every session has written its outcome.
			server.Stop()
			return nil
		case <-ticker.C:
			result := pipeline.Sweep(ctx)
			if len(result.Removed) > 0 {
				logger.Info("swept stale sessions", logging.Int("removed", len(result.Removed)))
			}
		}
	}
}

// pruneLogs applies [logging] retention_days to the main and per-session logs.
func pruneLogs(cfg *config.Config, logger *slog.Logger) int {
	return logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{
			Dir:     cfg.Paths.LogDir,
			Pattern: "*.log",
			Exclude: []string{filepath.Join(cfg.Paths.LogDir, logging.MainLogFile)},
		},
		logging.RetentionTarget{Dir: cfg.SessionLogDir(), Pattern: "*.log"},
	)
}
