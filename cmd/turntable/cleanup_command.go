package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"turntable/internal/staging"
	"turntable/internal/store"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var orphans bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale staging data, old history and old logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-age") {
				maxAge = time.Duration(cfg.Pipeline.SessionRetentionHours) * time.Hour
			}
			if maxAge <= 0 {
				return fmt.Errorf("max age must be positive (got %s)", maxAge)
			}
			logger, err := commandLogger(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return withStore(cfg, logger, func(st *store.Store) error {
				processing, err := st.List(cmd.Context(), 0, store.StatusProcessing)
				if err != nil {
					return err
				}
				active := make(map[string]struct{}, len(processing))
				for _, s := range processing {
					active[s.ID] = struct{}{}
				}

				result := staging.CleanStale(cmd.Context(), cfg.Paths.StagingDir, maxAge, active, logger)
				if orphans {
					orphaned := staging.CleanOrphaned(cmd.Context(), cfg.Paths.StagingDir, active, logger)
					result.Removed = append(result.Removed, orphaned.Removed...)
					result.Errors = append(result.Errors, orphaned.Errors...)
				}
				pruned, err := st.Prune(cmd.Context(), time.Now().Add(-maxAge))
				if err != nil {
					return err
				}
				logs := pruneLogs(cfg, logger)

				fmt.Fprintf(out, "Removed %d staging entries\n", len(result.Removed))
				fmt.Fprintf(out, "Pruned %d history records\n", pruned)
				fmt.Fprintf(out, "Removed %d old log files\n", logs)
				for _, e := range result.Errors {
					fmt.Fprintf(out, "Failed to remove %s: %v\n", e.Path, e.Error)
				}
				if len(result.Errors) > 0 {
					return fmt.Errorf("%d staging entries could not be removed", len(result.Errors))
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove sessions older than this (default: [pipeline] session_retention_hours)")
	cmd.Flags().BoolVar(&orphans, "orphans", false, "Also remove intermediates of sessions that are not processing")
	return cmd
}
