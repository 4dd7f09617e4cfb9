package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"turntable/internal/fileutil"
	"turntable/internal/notifications"
	"turntable/internal/session"
	"turntable/internal/store"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "process <video>",
		Short: "Process a local video into a 360° frame set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			src := args[0]
			info, err := os.Stat(src)
			if err != nil {
				return fmt.Errorf("video %s: %w", src, err)
			}
			if info.IsDir() {
				return fmt.Errorf("video %s is a directory", src)
			}

			logger, err := commandLogger(cfg)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			logConfigWarnings(cfg, logger)
			return withStore(cfg, logger, func(st *store.Store) error {
				pipeline, err := session.New(cfg, logger,
					session.WithStore(st),
					session.WithNotifier(notifications.NewService(cfg)),
				)
				if err != nil {
					return err
				}
				ws, err := pipeline.Prepare(cmd.Context(), filepath.Base(src), filepath.Ext(src))
				if err != nil {
					return err
				}
				if err := fileutil.CopyFile(src, ws.Video); err != nil {
					err = fmt.Errorf("stage video: %w", err)
					pipeline.Fail(cmd.Context(), ws, err)
					return err
				}
				result, err := pipeline.Process(cmd.Context(), ws)
				if err != nil {
					return fmt.Errorf("session %s failed: %w", ws.SessionID, err)
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				printResult(cmd, result)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the session result as JSON")
	return cmd
}

func printResult(cmd *cobra.Command, result session.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s\n", result.SessionID)
	fmt.Fprintf(out, "Frames: %d of %d\n", result.FrameCount, result.RequestedFrames)
	if result.Shortfall > 0 {
		fmt.Fprintf(out, "Missing: %d (upload failures)\n", result.Shortfall)
	}
	fmt.Fprintln(out, urlTable(result.FrameURLs))
}
