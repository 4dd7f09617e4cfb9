package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"turntable/internal/store"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Inspect session history",
	}
	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsShowCommand(ctx))
	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filter, err := parseStatuses(statuses)
			if err != nil {
				return err
			}
			logger, err := commandLogger(cfg)
			if err != nil {
				return err
			}
			return withStore(cfg, logger, func(st *store.Store) error {
				sessions, err := st.List(cmd.Context(), limit, filter...)
				if err != nil {
					return err
				}
				if asJSON {
					if sessions == nil {
						sessions = []*store.Session{}
					}
					return writeJSON(cmd, sessions)
				}
				out := cmd.OutOrStdout()
				if len(sessions) == 0 {
					fmt.Fprintln(out, "No sessions found")
					return nil
				}
				color := isTerminal(out)
				tw := newTable("Session", "Status", "Frames", "Video", "Created")
				for _, s := range sessions {
					tw.AppendRow(table.Row{
						s.ID,
						sessionLabel(s, color),
						fmt.Sprintf("%d/%d", s.FrameCount, s.RequestedFrames),
						s.VideoName,
						humanize.Time(s.CreatedAt),
					})
				}
				alignRight(tw, 3)
				fmt.Fprintln(out, tw.Render())
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (processing, completed, failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session and its frame URLs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := commandLogger(cfg)
			if err != nil {
				return err
			}
			return withStore(cfg, logger, func(st *store.Store) error {
				s, err := st.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, s)
				}
				out := cmd.OutOrStdout()
				fields := [][2]string{
					{"Session", s.ID},
					{"Status", sessionLabel(s, isTerminal(out))},
					{"Video", s.VideoName},
					{"Frames", fmt.Sprintf("%d of %d", s.FrameCount, s.RequestedFrames)},
					{"Hosted", yesNo(s.Remote)},
					{"Created", s.CreatedAt.Local().Format("2006-01-02 15:04:05")},
					{"Updated", s.UpdatedAt.Local().Format("2006-01-02 15:04:05")},
				}
				if s.Error != "" {
					fields = append(fields, [2]string{"Error", s.Error})
				}
				fmt.Fprintln(out, fieldTable(fields))
				if len(s.URLs) > 0 {
					fmt.Fprintln(out, urlTable(s.URLs))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func parseStatuses(values []string) ([]store.Status, error) {
	var out []store.Status
	for _, raw := range values {
		status := store.Status(strings.ToLower(strings.TrimSpace(raw)))
		switch status {
		case store.StatusProcessing, store.StatusCompleted, store.StatusFailed:
			out = append(out, status)
		case "":
		default:
			return nil, fmt.Errorf("unknown status %q (want processing, completed or failed)", raw)
		}
	}
	return out, nil
}
