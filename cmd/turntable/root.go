package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	root := &cobra.Command{
		Use:           "turntable",
		Short:         "Turn product videos into 360° frame sets",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	root.AddGroup(
		&cobra.Group{ID: "run", Title: "Processing:"},
		&cobra.Group{ID: "inspect", Title: "Inspection and maintenance:"},
	)
	for _, c := range []*cobra.Command{newServeCommand(ctx), newProcessCommand(ctx)} {
		c.GroupID = "run"
		root.AddCommand(c)
	}
	for _, c := range []*cobra.Command{
		newSessionsCommand(ctx),
		newStatusCommand(ctx),
		newLogsCommand(ctx),
		newCleanupCommand(ctx),
	} {
		c.GroupID = "inspect"
		root.AddCommand(c)
	}
	root.AddCommand(newConfigCommand(ctx), newTestNotifyCommand(ctx))
	return root
}
