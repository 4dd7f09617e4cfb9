package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"turntable/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Publish a test message to the ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			svc := notifications.NewService(cfg)
			if svc == notifications.Discard {
				fmt.Fprintln(out, "Notifications are disabled; set [notifications] ntfy_topic")
				return nil
			}
			if err := svc.Publish(cmd.Context(), notifications.EventTest, notifications.Notice{}); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(out, "Test notification sent to", cfg.Notifications.NtfyTopic)
			return nil
		},
	}
}
