package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"turntable/internal/config"
	"turntable/internal/preflight"
	"turntable/internal/staging"
	"turntable/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, dependency and session health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			color := isTerminal(out)

			conf := newStatusSection("Configuration", color)
			if ctx.configExists {
				conf.add("Config file", healthOK, ctx.configPath)
			} else {
				conf.add("Config file", healthInfo, "defaults (no file at "+ctx.configPath+")")
			}
			if cfg.HostingEnabled() {
				conf.add("Frame hosting", healthOK, "cloud "+cfg.Hosting.CloudName)
			} else {
				conf.add("Frame hosting", healthInfo, "local, served from "+cfg.API.PublicBaseURL)
			}
			conf.add("API bind", healthInfo, cfg.API.Bind)
			conf.add("API auth", healthInfo, yesNo(strings.TrimSpace(cfg.API.Token) != ""))
			conf.add("Notifications", healthInfo, yesNo(strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""))

			deps := newStatusSection("Dependencies", color)
			for _, dep := range preflight.CheckSystemDeps(cfg) {
				switch {
				case dep.Available:
					detail := dep.Version
					if detail == "" {
						detail = dep.Command
					}
					deps.add(dep.Name, healthOK, detail)
				case dep.Optional:
					deps.add(dep.Name, healthWarn, dep.Detail)
				default:
					deps.add(dep.Name, healthFail, dep.Detail)
				}
			}

			checks := newStatusSection("Preflight", color)
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				h := healthOK
				if !result.Passed {
					h = healthFail
				}
				checks.add(result.Name, h, result.Detail)
			}

			sessions, err := sessionsSection(cmd, cfg, color)
			if err != nil {
				return err
			}
			for _, section := range []*statusSection{conf, deps, checks, sessions} {
				fmt.Fprintln(out, section)
			}
			return nil
		},
	}
}

func sessionsSection(cmd *cobra.Command, cfg *config.Config, color bool) (*statusSection, error) {
	section := newStatusSection("Sessions", color)
	logger, err := commandLogger(cfg)
	if err != nil {
		return nil, err
	}
	err = withStore(cfg, logger, func(st *store.Store) error {
		counts, err := st.Counts(cmd.Context())
		if err != nil {
			return err
		}
		for _, status := range []store.Status{store.StatusProcessing, store.StatusCompleted, store.StatusFailed} {
			section.add(titleCaser.String(string(status)), healthInfo, strconv.Itoa(counts[status]))
		}
		return nil
	})
	if err != nil {
		section.add("History", healthFail, err.Error())
	}

	staged, err := staging.ListSessions(cfg.Paths.StagingDir)
	if err != nil {
		section.add("Staging", healthFail, err.Error())
		return section, nil
	}
	var total int64
	for _, s := range staged {
		total += s.Size
	}
	section.add("Staging", healthInfo, fmt.Sprintf("%d sessions, %s", len(staged), humanize.IBytes(uint64(total))))
	return section, nil
}
