package preflight

import (
	"context"

	"turntable/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// MinFreeStagingBytes is the free space below which the staging check fails.
// One minute of 1080p video decodes to well over a gigabyte of JPEG frames.
const MinFreeStagingBytes = 2 << 30

// RunAll executes all applicable preflight checks for the given config.
// Network checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDiskSpace("Staging free space", cfg.Paths.StagingDir, MinFreeStagingBytes),
		CheckFFmpeg(cfg),
	}

	if cfg.HostingEnabled() {
		results = append(results, CheckHostingEndpoint(ctx, cfg.Hosting.Endpoint))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
