package preflight

import (
	"context"
	"time"

	"danmaku/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Detail   string
	Optional bool
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	timeout := time.Duration(cfg.MPV.ConnectTimeoutSeconds) * time.Second
	return []Result{
		CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Runtime directory", cfg.Paths.RuntimeDir),
		CheckConverter(cfg.ConverterBinary()),
		CheckPlayerBinary(),
		CheckSocket(ctx, cfg.MPV.Socket, timeout),
	}
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Optional {
			failed = append(failed, result)
		}
	}
	return failed
}
