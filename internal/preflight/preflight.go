package preflight

import (
	"context"

	"reelvault/internal/config"
)

// Result reports the outcome of a single readiness check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable readiness check for the given config:
// working directories, the media binaries, and the configured service
// endpoints. Unconfigured optional services are skipped.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir))
	results = append(results, CheckDirectoryAccess("Archive directory", cfg.Paths.ArchiveDir))
	results = append(results, CheckDirectoryAccess("Prompts directory", cfg.Paths.PromptsDir))

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available,
			Detail: statusDetail(status),
		})
	}

	if cfg.Sheets.BaseURL != "" {
		results = append(results, CheckEndpoint(ctx, "Metadata store", cfg.Sheets.BaseURL))
	} else {
		results = append(results, Result{Name: "Metadata store", Detail: "base_url not configured"})
	}
	if cfg.STT.APIURL != "" {
		results = append(results, CheckEndpoint(ctx, "STT server", cfg.STT.APIURL))
	}
	if cfg.LLM.APIURL != "" {
		results = append(results, CheckEndpoint(ctx, "LLM server", cfg.LLM.APIURL))
	}

	return results
}

// Failures filters results down to the failed checks.
func Failures(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
