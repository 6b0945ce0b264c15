// Package envflag implements the one environment-variable toggle the core
// honors directly: GRAPHILE_ENABLE_DANGEROUS_LOGS, which dumps the resolved
// pool configuration at construction time for debugging.
package envflag

import (
	"log/slog"
	"os"
)

const dangerousLogsVar = "GRAPHILE_ENABLE_DANGEROUS_LOGS"

// DangerousLogsEnabled reports whether GRAPHILE_ENABLE_DANGEROUS_LOGS=1 is
// set in the process environment.
func DangerousLogsEnabled() bool {
	return os.Getenv(dangerousLogsVar) == "1"
}

// DumpConfig logs cfg at debug level if DangerousLogsEnabled, tagging the
// dump so it's easy to grep out of production logs.
func DumpConfig(logger *slog.Logger, cfg any) {
	if logger == nil || !DangerousLogsEnabled() {
		return
	}
	logger.Debug("envflag: dumping resolved configuration", "config", cfg)
}
