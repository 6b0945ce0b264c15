package pool

import "sync/atomic"

// exitCode is set once, on detection of a schema migration notification, so
// a cmd/ entry point (out of scope here) can call os.Exit(int(ExitCode()))
// after the pool's Done channel closes. Keeping it an observable getter
// instead of calling os.Exit inline keeps the detection path testable.
var exitCode atomic.Int32

const migrationExitCode = 54

func setMigrationExitCode() {
	exitCode.Store(migrationExitCode)
}

// ExitCode returns the process exit code a schema migration notification
// requested, or 0 if none has been observed.
func ExitCode() int32 {
	return exitCode.Load()
}
