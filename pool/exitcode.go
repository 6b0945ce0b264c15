package pool

import (
	internalpool "github.com/pgvanniekerk/pgworker/internal/pool"
)

// ExitCode returns 54 once a jobs:migrate notification has been observed by
// any pool in the process, and 0 otherwise. A cmd/ entry point (out of scope
// here) should read this after a pool's Done channel closes and call
// os.Exit(int(ExitCode())) if non-zero.
func ExitCode() int32 {
	return internalpool.ExitCode()
}
