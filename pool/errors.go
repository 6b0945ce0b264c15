package pool

import "errors"

// ErrInvalidResetLockedInterval is returned by New when
// Config.MinResetLockedInterval exceeds Config.MaxResetLockedInterval.
var ErrInvalidResetLockedInterval = errors.New("pool: MinResetLockedInterval must not exceed MaxResetLockedInterval")
