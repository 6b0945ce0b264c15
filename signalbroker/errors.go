package signalbroker

import "errors"

// ErrAlreadyShuttingDown is returned by Subscribe once either shutdown latch
// has been set for the process. A pool created after that point has nothing
// useful to subscribe to.
var ErrAlreadyShuttingDown = errors.New("signalbroker: process is already shutting down")
