package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for in-flight moves during shutdown.
	shutdownTimeout = 30 * time.Second
)
