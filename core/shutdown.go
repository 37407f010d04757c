package core

import "context"

// ShutdownFunc is a cleanup function invoked during graceful shutdown.
// The context carries the shutdown deadline; implementations should return
// promptly when it is cancelled.
type ShutdownFunc func(ctx context.Context) error
