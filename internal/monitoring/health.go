package monitoring

import (
	"context"
	"time"

	"github.com/heptiolabs/healthcheck"
)

const (
	pingTimeout   = 2 * time.Second
	maxGoroutines = 1000
)

// Pinger is anything that can report its own reachability, such as a pgx pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns a handler serving /live and /ready.
// Every named dependency becomes a readiness check.
func NewHealthHandler(deps map[string]Pinger) healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))

	for name, dep := range deps {
		h.AddReadinessCheck(name, pingCheck(dep))
	}
	return h
}

func pingCheck(dep Pinger) healthcheck.Check {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		return dep.Ping(ctx)
	}
}
