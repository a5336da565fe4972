package ports

import (
	"context"
	"time"

	"github.com/dlobue/metrics-riemann/internal/domain"
)

// Registry hands back a consistent point-in-time view of every registered
// metric. The returned snapshot is owned by the caller and read-only.
type Registry interface {
	Snapshot() domain.Snapshot
}

// Collector is a background sampler feeding values into a registry.
type Collector interface {
	Start(ctx context.Context, interval time.Duration) error
	Stop()
}
