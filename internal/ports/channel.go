package ports

import (
	"context"

	"github.com/dlobue/metrics-riemann/internal/domain"
)

// Channel is a persistent, acknowledged delivery path to the collector. Its
// lifecycle belongs to the surrounding application: Connect is idempotent
// ("connect if not connected") and the channel stays open across report
// cycles until Close.
//
// SendEventsWithAck reports (true, nil) when the collector acknowledged the
// batch and (false, nil) when it explicitly declined to. Failures are
// distinguishable through the domain error taxonomy: *domain.BatchTooLargeError,
// *domain.ServerError, domain.ErrNotConnected, and anything else is an I/O
// failure.
type Channel interface {
	IsConnected() bool
	Connect() error
	SendEventsWithAck(ctx context.Context, events []domain.Event) (bool, error)
	Close() error
}
