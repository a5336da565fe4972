package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when the delivery channel has no open
	// connection to the collector.
	ErrNotConnected = errors.New("channel not connected")
	// ErrUnsupportedGauge indicates a gauge whose value is not one of the
	// numeric types the wire format can carry.
	ErrUnsupportedGauge = errors.New("unsupported gauge value type")
)

// BatchTooLargeError is returned when a batch exceeds the channel's event
// limit. The batch is dropped whole; the channel never splits it.
type BatchTooLargeError struct {
	Events int
	Limit  int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("batch of %d events exceeds limit of %d", e.Events, e.Limit)
}

// ServerError carries the reason a collector gave for rejecting a batch.
type ServerError struct {
	Reason string
}

func (e *ServerError) Error() string {
	return "server rejected batch: " + e.Reason
}
