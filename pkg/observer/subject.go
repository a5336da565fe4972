// Package observer provides a small typed publish/subscribe primitive used to
// fan out report-cycle outcomes to interested parties.
package observer

import (
	"context"
	"sync"
)

// Observer receives every value published to the subject it is attached to.
type Observer[T any] interface {
	Notify(context.Context, T)
}

// Func adapts a plain function into an Observer.
type Func[T any] func(context.Context, T)

// Notify calls the wrapped function.
func (f Func[T]) Notify(ctx context.Context, v T) {
	if f != nil {
		f(ctx, v)
	}
}

// Subject fans published values out to all attached observers, in attach
// order. Attach and Publish are safe for concurrent use.
type Subject[T any] struct {
	mu        sync.RWMutex
	observers []Observer[T]
}

// NewSubject returns a Subject with the given initial observers.
func NewSubject[T any](observers ...Observer[T]) *Subject[T] {
	return &Subject[T]{observers: append([]Observer[T](nil), observers...)}
}

// Attach registers more observers.
func (s *Subject[T]) Attach(observers ...Observer[T]) {
	s.mu.Lock()
	s.observers = append(s.observers, observers...)
	s.mu.Unlock()
}

// Publish delivers v to every attached observer, synchronously.
func (s *Subject[T]) Publish(ctx context.Context, v T) {
	if s == nil {
		return
	}
	s.mu.RLock()
	observers := append([]Observer[T](nil), s.observers...)
	s.mu.RUnlock()

	for _, obs := range observers {
		if obs != nil {
			obs.Notify(ctx, v)
		}
	}
}
