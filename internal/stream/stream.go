// Package stream provides explicitly owned live subscriptions.
//
// A Subscription is returned to the caller that asked for it and must be
// closed by that caller. Close blocks until the producer has exited, so no
// value is observed from a subscription after Close returns.
package stream

import (
	"context"
	"sync"
)

// Subscription is a live feed of values of type T.
type Subscription[T any] struct {
	C <-chan T

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start launches run in its own goroutine and returns the subscription fed
// by it. emit blocks until the consumer receives the value and reports false
// once the subscription has been closed or ctx is done; run should return
// promptly when that happens. C is closed after run returns.
func Start[T any](ctx context.Context, run func(ctx context.Context, emit func(T) bool)) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan T)
	s := &Subscription[T]{
		C:      ch,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	emit := func(v T) bool {
		select {
		case ch <- v:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(ch)
		defer cancel()
		run(ctx, emit)
	}()

	return s
}

// Close stops the producer and waits for it to exit. It is safe to call
// more than once and from multiple goroutines.
func (s *Subscription[T]) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the producer has exited.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Map derives a subscription whose values are fn applied to the values of
// src. The derived subscription owns src and closes it on exit.
func Map[T, U any](ctx context.Context, src *Subscription[T], fn func(T) U) *Subscription[U] {
	return Start(ctx, func(ctx context.Context, emit func(U) bool) {
		defer src.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-src.C:
				if !ok {
					return
				}
				if !emit(fn(v)) {
					return
				}
			}
		}
	})
}

// First waits for the first value of s. ok is false when s completed without
// a value or ctx ended first. s is left open.
func First[T any](ctx context.Context, s *Subscription[T]) (v T, ok bool, err error) {
	select {
	case v, ok = <-s.C:
		return v, ok, nil
	case <-ctx.Done():
		return v, false, ctx.Err()
	}
}
