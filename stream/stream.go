// Package stream is a minimal push-stream substrate: a Stream produces
// values for each subscriber, a Subscription releases whatever the
// subscribe acquired. Producers run subscriber callbacks synchronously,
// one emission at a time.
package stream

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("stream: fanout is closed")

// DisposeFunc releases the resources one subscription acquired,
// typically a listener deregistration.
type DisposeFunc func()

// Observer receives emissions. Nil callbacks are skipped.
type Observer[T any] struct {
	Next func(T)
	Fail func(error)
	Done func()
}

// StartFunc begins production for one subscriber. It may deliver
// initial values synchronously before returning. A non-nil error means
// the subscription could not be established (e.g. listener registration
// failed) and no DisposeFunc is returned.
type StartFunc[T any] func(o Observer[T]) (DisposeFunc, error)

type Stream[T any] struct {
	start StartFunc[T]
}

func New[T any](start StartFunc[T]) *Stream[T] {
	return &Stream[T]{start: start}
}

// Subscribe starts production for this observer. Each call acquires its
// own resources; disposing one subscription never affects another.
func (s *Stream[T]) Subscribe(o Observer[T]) (*Subscription, error) {
	if o.Next == nil {
		o.Next = func(T) {}
	}
	if o.Fail == nil {
		o.Fail = func(error) {}
	}
	stop, err := s.start(o)
	if err != nil {
		return nil, err
	}
	return &Subscription{stop: stop}, nil
}

// Subscription undoes one Subscribe. Dispose is safe to call any number
// of times; the underlying release runs exactly once.
type Subscription struct {
	once sync.Once
	stop DisposeFunc
}

func (s *Subscription) Dispose() {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

// Map derives a stream applying f to every emission. Failures and
// completion pass through; disposal cascades to the source.
func Map[T, U any](s *Stream[T], f func(T) U) *Stream[U] {
	return New(func(o Observer[U]) (DisposeFunc, error) {
		sub, err := s.Subscribe(Observer[T]{
			Next: func(v T) { o.Next(f(v)) },
			Fail: o.Fail,
			Done: o.Done,
		})
		if err != nil {
			return nil, err
		}
		return sub.Dispose, nil
	})
}

// Once emits a single freshly generated value to each subscriber, then
// completes.
func Once[T any](gen func() T) *Stream[T] {
	return New(func(o Observer[T]) (DisposeFunc, error) {
		o.Next(gen())
		if o.Done != nil {
			o.Done()
		}
		return func() {}, nil
	})
}
