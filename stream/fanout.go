package stream

import "sync"

// Fanout multicasts published values to every live subscriber. The zero
// value is ready to use. Publish order is the delivery order for each
// subscriber; subscribers added mid-stream see only later values.
type Fanout[T any] struct {
	lock sync.Mutex
	seq  int
	subs map[int]Observer[T]
	done bool
}

func (f *Fanout[T]) Publish(v T) {
	f.lock.Lock()
	obs := make([]Observer[T], 0, len(f.subs))
	for _, o := range f.subs {
		obs = append(obs, o)
	}
	f.lock.Unlock()
	for _, o := range obs {
		o.Next(v)
	}
}

// Close completes every subscriber stream. Further Subscribe calls fail
// with ErrClosed; further Publish calls are dropped.
func (f *Fanout[T]) Close() {
	f.lock.Lock()
	if f.done {
		f.lock.Unlock()
		return
	}
	f.done = true
	obs := f.subs
	f.subs = nil
	f.lock.Unlock()
	for _, o := range obs {
		if o.Done != nil {
			o.Done()
		}
	}
}

// Stream exposes the fanout as a subscribable stream. Disposing a
// subscription removes exactly that subscriber.
func (f *Fanout[T]) Stream() *Stream[T] {
	return New(func(o Observer[T]) (DisposeFunc, error) {
		f.lock.Lock()
		if f.done {
			f.lock.Unlock()
			return nil, ErrClosed
		}
		if f.subs == nil {
			f.subs = make(map[int]Observer[T])
		}
		id := f.seq
		f.seq++
		f.subs[id] = o
		f.lock.Unlock()
		return func() {
			f.lock.Lock()
			delete(f.subs, id)
			f.lock.Unlock()
		}, nil
	})
}
