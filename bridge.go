package firesync

import (
	"github.com/rjmcguire/cycle-firebase/store"
	"github.com/rjmcguire/cycle-firebase/stream"
)

// Observe adapts a node's event registration into a stream: the
// listener registers on subscribe and deregisters exactly once on
// dispose. A failed registration fails the subscribe.
func Observe(n store.Node, event string) *stream.Stream[store.Event] {
	return stream.New(func(o stream.Observer[store.Event]) (stream.DisposeFunc, error) {
		reg, err := n.On(event, func(e store.Event) { o.Next(e) })
		if err != nil {
			return nil, err
		}
		return func() { n.Off(reg) }, nil
	})
}

// Value is Observe(n, "value") with the event envelope unpacked: the
// current value on subscribe, then every subsequent one.
func Value(n store.Node) *stream.Stream[any] {
	return stream.Map(Observe(n, store.EventValue), func(e store.Event) any {
		return e.Value
	})
}

// AuthStates bridges the client's auth event source, which has its own
// registration API but the same lifecycle contract as node events.
func AuthStates(c store.Client) *stream.Stream[*store.AuthState] {
	return stream.New(func(o stream.Observer[*store.AuthState]) (stream.DisposeFunc, error) {
		reg := c.OnAuth(func(s *store.AuthState) { o.Next(s) })
		return func() { c.OffAuth(reg) }, nil
	})
}
