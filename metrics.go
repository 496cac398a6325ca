package firesync

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rjmcguire/cycle-firebase/store"
)

var SnapshotCount = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "firesync",
	Subsystem: "driver",
	Name:      "snapshots",
})

var ChangeCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "firesync",
	Subsystem: "driver",
	Name:      "changes",
}, []string{"kind"})

var AuthFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "firesync",
	Subsystem: "driver",
	Name:      "auth_failures",
})

// RegisterMetrics registers every collector this module exports,
// including the store-level ones, on reg.
func RegisterMetrics(reg prometheus.Registerer, extra ...prometheus.Collector) error {
	cs := []prometheus.Collector{
		SnapshotCount, ChangeCount, AuthFailures,
		store.PebbleWrites, store.PebbleListeners, store.SignIns,
	}
	cs = append(cs, extra...)
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
