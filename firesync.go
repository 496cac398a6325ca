// Package firesync reconciles a stream of application-state snapshots
// against a hierarchical tree store. Each new snapshot is diffed
// against the previous one and the resulting changes are applied as
// location-scoped writes; the reserved user location routes to the
// store's authentication surface instead. Reads go through path-scoped
// accessors that overlay the virtual $user and $lastError namespaces
// on the store's data.
package firesync

import (
	"log/slog"
	"sync"

	"github.com/rjmcguire/cycle-firebase/auth"
	"github.com/rjmcguire/cycle-firebase/diff"
	"github.com/rjmcguire/cycle-firebase/store"
	"github.com/rjmcguire/cycle-firebase/stream"
	"github.com/rjmcguire/cycle-firebase/utils"
)

// Set wraps a value into a full-overwrite directive for use inside a
// snapshot.
func Set(value any) diff.Overwrite {
	return diff.Set(value)
}

type Options struct {
	// Base scopes the driver under a path of the store root; ""
	// drives the root itself.
	Base   string
	Logger utils.Logger
}

func (o *Options) SetDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
}

// Driver owns one reconciliation pipeline over one store client. The
// error channel is created here and lives as long as the driver.
type Driver struct {
	client store.Client
	base   store.Node
	log    utils.Logger

	errs stream.Fanout[error]

	lock sync.Mutex
	prev diff.Tree
	err  error
	sub  *stream.Subscription
}

func New(client store.Client, opts Options) *Driver {
	opts.SetDefaults()
	base := client.Root()
	if p := store.NormalizePath(opts.Base); p != "" {
		base = base.Child(p)
	}
	return &Driver{
		client: client,
		base:   base,
		log:    opts.Logger,
		prev:   diff.Tree{},
	}
}

// Run consumes the snapshot stream and returns the root accessor. The
// first snapshot is compared against the empty tree. Snapshots are
// applied strictly in emission order, one fully before the next.
func (d *Driver) Run(snapshots *stream.Stream[diff.Tree]) (*Ref, error) {
	sub, err := snapshots.Subscribe(stream.Observer[diff.Tree]{
		Next: func(next diff.Tree) {
			if err := d.Reconcile(next); err != nil {
				d.fail(err)
			}
		},
		Fail: func(err error) { d.fail(err) },
	})
	if err != nil {
		return nil, err
	}
	d.lock.Lock()
	d.sub = sub
	d.lock.Unlock()
	return d.Root(), nil
}

// Reconcile diffs next against the last applied snapshot and applies
// every change in the order the diff lists them.
func (d *Driver) Reconcile(next diff.Tree) error {
	d.lock.Lock()
	if d.err != nil {
		d.lock.Unlock()
		return d.err
	}
	prev := d.prev
	d.lock.Unlock()

	for _, c := range diff.Changes(prev, next) {
		if err := d.Apply(c); err != nil {
			return err
		}
	}

	d.lock.Lock()
	d.prev = next
	d.lock.Unlock()
	SnapshotCount.Inc()
	return nil
}

// Apply routes one change: the reserved user location goes to the auth
// dispatch (whole-object assignment only), anything else is a full
// non-merging set on the store node at that location. The returned
// error is a structural violation; operational failures surface on the
// error channel instead.
func (d *Driver) Apply(c diff.Change) error {
	t := classify(c.Location)
	if t.kind == targetReserved {
		if t.prefix != UserPath || t.rest != "" {
			d.log.Error("illegal reserved write", "location", c.Location)
			return ErrProtocolViolation
		}
		op, err := auth.Dispatch(c.Value)
		if err != nil {
			return err
		}
		ChangeCount.WithLabelValues("auth").Inc()
		go d.signIn(op)
		return nil
	}

	ChangeCount.WithLabelValues("store").Inc()
	if err := d.base.Child(c.Location).Set(c.Value); err != nil {
		d.log.Warn("store write failed", "location", c.Location, "err", err)
		d.errs.Publish(err)
	}
	return nil
}

func (d *Driver) signIn(op auth.Op) {
	if err := op(d.client); err != nil {
		AuthFailures.Inc()
		d.log.Warn("auth call failed", "err", err)
		d.errs.Publish(err)
	}
}

// Errors streams asynchronous failures (auth rejections, store write
// errors). They never stop the pipeline.
func (d *Driver) Errors() *stream.Stream[error] {
	return d.errs.Stream()
}

// UID derives the current subject id from the auth state; "" while
// signed out.
func (d *Driver) UID() *stream.Stream[string] {
	return stream.Map(AuthStates(d.client), func(s *store.AuthState) string {
		if s == nil {
			return ""
		}
		return s.UID
	})
}

// Err reports the structural failure that stopped the pipeline, if
// any.
func (d *Driver) Err() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.err
}

func (d *Driver) fail(err error) {
	d.lock.Lock()
	first := d.err == nil
	if first {
		d.err = err
	}
	d.lock.Unlock()
	if first {
		d.log.Error("driver stopped", "err", err)
	}
}

// Close disposes the snapshot subscription and completes the error
// channel. Accessors handed out earlier keep reading the store.
func (d *Driver) Close() error {
	d.lock.Lock()
	sub := d.sub
	d.lock.Unlock()
	if sub != nil {
		sub.Dispose()
	}
	d.errs.Close()
	return nil
}
