package store

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/rjmcguire/cycle-firebase/utils"
)

var PebbleWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "firesync",
	Subsystem: "store",
	Name:      "writes",
}, []string{"kind"})

var PebbleListeners = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "firesync",
	Subsystem: "store",
	Name:      "listeners",
})

// Keyspaces: 'N' node leaves, 'A' accounts.
func nodeKey(path string) []byte {
	return append([]byte{'N'}, path...)
}

func accountKey(email string) []byte {
	return append([]byte{'A'}, email...)
}

// childBounds is the key range holding every leaf strictly below path.
func childBounds(path string) (fro, til []byte) {
	if path == "" {
		return []byte{'N', 0}, []byte{'O'}
	}
	return append(nodeKey(path), '/'), append(nodeKey(path), '0')
}

type listener struct {
	path string
	fn   ListenerFunc
}

type account struct {
	UID      string `json:"uid"`
	Password string `json:"password"`
}

type Options struct {
	Logger    utils.Logger
	CacheSize int
}

func (o *Options) SetDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	if o.CacheSize == 0 {
		o.CacheSize = 256
	}
}

// Pebble is an embeddable tree store over a pebble database. It
// implements Client; nodes obtained from Root share its state.
type Pebble struct {
	db   *pebble.DB
	dir  string
	log  utils.Logger
	opts Options

	seq   atomic.Uint64
	lsns  *xsync.MapOf[uint64, *listener]
	alsns *xsync.MapOf[uint64, AuthFunc]

	cache *lru.Cache[string, any]

	lock sync.Mutex
	user *AuthState
}

var writeOptions = pebble.WriteOptions{Sync: false}

// Open opens (or creates) a store rooted at dir.
func Open(dir string, opts Options) (p *Pebble, err error) {
	opts.SetDefaults()
	p = &Pebble{
		dir:   dir,
		opts:  opts,
		log:   opts.Logger,
		lsns:  xsync.NewMapOf[uint64, *listener](),
		alsns: xsync.NewMapOf[uint64, AuthFunc](),
	}
	p.cache, err = lru.New[string, any](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	p.db, err = pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "store: open")
	}
	return p, nil
}

func (p *Pebble) Close() error {
	if p.db == nil {
		return ErrClosed
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// Collector exposes the underlying database internals as prometheus
// metrics; register it alongside the package-level vars.
func (p *Pebble) Collector() prometheus.Collector {
	return newDBCollector(p.db)
}

func (p *Pebble) Root() Node {
	return &pebbleNode{store: p}
}

// pebbleNode is a path-scoped view; it owns nothing but the path.
type pebbleNode struct {
	store *Pebble
	path  string
}

func (n *pebbleNode) Path() string { return n.path }

func (n *pebbleNode) Child(path string) Node {
	return &pebbleNode{store: n.store, path: JoinPath(n.path, path)}
}

func (n *pebbleNode) Get() (any, error) {
	return n.store.value(n.path)
}

func (n *pebbleNode) Set(value any) error {
	return n.store.set(n.path, value)
}

func (n *pebbleNode) On(event string, fn ListenerFunc) (*Registration, error) {
	if event != EventValue {
		return nil, ErrUnknownEvent
	}
	p := n.store
	id := p.seq.Add(1)
	p.lsns.Store(id, &listener{path: n.path, fn: fn})
	PebbleListeners.Inc()
	v, err := p.value(n.path)
	if err != nil {
		p.lsns.Delete(id)
		PebbleListeners.Dec()
		return nil, err
	}
	fn(Event{Path: n.path, Value: v})
	return NewRegistration(func() {
		p.lsns.Delete(id)
		PebbleListeners.Dec()
	}), nil
}

func (n *pebbleNode) Off(reg *Registration) {
	reg.deregister()
}

func (p *Pebble) set(path string, value any) error {
	if p.db == nil {
		return ErrClosed
	}
	p.lock.Lock()
	batch := p.db.NewBatch()
	if err := clearSubtree(batch, path); err != nil {
		batch.Close()
		p.lock.Unlock()
		return err
	}
	if err := writeLeaves(batch, path, value); err != nil {
		batch.Close()
		p.lock.Unlock()
		return err
	}
	if err := p.db.Apply(batch, &writeOptions); err != nil {
		p.lock.Unlock()
		return errors.Wrap(err, "store: set")
	}
	for _, k := range p.cache.Keys() {
		if Related(k, path) {
			p.cache.Remove(k)
		}
	}
	p.lock.Unlock()
	PebbleWrites.WithLabelValues("set").Inc()

	p.lsns.Range(func(_ uint64, l *listener) bool {
		if !Related(l.path, path) {
			return true
		}
		v, err := p.value(l.path)
		if err != nil {
			p.log.Warn("listener read failed", "path", l.path, "err", err)
			return true
		}
		l.fn(Event{Path: l.path, Value: v})
		return true
	})
	return nil
}

func clearSubtree(batch *pebble.Batch, path string) error {
	if err := batch.Delete(nodeKey(path), nil); err != nil {
		return err
	}
	fro, til := childBounds(path)
	return batch.DeleteRange(fro, til, nil)
}

func writeLeaves(batch *pebble.Batch, path string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		for k, cv := range v {
			if err := writeLeaves(batch, JoinPath(path, k), cv); err != nil {
				return err
			}
		}
		return nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return errors.Wrapf(err, "store: encoding %q", path)
		}
		return batch.Set(nodeKey(path), raw, nil)
	}
}

// value composes the current value at path: a decoded scalar for a
// leaf, a nested map for an inner node, nil for an absent one.
func (p *Pebble) value(path string) (any, error) {
	if p.db == nil {
		return nil, ErrClosed
	}
	if v, ok := p.cache.Get(path); ok {
		return v, nil
	}
	raw, clo, err := p.db.Get(nodeKey(path))
	if err == nil {
		var v any
		err = json.Unmarshal(raw, &v)
		_ = clo.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "store: decoding %q", path)
		}
		p.cache.Add(path, v)
		return v, nil
	}
	if err != pebble.ErrNotFound {
		return nil, errors.Wrap(err, "store: get")
	}

	fro, til := childBounds(path)
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: fro, UpperBound: til})
	if err != nil {
		return nil, errors.Wrap(err, "store: iter")
	}
	var tree map[string]any
	strip := len(nodeKey(path))
	if path != "" {
		strip++ // the joining slash
	}
	for it.First(); it.Valid(); it.Next() {
		var v any
		if err := json.Unmarshal(it.Value(), &v); err != nil {
			_ = it.Close()
			return nil, errors.Wrapf(err, "store: decoding %q", string(it.Key()[1:]))
		}
		if tree == nil {
			tree = make(map[string]any)
		}
		graft(tree, strings.Split(string(it.Key()[strip:]), "/"), v)
	}
	if err := it.Close(); err != nil {
		return nil, errors.Wrap(err, "store: iter")
	}
	if tree == nil {
		return nil, nil
	}
	p.cache.Add(path, any(tree))
	return tree, nil
}

func graft(tree map[string]any, segs []string, v any) {
	for len(segs) > 1 {
		sub, ok := tree[segs[0]].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			tree[segs[0]] = sub
		}
		tree = sub
		segs = segs[1:]
	}
	tree[segs[0]] = v
}
