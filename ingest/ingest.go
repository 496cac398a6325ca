// Package ingest feeds snapshots into the driver from byte-record
// transports: a toyqueue drain for record streams and TLV framing for
// wire transports. One record is one JSON-encoded snapshot tree;
// {"$set": V} objects decode back into overwrite directives.
package ingest

import (
	"encoding/json"

	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/learn-decentralized-systems/toytlv"
	"github.com/pkg/errors"

	"github.com/rjmcguire/cycle-firebase/diff"
	"github.com/rjmcguire/cycle-firebase/stream"
)

// SnapshotLit frames one snapshot record on a TLV transport.
const SnapshotLit = 'S'

// SnapshotQueue multicasts drained snapshot records as a snapshot
// stream. It plugs into any transport that drains toyqueue records.
type SnapshotQueue struct {
	fan stream.Fanout[diff.Tree]
}

var _ toyqueue.DrainCloser = (*SnapshotQueue)(nil)

func NewSnapshotQueue() *SnapshotQueue {
	return &SnapshotQueue{}
}

// Snapshots is the stream the driver runs on.
func (q *SnapshotQueue) Snapshots() *stream.Stream[diff.Tree] {
	return q.fan.Stream()
}

func (q *SnapshotQueue) Drain(recs toyqueue.Records) error {
	for _, rec := range recs {
		t, err := decode(rec)
		if err != nil {
			return err
		}
		q.fan.Publish(t)
	}
	return nil
}

func (q *SnapshotQueue) Close() error {
	q.fan.Close()
	return nil
}

// Pack frames one snapshot as a TLV record.
func Pack(t diff.Tree) ([]byte, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return nil, errors.Wrap(err, "ingest: encoding snapshot")
	}
	return toytlv.Record(SnapshotLit, body), nil
}

// Unpack takes one framed snapshot off data and returns the remainder.
func Unpack(data []byte) (t diff.Tree, rest []byte, err error) {
	body, rest, err := toytlv.TakeWary(SnapshotLit, data)
	if err != nil {
		return nil, nil, err
	}
	t, err = decode(body)
	return t, rest, err
}

func decode(rec []byte) (diff.Tree, error) {
	var t diff.Tree
	if err := json.Unmarshal(rec, &t); err != nil {
		return nil, errors.Wrap(err, "ingest: decoding snapshot")
	}
	for k, v := range t {
		t[k] = revive(v)
	}
	return t, nil
}

// revive restores {"$set": V} objects into directives after JSON
// decoding. Directive payloads stay untouched.
func revive(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if len(m) == 1 {
		if inner, ok := m["$set"]; ok {
			return diff.Set(inner)
		}
	}
	for k, cv := range m {
		m[k] = revive(cv)
	}
	return v
}
