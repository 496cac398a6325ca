package ingest

import (
	"testing"

	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjmcguire/cycle-firebase/diff"
	"github.com/rjmcguire/cycle-firebase/stream"
)

func TestDrainPublishesSnapshots(t *testing.T) {
	q := NewSnapshotQueue()

	got := []diff.Tree{}
	sub, err := q.Snapshots().Subscribe(stream.Observer[diff.Tree]{
		Next: func(s diff.Tree) { got = append(got, s) },
	})
	require.Nil(t, err)
	defer sub.Dispose()

	err = q.Drain(toyqueue.Records{
		[]byte(`{"a": 1}`),
		[]byte(`{"a": 1, "b": {"c": "x"}}`),
	})
	require.Nil(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, diff.Tree{"a": float64(1)}, got[0])
	assert.Equal(t, diff.Tree{"a": float64(1), "b": map[string]any{"c": "x"}}, got[1])
}

func TestDrainRevivesDirectives(t *testing.T) {
	q := NewSnapshotQueue()

	var got diff.Tree
	sub, err := q.Snapshots().Subscribe(stream.Observer[diff.Tree]{
		Next: func(s diff.Tree) { got = s },
	})
	require.Nil(t, err)
	defer sub.Dispose()

	require.Nil(t, q.Drain(toyqueue.Records{
		[]byte(`{"a": {"$set": {"c": 3}}, "b": {"$set": 1, "other": 2}}`),
	}))
	assert.Equal(t, diff.Set(map[string]any{"c": float64(3)}), got["a"])
	// two-key objects are data, not directives
	assert.Equal(t, map[string]any{"$set": float64(1), "other": float64(2)}, got["b"])
}

func TestDrainRejectsGarbage(t *testing.T) {
	q := NewSnapshotQueue()
	assert.NotNil(t, q.Drain(toyqueue.Records{[]byte(`{"a":`)}))
}

func TestPackUnpack(t *testing.T) {
	snap := diff.Tree{"a": diff.Set(map[string]any{"c": float64(3)}), "b": "x"}

	rec, err := Pack(snap)
	require.Nil(t, err)

	got, rest, err := Unpack(rec)
	require.Nil(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, diff.Set(map[string]any{"c": float64(3)}), got["a"])
	assert.Equal(t, "x", got["b"])
}

func TestCloseCompletesSnapshots(t *testing.T) {
	q := NewSnapshotQueue()
	done := false
	_, err := q.Snapshots().Subscribe(stream.Observer[diff.Tree]{
		Done: func() { done = true },
	})
	require.Nil(t, err)
	require.Nil(t, q.Close())
	assert.True(t, done)

	_, err = q.Snapshots().Subscribe(stream.Observer[diff.Tree]{})
	assert.Equal(t, stream.ErrClosed, err)
}
