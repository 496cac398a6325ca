package ingest

import (
	"sync"
	"testing"

	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjmcguire/cycle-firebase/diff"
	"github.com/rjmcguire/cycle-firebase/stream"
)

func TestSpoolOrder(t *testing.T) {
	s := NewSpool(1 << 16)

	require.Nil(t, s.Drain(toyqueue.Records{[]byte("a"), []byte("b")}))
	require.Nil(t, s.Drain(toyqueue.Records{[]byte("c")}))

	recs, err := s.Feed()
	require.Nil(t, err)
	assert.Equal(t, toyqueue.Records{[]byte("a"), []byte("b"), []byte("c")}, recs)

	require.Nil(t, s.Close())
	_, err = s.Feed()
	assert.Equal(t, ErrSpoolClosed, err)
	assert.Equal(t, ErrSpoolClosed, s.Drain(toyqueue.Records{[]byte("d")}))
}

func TestSpoolOverflow(t *testing.T) {
	s := NewSpool(4)
	require.Nil(t, s.Drain(toyqueue.Records{[]byte("abcd")}))
	assert.Equal(t, ErrSpoolOverflow, s.Drain(toyqueue.Records{[]byte("e")}))
}

func TestSpoolFeedBlocks(t *testing.T) {
	s := NewSpool(1 << 16)

	var wg sync.WaitGroup
	wg.Add(1)
	var recs toyqueue.Records
	go func() {
		defer wg.Done()
		recs, _ = s.Feed()
	}()

	require.Nil(t, s.Drain(toyqueue.Records{[]byte("x")}))
	wg.Wait()
	assert.Equal(t, toyqueue.Records{[]byte("x")}, recs)
}

func TestPump(t *testing.T) {
	s := NewSpool(1 << 16)
	q := NewSnapshotQueue()

	got := []diff.Tree{}
	_, err := q.Snapshots().Subscribe(stream.Observer[diff.Tree]{
		Next: func(v diff.Tree) { got = append(got, v) },
	})
	require.Nil(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.Nil(t, Pump(s, q))
	}()

	require.Nil(t, s.Drain(toyqueue.Records{[]byte(`{"a": 1}`)}))
	require.Nil(t, s.Drain(toyqueue.Records{[]byte(`{"a": 2}`)}))
	require.Nil(t, s.Close())
	wg.Wait()

	require.Len(t, got, 2)
	assert.Equal(t, diff.Tree{"a": float64(1)}, got[0])
	assert.Equal(t, diff.Tree{"a": float64(2)}, got[1])
}
