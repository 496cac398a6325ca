package ingest

import (
	"errors"
	"sync"

	"github.com/learn-decentralized-systems/toyqueue"
)

var (
	ErrSpoolClosed   = errors.New("ingest: snapshot spool is closed")
	ErrSpoolOverflow = errors.New("ingest: snapshot spool is overflowed")
)

// Spool is a bounded buffer between a bursty transport and the
// snapshot queue: the transport drains records in, Pump feeds them out
// in arrival order. A producer that outruns the limit gets
// ErrSpoolOverflow instead of unbounded memory growth.
type Spool struct {
	limit int

	lock   sync.Mutex
	wake   *sync.Cond
	recs   toyqueue.Records
	size   int
	closed bool
}

var _ toyqueue.FeedDrainCloser = (*Spool)(nil)

// NewSpool buffers up to limit bytes of pending records.
func NewSpool(limit int) *Spool {
	s := &Spool{limit: limit}
	s.wake = sync.NewCond(&s.lock)
	return s
}

func (s *Spool) Drain(recs toyqueue.Records) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return ErrSpoolClosed
	}
	add := 0
	for _, rec := range recs {
		add += len(rec)
	}
	if s.size+add > s.limit {
		return ErrSpoolOverflow
	}
	s.recs = append(s.recs, recs...)
	s.size += add
	s.wake.Broadcast()
	return nil
}

// Feed blocks until records arrive or the spool closes.
func (s *Spool) Feed() (recs toyqueue.Records, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for len(s.recs) == 0 && !s.closed {
		s.wake.Wait()
	}
	if len(s.recs) == 0 {
		return nil, ErrSpoolClosed
	}
	recs = s.recs
	s.recs = nil
	s.size = 0
	return recs, nil
}

func (s *Spool) Close() error {
	s.lock.Lock()
	s.closed = true
	s.wake.Broadcast()
	s.lock.Unlock()
	return nil
}

// Pump shovels records from the spool into the snapshot queue until
// either side closes. It returns the decode error that stopped it, if
// any.
func Pump(s *Spool, q *SnapshotQueue) error {
	for {
		recs, err := s.Feed()
		if err != nil {
			q.Close()
			return nil
		}
		if err = q.Drain(recs); err != nil {
			return err
		}
	}
}
