package stream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamDisposeOnce(t *testing.T) {
	stops := 0
	s := New(func(o Observer[int]) (DisposeFunc, error) {
		o.Next(1)
		return func() { stops++ }, nil
	})

	got := []int{}
	sub, err := s.Subscribe(Observer[int]{Next: func(v int) { got = append(got, v) }})
	assert.Nil(t, err)
	assert.Equal(t, []int{1}, got)

	sub.Dispose()
	sub.Dispose()
	sub.Dispose()
	assert.Equal(t, 1, stops)
}

func TestStreamStartFailure(t *testing.T) {
	boom := errors.New("no listener for you")
	s := New(func(o Observer[int]) (DisposeFunc, error) {
		return nil, boom
	})
	sub, err := s.Subscribe(Observer[int]{})
	assert.Nil(t, sub)
	assert.Equal(t, boom, err)
}

func TestMap(t *testing.T) {
	var emit func(int)
	s := New(func(o Observer[int]) (DisposeFunc, error) {
		emit = o.Next
		return func() { emit = nil }, nil
	})

	got := []string{}
	m := Map(s, func(v int) string {
		if v == 0 {
			return "zero"
		}
		return "some"
	})
	sub, err := m.Subscribe(Observer[string]{Next: func(v string) { got = append(got, v) }})
	assert.Nil(t, err)

	emit(0)
	emit(42)
	assert.Equal(t, []string{"zero", "some"}, got)

	sub.Dispose()
	assert.Nil(t, emit) // disposal cascaded to the source
}

func TestOnce(t *testing.T) {
	n := 0
	s := Once(func() int { n++; return n })

	for k := 1; k <= 3; k++ {
		got := []int{}
		done := false
		_, err := s.Subscribe(Observer[int]{
			Next: func(v int) { got = append(got, v) },
			Done: func() { done = true },
		})
		assert.Nil(t, err)
		assert.Equal(t, []int{k}, got)
		assert.True(t, done)
	}
}

func TestFanout(t *testing.T) {
	f := Fanout[int]{}

	a := []int{}
	b := []int{}
	suba, err := f.Stream().Subscribe(Observer[int]{Next: func(v int) { a = append(a, v) }})
	assert.Nil(t, err)

	f.Publish(1)

	subb, err := f.Stream().Subscribe(Observer[int]{Next: func(v int) { b = append(b, v) }})
	assert.Nil(t, err)

	f.Publish(2)
	suba.Dispose()
	f.Publish(3)
	suba.Dispose() // no-op

	assert.Equal(t, []int{1, 2}, a)
	assert.Equal(t, []int{2, 3}, b)

	done := false
	_, err = f.Stream().Subscribe(Observer[int]{Done: func() { done = true }})
	assert.Nil(t, err)
	f.Close()
	assert.True(t, done)

	_, err = f.Stream().Subscribe(Observer[int]{})
	assert.Equal(t, ErrClosed, err)
	f.Publish(4) // dropped, not a panic
	assert.Equal(t, []int{2, 3}, b)
	subb.Dispose() // disposing after close is still a no-op
}
