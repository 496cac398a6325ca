package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangesScenario(t *testing.T) {
	s0 := Tree{}
	s1 := Tree{"a": 1}
	s2 := Tree{"a": 1, "b": 2}
	s3 := Tree{"a": Set(Tree{"c": 3}), "b": 2}

	assert.Equal(t, []Change{{Location: "a", Value: 1}}, Changes(s0, s1))
	assert.Equal(t, []Change{{Location: "b", Value: 2}}, Changes(s1, s2))
	// directive payload only, the previous "a" subtree is discarded
	assert.Equal(t,
		[]Change{{Location: "a", Value: Tree{"c": 3}}},
		Changes(s2, s3))
}

func TestChangesIdempotent(t *testing.T) {
	x := Tree{"a": 1, "b": Tree{"c": "x", "d": Tree{"e": false}}}
	assert.Empty(t, Changes(x, x))

	withDirective := Tree{"a": Set(Tree{"c": 3})}
	assert.Empty(t, Changes(withDirective, withDirective))
}

func TestChangesNested(t *testing.T) {
	prev := Tree{"a": Tree{"b": 1, "c": 2}}
	next := Tree{"a": Tree{"b": 1, "c": 3, "d": 4}}
	assert.Equal(t, []Change{
		{Location: "a/c", Value: 3},
		{Location: "a/d", Value: 4},
	}, Changes(prev, next))
}

func TestChangesDelete(t *testing.T) {
	prev := Tree{"a": Tree{"b": 1}, "z": 9}
	next := Tree{"z": 9}
	assert.Equal(t, []Change{{Location: "a", Value: nil}}, Changes(prev, next))

	// explicit nil is a delete too
	next2 := Tree{"a": Tree{"b": nil}, "z": 9}
	assert.Equal(t, []Change{{Location: "a/b", Value: nil}}, Changes(prev, next2))
}

func TestChangesScalarBecomesTree(t *testing.T) {
	prev := Tree{"a": 1}
	next := Tree{"a": Tree{"b": 2}}
	// one whole-subtree write, not a leaf write under a live scalar
	assert.Equal(t, []Change{{Location: "a", Value: Tree{"b": 2}}}, Changes(prev, next))
}

func TestChangesOrderDeterministic(t *testing.T) {
	prev := Tree{}
	next := Tree{"m": 1, "a": 2, "z": 3, "k": Tree{"b": 4, "a": 5}}
	want := []Change{
		{Location: "a", Value: 2},
		{Location: "k", Value: Tree{"b": 4, "a": 5}},
		{Location: "m", Value: 1},
		{Location: "z", Value: 3},
	}
	for i := 0; i < 16; i++ {
		assert.Equal(t, want, Changes(prev, next))
	}
}

func TestChangesOverwriteSkipsDiffing(t *testing.T) {
	prev := Tree{"a": Tree{"big": Tree{"sub": "tree"}}}
	next := Tree{"a": Set(Tree{"big": Tree{"sub": "tree"}})}
	// payload goes out verbatim even when it equals the previous state
	assert.Equal(t,
		[]Change{{Location: "a", Value: Tree{"big": Tree{"sub": "tree"}}}},
		Changes(prev, next))
}
