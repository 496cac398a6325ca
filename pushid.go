package firesync

import (
	"github.com/oklog/ulid/v2"

	"github.com/rjmcguire/cycle-firebase/stream"
)

// NewPushID returns a fresh key for optimistic child creation. Ids are
// lexicographically ordered by generation time, so pushed children
// list in creation order. Uniqueness is advisory; the store is not
// consulted.
func NewPushID() string {
	return ulid.Make().String()
}

// PushIDs emits one fresh id per subscription, then completes.
func PushIDs() *stream.Stream[string] {
	return stream.Once(NewPushID)
}
