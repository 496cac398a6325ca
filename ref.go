package firesync

import (
	"strings"

	"github.com/rjmcguire/cycle-firebase/store"
	"github.com/rjmcguire/cycle-firebase/stream"
)

// Ref is an immutable accessor bound to one normalized path. Refs are
// freely shareable and hold no state beyond the path and the driver
// handle; equal paths mean interchangeable refs.
type Ref struct {
	d    *Driver
	path string
}

// Root is the accessor for the driver's base location.
func (d *Driver) Root() *Ref {
	return &Ref{d: d}
}

func (r *Ref) Path() string {
	return r.path
}

// Child navigates to a sub-path. Child("a/b") and Child("a").Child("b")
// name the same location.
func (r *Ref) Child(sub string) (*Ref, error) {
	if err := checkSubpath(sub); err != nil {
		return nil, err
	}
	return &Ref{d: r.d, path: store.JoinPath(r.path, sub)}, nil
}

// Get streams the value at the ref's path plus the optional subpath.
// Plain locations stream the store value, current one first; locations
// under a reserved prefix stream the namespace's derived field.
func (r *Ref) Get(subpath ...string) (*stream.Stream[any], error) {
	loc := r.path
	for _, s := range subpath {
		if err := checkSubpath(s); err != nil {
			return nil, err
		}
		loc = store.JoinPath(loc, s)
	}
	t := classify(loc)
	if t.kind == targetReserved {
		return r.d.resolve(t.prefix, t.rest)
	}
	return Value(r.node(loc)), nil
}

// Node exposes the store node at the ref's path, an escape hatch for
// collaborators needing direct store access.
func (r *Ref) Node() store.Node {
	return r.node(r.path)
}

func (r *Ref) node(loc string) store.Node {
	if loc == "" {
		// the base itself, not a child lookup on an empty path
		return r.d.base
	}
	return r.d.base.Child(loc)
}

// UID, PushIDs and Errors are path-independent; they ride on every ref
// for caller convenience.
func (r *Ref) UID() *stream.Stream[string] { return r.d.UID() }

func (r *Ref) PushIDs() *stream.Stream[string] { return PushIDs() }

func (r *Ref) Errors() *stream.Stream[error] { return r.d.Errors() }

func checkSubpath(sub string) error {
	for _, seg := range strings.Split(sub, "/") {
		if seg == "." || seg == ".." {
			return ErrInvalidArgument
		}
		for _, c := range seg {
			if c < 0x20 || c == 0x7f {
				return ErrInvalidArgument
			}
		}
	}
	return nil
}
