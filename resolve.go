package firesync

import (
	"strings"

	"github.com/rjmcguire/cycle-firebase/store"
	"github.com/rjmcguire/cycle-firebase/stream"
)

// Reserved path prefixes. They resolve to virtual namespaces, never to
// store nodes.
const (
	UserPath      = "$user"
	LastErrorPath = "$lastError"
)

type targetKind int

const (
	targetStore targetKind = iota
	targetReserved
)

// target is the one-shot classification of a normalized location:
// either a plain store path, or a reserved prefix plus the field path
// inside its namespace. Apply and Get dispatch on the tag, nothing
// else slices path strings.
type target struct {
	kind   targetKind
	prefix string
	rest   string
}

func classify(location string) target {
	if !strings.HasPrefix(location, "$") {
		return target{kind: targetStore}
	}
	prefix, rest, _ := strings.Cut(location, "/")
	return target{kind: targetReserved, prefix: prefix, rest: rest}
}

// resolve maps a reserved prefix to its backing stream and derives the
// requested field from each emitted value. The walk is structural
// only; a missing intermediate yields nil, never an error.
func (d *Driver) resolve(prefix, rest string) (*stream.Stream[any], error) {
	var src *stream.Stream[any]
	switch prefix {
	case UserPath:
		src = stream.Map(AuthStates(d.client), func(s *store.AuthState) any {
			if s == nil {
				return nil
			}
			return s
		})
	case LastErrorPath:
		src = stream.Map(d.errs.Stream(), func(e error) any { return e })
	default:
		return nil, ErrUnknownReservedPath
	}
	if rest == "" {
		return src, nil
	}
	segs := strings.Split(rest, "/")
	return stream.Map(src, func(v any) any { return field(v, segs) }), nil
}

func field(v any, segs []string) any {
	for _, s := range segs {
		switch t := v.(type) {
		case map[string]any:
			v = t[s]
		case *store.AuthState:
			v = t.Tree()[s]
		default:
			return nil
		}
	}
	return v
}
