// Package diff turns a pair of state snapshots into an ordered list of
// location-scoped writes.
package diff

import (
	"encoding/json"
	"reflect"
	"sort"
)

// Tree is one application-state snapshot. Values are nested Trees,
// scalars, nil (delete) or an Overwrite directive.
type Tree = map[string]any

// Overwrite forces full subtree replacement at its location: the diff
// never recurses into it, the payload goes to the store as-is.
type Overwrite struct {
	Value any
}

// Set wraps a value into an Overwrite directive.
func Set(value any) Overwrite {
	return Overwrite{Value: value}
}

// MarshalJSON renders the directive in its wire form, a single-key
// {"$set": V} object.
func (o Overwrite) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"$set": o.Value})
}

// Change is one write: install Value at the node Location (a normalized
// `/`-joined path). A nil Value deletes the node.
type Change struct {
	Location string
	Value    any
}

// Changes lists the writes that turn prev into next, parent keys first,
// siblings in key order. Same inputs, same output. Overwrite payloads
// come out as a single change regardless of what prev held there.
func Changes(prev, next Tree) (changes []Change) {
	return walk("", prev, next, nil)
}

func walk(path string, prev, next Tree, changes []Change) []Change {
	keys := make([]string, 0, len(next))
	for k := range next {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		loc := k
		if path != "" {
			loc = path + "/" + k
		}
		nv := next[k]
		pv, had := prev[k]

		if had && reflect.DeepEqual(pv, nv) {
			continue
		}
		if ow, ok := nv.(Overwrite); ok {
			changes = append(changes, Change{Location: loc, Value: ow.Value})
			continue
		}
		nt, nIsTree := nv.(Tree)
		pt, pIsTree := pv.(Tree)
		if nIsTree && pIsTree {
			changes = walk(loc, pt, nt, changes)
			continue
		}
		if nIsTree {
			// no tree on the prev side: one whole-subtree write keeps
			// the store from holding both a leaf and children here
			changes = append(changes, Change{Location: loc, Value: nv})
			continue
		}
		if !had || !reflect.DeepEqual(pv, nv) {
			changes = append(changes, Change{Location: loc, Value: nv})
		}
	}

	// keys gone from next are deletes
	gone := make([]string, 0)
	for k := range prev {
		if _, ok := next[k]; !ok {
			gone = append(gone, k)
		}
	}
	sort.Strings(gone)
	for _, k := range gone {
		loc := k
		if path != "" {
			loc = path + "/" + k
		}
		changes = append(changes, Change{Location: loc, Value: nil})
	}
	return changes
}
