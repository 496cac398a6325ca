// Package store defines the capability surface of a hierarchical tree
// store (node navigation, whole-subtree writes, value listeners, user
// authentication) and provides a pebble-backed implementation of it.
package store

import (
	"errors"
	"strings"
	"sync"
)

var (
	ErrClosed             = errors.New("store: no store open")
	ErrUnknownEvent       = errors.New("store: unknown event name")
	ErrInvalidCredentials = errors.New("store: invalid credentials")
)

// EventValue fires with the node's composed value, once on listener
// registration and then on every write that can affect it.
const EventValue = "value"

// Event is the raw envelope delivered to node listeners.
type Event struct {
	Path  string
	Value any
}

type ListenerFunc func(Event)

type AuthFunc func(*AuthState)

// AuthState describes the authenticated user; nil means signed out.
type AuthState struct {
	UID      string
	Provider string
	Email    string
	Token    string
}

// Tree renders the state as a plain field map for structural access.
// Safe on a nil receiver.
func (a *AuthState) Tree() map[string]any {
	if a == nil {
		return nil
	}
	return map[string]any{
		"uid":      a.UID,
		"provider": a.Provider,
		"email":    a.Email,
		"token":    a.Token,
	}
}

// Node is one location in the tree. Set replaces the whole subtree at
// the node; nil deletes it. Implementations must deliver the current
// value synchronously when a "value" listener registers.
type Node interface {
	Path() string
	Child(path string) Node
	Get() (any, error)
	Set(value any) error
	On(event string, fn ListenerFunc) (*Registration, error)
	Off(reg *Registration)
}

// Authenticator is the store's sign-in surface. Calls return the
// operational outcome; a rejected credential is an error, not a panic.
type Authenticator interface {
	SignInWithPassword(email, password string) error
	SignInAnonymously() error
	SignInWithToken(token string) error
	SignOut() error
}

// Client is a connection to a store: its root node, its auth surface
// and the auth-state event source.
type Client interface {
	Root() Node
	CurrentUser() *AuthState
	OnAuth(fn AuthFunc) *Registration
	OffAuth(reg *Registration)
	Authenticator
}

// Registration identifies exactly one registered listener so Off can
// deregister it and nothing else. Deregistering twice is a no-op.
type Registration struct {
	once   sync.Once
	cancel func()
}

func NewRegistration(cancel func()) *Registration {
	return &Registration{cancel: cancel}
}

func (r *Registration) deregister() {
	if r == nil {
		return
	}
	r.once.Do(r.cancel)
}

// NormalizePath strips leading/trailing slashes and collapses repeats;
// "" is the root. Two paths name the same node iff their normalized
// forms are equal.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	segs := strings.Split(path, "/")
	out := segs[:0]
	for _, s := range segs {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

// JoinPath composes and normalizes two path fragments.
func JoinPath(base, sub string) string {
	return NormalizePath(base + "/" + sub)
}

// Related reports whether a write at one path can change the composed
// value at the other (equal, ancestor or descendant).
func Related(a, b string) bool {
	if a == b || a == "" || b == "" {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}
