// Package auth maps login descriptors to store sign-in operations.
// A descriptor is the value written at the reserved user location:
// nil to sign out, otherwise a map with a "provider" field and the
// provider's credentials.
package auth

import (
	"errors"

	"github.com/rjmcguire/cycle-firebase/store"
)

var (
	ErrUnsupportedAuthMethod = errors.New("auth: unsupported auth method")
	ErrMalformedDescriptor   = errors.New("auth: malformed login descriptor")
)

// Op is one invocable sign-in operation with its arguments bound.
type Op func(a store.Authenticator) error

type dispatcher func(desc map[string]any) (Op, error)

var methods = map[string]dispatcher{
	"password":    passwordOp,
	"anonymous":   anonymousOp,
	"customToken": tokenOp,
	"signOut":     signOutOp,
}

// Dispatch resolves a descriptor to an operation. It never invokes the
// operation itself; rejection of the credentials is the caller's
// asynchronous concern, a rejection of the descriptor is this one's.
func Dispatch(desc any) (Op, error) {
	if desc == nil {
		return signOutOp(nil)
	}
	fields, ok := desc.(map[string]any)
	if !ok {
		return nil, ErrMalformedDescriptor
	}
	provider, _ := fields["provider"].(string)
	d, ok := methods[provider]
	if !ok {
		return nil, ErrUnsupportedAuthMethod
	}
	return d(fields)
}

func passwordOp(desc map[string]any) (Op, error) {
	email, eok := desc["email"].(string)
	password, pok := desc["password"].(string)
	if !eok || !pok {
		return nil, ErrMalformedDescriptor
	}
	return func(a store.Authenticator) error {
		return a.SignInWithPassword(email, password)
	}, nil
}

func anonymousOp(map[string]any) (Op, error) {
	return func(a store.Authenticator) error {
		return a.SignInAnonymously()
	}, nil
}

func tokenOp(desc map[string]any) (Op, error) {
	token, ok := desc["token"].(string)
	if !ok {
		return nil, ErrMalformedDescriptor
	}
	return func(a store.Authenticator) error {
		return a.SignInWithToken(token)
	}, nil
}

func signOutOp(map[string]any) (Op, error) {
	return func(a store.Authenticator) error {
		return a.SignOut()
	}, nil
}
