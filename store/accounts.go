package store

import (
	"encoding/json"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var SignIns = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "firesync",
	Subsystem: "store",
	Name:      "sign_ins",
}, []string{"provider", "result"})

// Register creates (or replaces) a password account and returns its
// uid. Accounts live in the 'A' keyspace, never under node data.
func (p *Pebble) Register(email, password string) (uid string, err error) {
	if p.db == nil {
		return "", ErrClosed
	}
	uid = "user:" + uuid.NewString()
	raw, err := json.Marshal(account{UID: uid, Password: password})
	if err != nil {
		return "", err
	}
	err = p.db.Set(accountKey(email), raw, &writeOptions)
	if err != nil {
		return "", errors.Wrap(err, "store: register")
	}
	return uid, nil
}

func (p *Pebble) SignInWithPassword(email, password string) error {
	if p.db == nil {
		return ErrClosed
	}
	raw, clo, err := p.db.Get(accountKey(email))
	if err == pebble.ErrNotFound {
		SignIns.WithLabelValues("password", "rejected").Inc()
		return ErrInvalidCredentials
	}
	if err != nil {
		return errors.Wrap(err, "store: account lookup")
	}
	var acc account
	err = json.Unmarshal(raw, &acc)
	_ = clo.Close()
	if err != nil {
		return errors.Wrap(err, "store: account decode")
	}
	if acc.Password != password {
		SignIns.WithLabelValues("password", "rejected").Inc()
		return ErrInvalidCredentials
	}
	SignIns.WithLabelValues("password", "ok").Inc()
	p.setUser(&AuthState{UID: acc.UID, Provider: "password", Email: email})
	return nil
}

func (p *Pebble) SignInAnonymously() error {
	if p.db == nil {
		return ErrClosed
	}
	SignIns.WithLabelValues("anonymous", "ok").Inc()
	p.setUser(&AuthState{UID: "anon:" + uuid.NewString(), Provider: "anonymous"})
	return nil
}

func (p *Pebble) SignInWithToken(token string) error {
	if p.db == nil {
		return ErrClosed
	}
	if token == "" {
		SignIns.WithLabelValues("customToken", "rejected").Inc()
		return ErrInvalidCredentials
	}
	SignIns.WithLabelValues("customToken", "ok").Inc()
	p.setUser(&AuthState{UID: "token:" + uuid.NewString(), Provider: "customToken", Token: token})
	return nil
}

func (p *Pebble) SignOut() error {
	if p.db == nil {
		return ErrClosed
	}
	p.setUser(nil)
	return nil
}

func (p *Pebble) CurrentUser() *AuthState {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.user
}

func (p *Pebble) setUser(state *AuthState) {
	p.lock.Lock()
	p.user = state
	p.lock.Unlock()
	p.alsns.Range(func(_ uint64, fn AuthFunc) bool {
		fn(state)
		return true
	})
}

// OnAuth registers an auth-state listener and delivers the current
// state synchronously, mirroring value-listener registration.
func (p *Pebble) OnAuth(fn AuthFunc) *Registration {
	id := p.seq.Add(1)
	p.alsns.Store(id, fn)
	PebbleListeners.Inc()
	fn(p.CurrentUser())
	return NewRegistration(func() {
		p.alsns.Delete(id)
		PebbleListeners.Dec()
	})
}

func (p *Pebble) OffAuth(reg *Registration) {
	reg.deregister()
}
