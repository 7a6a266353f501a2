// Package events is the typed publish/subscribe bus used to keep the session, the
// navigation and anything else caching the current user consistent after a mutation.
//
// Delivery is synchronous, in subscription order, to the handlers registered at
// publish time. A handler subscribed later never sees earlier events.
package events

import (
	"sync"

	"github.com/trainingcmd/portal/core/user"
)

// Reasons of an AuthChanged event.
const (
	ReasonLogin   = "login"
	ReasonLogout  = "logout"
	ReasonRefresh = "refresh"
	ReasonProfile = "profile"
)

// AuthChanged is published whenever the authenticated identity or its cached record changes.
type AuthChanged struct {
	Reason string
	Role   string     // normalized; user.RoleGuest when logged out
	User   *user.User // nil when logged out
}

// ProfileUpdated is published after a successful profile mutation.
// Refresh asks listeners caching the same identity (session, navigation) to resynchronize.
type ProfileUpdated struct {
	Fields  user.Fields
	Refresh bool
}

type Bus struct {
	mu      sync.RWMutex
	nextID  int
	auth    []authSub
	profile []profileSub
}

type authSub struct {
	id int
	fn func(AuthChanged)
}

type profileSub struct {
	id int
	fn func(ProfileUpdated)
}

func NewBus() *Bus {
	return &Bus{}
}

// OnAuthChanged registers fn and returns a func removing it.
func (b *Bus) OnAuthChanged(fn func(AuthChanged)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.auth = append(b.auth, authSub{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.auth {
			if s.id == id {
				b.auth = append(b.auth[:i:i], b.auth[i+1:]...)
				return
			}
		}
	}
}

// OnProfileUpdated registers fn and returns a func removing it.
func (b *Bus) OnProfileUpdated(fn func(ProfileUpdated)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.profile = append(b.profile, profileSub{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.profile {
			if s.id == id {
				b.profile = append(b.profile[:i:i], b.profile[i+1:]...)
				return
			}
		}
	}
}

// PublishAuthChanged delivers evt to the current AuthChanged handlers.
func (b *Bus) PublishAuthChanged(evt AuthChanged) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := make([]authSub, len(b.auth))
	copy(subs, b.auth)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(evt)
	}
}

// PublishProfileUpdated delivers evt to the current ProfileUpdated handlers.
// Each handler receives its own copy of the fields.
func (b *Bus) PublishProfileUpdated(evt ProfileUpdated) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := make([]profileSub, len(b.profile))
	copy(subs, b.profile)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(ProfileUpdated{Fields: evt.Fields.Clone(), Refresh: evt.Refresh})
	}
}
