// Package session owns the client-side identity: access and refresh tokens, role and the
// cached user record. It is the only writer of the persisted session keys.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/events"
	"github.com/trainingcmd/portal/core/user"
)

// Persisted keys.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyRole         = "role"
	KeyUser         = "user"
)

// Keys lists every persisted key; Logout clears them all.
var Keys = []string{KeyToken, KeyRefreshToken, KeyRole, KeyUser}

// Store is a persistent key-value area.
type Store interface {
	// Get returns the value of key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

type Session struct {
	mu      sync.RWMutex
	store   Store
	bus     *events.Bus
	logger  core.Logger
	token   string
	refresh string
	role    string
	usr     *user.User

	unsubscribe func()
}

// New loads the persisted session from store and subscribes it to profile updates on bus.
// A cached user that cannot be decoded is dropped, not reported.
func New(ctx context.Context, store Store, bus *events.Bus, logger core.Logger) (*Session, error) {
	if logger == nil {
		logger = core.NopLogger{}
	}
	s := &Session{store: store, bus: bus, logger: logger}

	var err error
	if s.token, _, err = store.Get(ctx, KeyToken); err != nil {
		return nil, errors.Wrap(err, "loading token")
	}
	if s.refresh, _, err = store.Get(ctx, KeyRefreshToken); err != nil {
		return nil, errors.Wrap(err, "loading refresh token")
	}
	if s.role, _, err = store.Get(ctx, KeyRole); err != nil {
		return nil, errors.Wrap(err, "loading role")
	}
	raw, ok, err := store.Get(ctx, KeyUser)
	if err != nil {
		return nil, errors.Wrap(err, "loading user")
	}
	if ok && raw != "" {
		var usr user.User
		if err := json.Unmarshal([]byte(raw), &usr); err != nil {
			logger.Warn("session: dropping undecodable cached user", err)
		} else {
			s.usr = &usr
		}
	}
	if s.role == "" && s.usr != nil {
		s.role = s.usr.Role
	}

	if bus != nil {
		s.unsubscribe = bus.OnProfileUpdated(func(evt events.ProfileUpdated) {
			if !evt.Refresh {
				return
			}
			if err := s.MergeUser(context.Background(), evt.Fields); err != nil {
				logger.Error("session: merging profile update", err)
			}
		})
	}
	return s, nil
}

// Close detaches the session from the bus.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Token returns the access token; empty when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// Role returns the normalized role, user.RoleGuest when nobody is logged in.
func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roleLocked()
}

func (s *Session) roleLocked() string {
	if s.token == "" {
		return user.RoleGuest
	}
	return user.NormalizeRole(s.role)
}

// User returns a copy of the cached user, nil when none.
func (s *Session) User() *user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usr.Clone()
}

func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// Login stores a fresh identity. A nil usr clears the cached user and role of any previous login.
func (s *Session) Login(ctx context.Context, token, refresh string, usr *user.User) error {
	s.mu.Lock()
	if usr == nil {
		if err := s.store.Delete(ctx, KeyRole, KeyUser); err != nil {
			s.mu.Unlock()
			return errors.Wrap(err, "clearing previous identity")
		}
	}
	values := map[string]string{
		KeyToken:        token,
		KeyRefreshToken: refresh,
	}
	role := ""
	if usr != nil {
		role = user.NormalizeRole(usr.Role)
		data, err := json.Marshal(usr)
		if err != nil {
			s.mu.Unlock()
			return errors.Wrap(err, "encoding user")
		}
		values[KeyUser] = string(data)
		values[KeyRole] = role
	}
	if err := s.store.Set(ctx, values); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "saving session")
	}
	s.token, s.refresh, s.role, s.usr = token, refresh, role, usr.Clone()
	evt := s.eventLocked(events.ReasonLogin)
	s.mu.Unlock()

	s.bus.PublishAuthChanged(evt)
	return nil
}

// SetTokens stores the result of a token refresh. An empty refresh token or role keeps the current one.
func (s *Session) SetTokens(ctx context.Context, token, refresh, role string) error {
	s.mu.Lock()
	values := map[string]string{KeyToken: token}
	if refresh != "" {
		values[KeyRefreshToken] = refresh
	}
	if role != "" {
		role = user.NormalizeRole(role)
		values[KeyRole] = role
	}
	if err := s.store.Set(ctx, values); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "saving tokens")
	}
	s.token = token
	if refresh != "" {
		s.refresh = refresh
	}
	if role != "" {
		s.role = role
		if s.usr != nil {
			s.usr.Role = role
		}
	}
	evt := s.eventLocked(events.ReasonRefresh)
	s.mu.Unlock()

	s.bus.PublishAuthChanged(evt)
	return nil
}

// MergeUser applies flds to the cached user and persists it.
func (s *Session) MergeUser(ctx context.Context, flds user.Fields) error {
	s.mu.Lock()
	usr := s.usr.Clone()
	if usr == nil {
		usr = &user.User{Role: s.role}
	}
	usr.Apply(flds)

	data, err := json.Marshal(usr)
	if err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "encoding user")
	}
	values := map[string]string{KeyUser: string(data)}
	if usr.Role != "" {
		values[KeyRole] = user.NormalizeRole(usr.Role)
	}
	if err = s.store.Set(ctx, values); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "saving user")
	}
	s.usr = usr
	if usr.Role != "" {
		s.role = user.NormalizeRole(usr.Role)
	}
	evt := s.eventLocked(events.ReasonProfile)
	s.mu.Unlock()

	s.bus.PublishAuthChanged(evt)
	return nil
}

// Logout clears every session key.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	err := s.store.Delete(ctx, Keys...)
	s.token, s.refresh, s.role, s.usr = "", "", "", nil
	evt := s.eventLocked(events.ReasonLogout)
	s.mu.Unlock()

	s.bus.PublishAuthChanged(evt)
	return errors.Wrap(err, "clearing session")
}

func (s *Session) eventLocked(reason string) events.AuthChanged {
	return events.AuthChanged{Reason: reason, Role: s.roleLocked(), User: s.usr.Clone()}
}
