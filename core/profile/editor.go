package profile

import (
	"context"
	"errors"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/events"
	"github.com/trainingcmd/portal/core/user"
)

var ErrNotEditable = errors.New("field cannot be edited")

// API is the part of the portal API the editor talks to.
type API interface {
	Me(ctx context.Context) (*user.User, error)
	// UpdateMe sends a partial update and returns the fields echoed by the server, if any.
	UpdateMe(ctx context.Context, flds user.Fields) (user.Fields, error)
}

// Result describes a Save.
type Result struct {
	NoChanges bool        // nothing to send; no request was made
	Payload   user.Fields // what was sent
	Merged    user.Fields // what was merged back into the form
}

// Editor holds the two live copies of the profile form:
// current, mutated by every edit, and original, the last known persisted snapshot.
// original never changes because of a local edit.
type Editor struct {
	mu       sync.Mutex
	api      API
	bus      *events.Bus
	logger   core.Logger
	keys     []string
	current  Form
	original Form
}

func NewEditor(api API, bus *events.Bus, logger core.Logger) *Editor {
	if logger == nil {
		logger = core.NopLogger{}
	}
	keys := make([]string, len(user.EditableKeys))
	copy(keys, user.EditableKeys)
	form := ToForm(nil)
	return &Editor{
		api:      api,
		bus:      bus,
		logger:   logger,
		keys:     keys,
		current:  form,
		original: form.Clone(),
	}
}

// Keys returns the editable keys.
func (e *Editor) Keys() []string {
	keys := make([]string, len(e.keys))
	copy(keys, e.keys)
	return keys
}

// Load regenerates both copies from usr.
func (e *Editor) Load(usr *user.User) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.original = ToForm(usr)
	e.current = e.original.Clone()
}

// Fetch loads the profile from the API. Failures are swallowed: the prior state stays in place.
// It reports whether the profile was loaded.
func (e *Editor) Fetch(ctx context.Context) bool {
	usr, err := e.api.Me(ctx)
	if err != nil {
		e.logger.Debug("profile: fetch failed, keeping current state", err)
		return false
	}
	e.Load(usr)
	e.bus.PublishProfileUpdated(events.ProfileUpdated{Fields: usr.Fields(), Refresh: true})
	return true
}

// Current returns a copy of the current form.
func (e *Editor) Current() Form {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.Clone()
}

// Original returns a copy of the last persisted snapshot.
func (e *Editor) Original() Form {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.original.Clone()
}

// Set edits a key of the current form. List keys accept a comma-joined value.
func (e *Editor) Set(key, value string) error {
	if !e.isEditable(key) {
		return pkgerrors.Wrap(ErrNotEditable, key)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if user.IsListField(key) {
		e.current[key] = user.ParseList(value)
	} else {
		e.current[key] = value
	}
	return nil
}

// SetList replaces the items of a list key of the current form.
func (e *Editor) SetList(key string, items ...string) error {
	if !e.isEditable(key) || !user.IsListField(key) {
		return pkgerrors.Wrap(ErrNotEditable, key)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current[key] = user.NewList(items...)
	return nil
}

// AddItem appends item to a list key of the current form.
func (e *Editor) AddItem(key, item string) error {
	if !e.isEditable(key) || !user.IsListField(key) {
		return pkgerrors.Wrap(ErrNotEditable, key)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.current.List(key)
	e.current[key] = user.NewList(append(l, item)...)
	return nil
}

// RemoveItem drops item from a list key of the current form.
func (e *Editor) RemoveItem(key, item string) error {
	if !e.isEditable(key) || !user.IsListField(key) {
		return pkgerrors.Wrap(ErrNotEditable, key)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.current.List(key)
	kept := make([]string, 0, len(l))
	for _, it := range l {
		if it != item {
			kept = append(kept, it)
		}
	}
	e.current[key] = user.NewList(kept...)
	return nil
}

// Pending returns the changed editable keys with their current values.
func (e *Editor) Pending() user.Fields {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Diff(e.current, e.original, e.keys)
}

func (e *Editor) Dirty() bool {
	return len(e.Pending()) > 0
}

// Cancel drops every local edit.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = e.original.Clone()
}

// Save sends the changed editable keys as a partial update.
// Nothing is sent when nothing changed. On success the returned fields (or the payload when the
// server echoes nothing recognizable) become the new original snapshot, and listeners are notified.
// On failure both copies are left untouched.
func (e *Editor) Save(ctx context.Context) (Result, error) {
	e.mu.Lock()
	payload := Diff(e.current, e.original, e.keys)
	sentFrom := e.current.Clone()
	e.mu.Unlock()

	if len(payload) == 0 {
		return Result{NoChanges: true, Payload: payload}, nil
	}

	returned, err := e.api.UpdateMe(ctx, payload.Clone())
	if err != nil {
		return Result{Payload: payload}, pkgerrors.Wrap(err, "updating profile")
	}

	merged := returned.Normalize()
	if len(merged) == 0 {
		merged = payload.Clone()
	}
	e.merge(merged, sentFrom)

	e.bus.PublishProfileUpdated(events.ProfileUpdated{Fields: merged, Refresh: true})
	return Result{Payload: payload, Merged: merged}, nil
}

// merge applies persisted fields to both copies. A key edited again while the request was in
// flight keeps its newer local value in current.
func (e *Editor) merge(merged user.Fields, sentFrom Form) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, v := range merged {
		e.original[key] = v
		if sentFrom == nil || valuesEqual(key, e.current[key], sentFrom[key]) {
			if l, ok := v.(user.List); ok {
				e.current[key] = l.Clone()
			} else {
				e.current[key] = v
			}
		}
	}
}

func (e *Editor) isEditable(key string) bool {
	for _, k := range e.keys {
		if k == key {
			return true
		}
	}
	return false
}
