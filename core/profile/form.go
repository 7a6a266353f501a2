// Package profile is the profile form model and its submitters.
package profile

import (
	"github.com/trainingcmd/portal/core/user"
)

// Form is the flat editable shape of a user record. Every recognized key is always present:
// text keys hold a string, list keys hold a user.List.
type Form map[string]interface{}

// ToForm maps a user record into a fully populated Form.
// A nil record yields an all-empty form whose role is user.RoleGuest.
func ToForm(usr *user.User) Form {
	if usr == nil {
		usr = &user.User{Role: user.RoleGuest}
	}
	flds := usr.Fields()
	form := make(Form, len(flds))
	for k, v := range flds {
		form[k] = v
	}
	return form.fill()
}

// fill sets every missing recognized key to its zero value and canonicalizes the present ones.
func (f Form) fill() Form {
	for _, key := range user.FieldKeys() {
		if user.IsListField(key) {
			f[key] = user.ToList(f[key])
		} else {
			f[key] = user.ToText(f[key])
		}
	}
	return f
}

// Text is the display form of key; lists are comma-joined.
func (f Form) Text(key string) string {
	return user.ToText(f[key])
}

// List is the list form of key; text keys are split on commas.
func (f Form) List(key string) user.List {
	return user.ToList(f[key])
}

// Clone deep copies f.
func (f Form) Clone() Form {
	return Form(user.Fields(f).Clone())
}

// Fields returns a copy of f as user.Fields.
func (f Form) Fields() user.Fields {
	return user.Fields(f).Clone()
}

// Equal reports whether key holds the same normalized value in f and other.
func (f Form) Equal(other Form, key string) bool {
	return valuesEqual(key, f[key], other[key])
}

func valuesEqual(key string, a, b interface{}) bool {
	if user.IsListField(key) {
		return user.ToList(a).Equal(user.ToList(b))
	}
	return user.ToText(a) == user.ToText(b)
}

// Diff returns the keys of keys whose normalized values differ between current and original,
// with their current values. It is empty iff both forms agree on every key.
func Diff(current, original Form, keys []string) user.Fields {
	payload := make(user.Fields)
	for _, key := range keys {
		if valuesEqual(key, current[key], original[key]) {
			continue
		}
		if user.IsListField(key) {
			payload[key] = user.ToList(current[key])
		} else {
			payload[key] = user.ToText(current[key])
		}
	}
	return payload
}
