// Package password is the change-password form and its submitter.
package password

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/trainingcmd/portal/core"
)

// MinLength is the minimum length of a new password.
const MinLength = 8

var (
	ErrRequired  = errors.New("please fill in all password fields")
	ErrTooShort  = errors.New("new password must contain at least 8 characters")
	ErrMismatch  = errors.New("new password and confirmation do not match")
	ErrUnchanged = errors.New("new password must differ from the current password")
)

// ChangeForm holds the three ephemeral fields of the change-password form.
type ChangeForm struct {
	Current string `json:"currentPassword"`
	New     string `json:"newPassword"`
	Confirm string `json:"confirmPassword"`
}

// Reset clears the three fields.
func (f *ChangeForm) Reset() {
	f.Current, f.New, f.Confirm = "", "", ""
}

type rule struct {
	field string
	err   error
	check func(v *validator.Validate, f ChangeForm) error
}

// rules are applied in order; the first failing one wins.
var rules = []rule{
	{
		field: "currentPassword",
		err:   ErrRequired,
		check: func(v *validator.Validate, f ChangeForm) error {
			for _, val := range []string{f.Current, f.New, f.Confirm} {
				if err := v.Var(val, "required"); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		field: "newPassword",
		err:   ErrTooShort,
		check: func(v *validator.Validate, f ChangeForm) error { return v.Var(f.New, "min=8") },
	},
	{
		field: "confirmPassword",
		err:   ErrMismatch,
		check: func(v *validator.Validate, f ChangeForm) error { return v.VarWithValue(f.New, f.Confirm, "eqcsfield") },
	},
	{
		field: "newPassword",
		err:   ErrUnchanged,
		check: func(v *validator.Validate, f ChangeForm) error { return v.VarWithValue(f.New, f.Current, "necsfield") },
	},
}

// Validate applies the client-side rules: all fields filled, new password long enough,
// confirmation matching, new password different from the current one.
func (f ChangeForm) Validate(v *validator.Validate) error {
	for _, r := range rules {
		if err := r.check(v, f); err != nil {
			if _, ok := err.(validator.ValidationErrors); !ok {
				return err
			}
			return core.NewValidationError(r.err, core.FieldError{Field: r.field, Error: r.err.Error()})
		}
	}
	return nil
}

// API changes the password of the current user.
type API interface {
	ChangePassword(ctx context.Context, current, new string) error
}

type Changer struct {
	api      API
	validate *validator.Validate
}

func NewChanger(api API, validate *validator.Validate) *Changer {
	return &Changer{api: api, validate: validate}
}

// Submit validates f and, when valid, issues the change request with the current and new
// passwords only. f is cleared on success and left as is on failure.
func (c *Changer) Submit(ctx context.Context, f *ChangeForm) error {
	if err := f.Validate(c.validate); err != nil {
		return err
	}
	if err := c.api.ChangePassword(ctx, f.Current, f.New); err != nil {
		return pkgerrors.Wrap(err, "changing password")
	}
	f.Reset()
	return nil
}
