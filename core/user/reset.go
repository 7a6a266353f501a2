package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trainingcmd/portal/core"
)

const passwordResetTemplate = "password_reset"

// PasswordResetter runs the forgotten-password flow: it mails a reset token, then trades it for a new password.
type PasswordResetter struct {
	repo     Repository
	validate *validator.Validate
	tokens   *ResetTokens
	mailer   core.EmailService
	timeout  time.Duration
}

func NewPasswordResetter(repo Repository, validate *validator.Validate, mailer core.EmailService, secret string, timeout time.Duration) *PasswordResetter {
	return &PasswordResetter{
		repo:     repo,
		validate: validate,
		tokens:   NewResetTokens(secret, timeout),
		mailer:   mailer,
		timeout:  timeout,
	}
}

// Request mails a reset token to the active account registered with email.
// Unknown or inactive addresses are ignored so callers cannot probe for accounts.
func (pr *PasswordResetter) Request(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)
	if !isEmail(pr.validate, email) {
		return core.NewValidationError(nil, core.FieldError{Field: "email", Error: invalidEmailText})
	}

	acc, err := pr.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}
	if !acc.IsActive {
		return nil
	}

	pr.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acc.DisplayName(), Address: acc.Email}},
		Subject:      "Password Reset",
		TemplateName: passwordResetTemplate,
		TemplateData: map[string]string{
			"Name":     acc.DisplayName(),
			"Username": acc.Username,
			"UID":      EncodeUID(acc),
			"Token":    pr.tokens.Make(acc),
			"ValidFor": humanizeDuration(pr.timeout),
		},
	})
	return nil
}

// Reset sets pwd as the password of the account uid stands for, provided token is valid for it.
func (pr *PasswordResetter) Reset(ctx context.Context, uid, token, pwd string) error {
	id, err := DecodeUID(uid)
	if err != nil || id == "" {
		return ErrInvalidResetToken
	}
	acc, err := pr.repo.GetAccountByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return ErrInvalidResetToken
		}
		return err
	}
	if !acc.IsActive {
		return ErrInvalidResetToken
	}
	if err = pr.tokens.Verify(acc, token); err != nil {
		return err
	}

	if err = validatePassword(pwd, acc.User); err != nil {
		return err
	}
	if err = acc.SetPassword(pwd); err != nil {
		return err
	}
	acc.UpdatedAt = nowFunc().UTC()
	_, err = pr.repo.UpdateAccount(ctx, acc)
	return err
}

func humanizeDuration(d time.Duration) string {
	day := 24 * time.Hour
	switch {
	case d >= day && d%day == 0:
		if n := int(d / day); n > 1 {
			return fmt.Sprintf("%d days", n)
		}
		return "1 day"
	case d >= time.Hour && d%time.Hour == 0:
		if n := int(d / time.Hour); n > 1 {
			return fmt.Sprintf("%d hours", n)
		}
		return "1 hour"
	default:
		return d.String()
	}
}
