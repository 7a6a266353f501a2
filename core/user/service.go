package user

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trainingcmd/portal/core"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound             = errors.New("user not found")
	ErrUsernameExists       = errors.New("a user with this username already exists")
	ErrAuthenticationFailed = errors.New("invalid username or password")
	ErrAccountDeactivated   = errors.New("account deactivated")
)

type (
	Repository interface {
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByUsername(ctx context.Context, username string) (Account, error)
		// GetAccountByEmail does a case-insensitive match on Email.
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		// FilterAccounts applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Username, FirstName or LastName.
		FilterAccounts(ctx context.Context, filter QueryFilter) ([]Account, error)
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, na NewAccount) (Account, error) {
	na.Username = core.CleanString(na.Username, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Role = NormalizeRole(na.Role)
	if err := svc.validate.Struct(na); err != nil {
		return Account{}, err
	}

	if _, err := svc.repo.GetAccountByUsername(ctx, na.Username); err == nil {
		return Account{}, core.NewValidationError(ErrUsernameExists, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
	} else if err != ErrNotFound {
		return Account{}, err
	}

	now := nowFunc().UTC()
	acc := Account{
		User: User{
			Username:        na.Username,
			Role:            na.Role,
			FirstName:       core.CleanString(na.FirstName),
			LastName:        core.CleanString(na.LastName),
			Rank:            core.CleanString(na.Rank),
			Division:        core.CleanString(na.Division),
			Email:           na.Email,
			ChronicDiseases: List{},
			FoodAllergies:   List{},
			DrugAllergies:   List{},
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validatePassword(na.Password, acc.User); err != nil {
		return Account{}, err
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, err
	}
	return svc.repo.CreateAccount(ctx, acc)
}

// Authenticate checks the credentials and records the login time.
func (svc *Service) Authenticate(ctx context.Context, username, pwd string) (Account, error) {
	acc, err := svc.repo.GetAccountByUsername(ctx, core.CleanString(username, true /* lower */))
	if err != nil {
		if err == ErrNotFound {
			return Account{}, ErrAuthenticationFailed
		}
		return Account{}, err
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, ErrAuthenticationFailed
	}
	if !acc.IsActive {
		return Account{}, ErrAccountDeactivated
	}
	acc.LastLogin = nowFunc().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Account, error) {
	filter.Clean()
	return svc.repo.FilterAccounts(ctx, filter)
}

// UpdateProfile applies a partial update of editable profile keys.
func (svc *Service) UpdateProfile(ctx context.Context, id string, flds Fields) (Account, error) {
	if err := validateProfileFields(svc.validate, flds); err != nil {
		return Account{}, err
	}
	acc, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	acc.Apply(flds.Normalize())
	acc.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

func (svc *Service) SetAvatar(ctx context.Context, id, ref string) (Account, error) {
	acc, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	acc.Avatar = ref
	acc.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

// ChangePassword checks the current password, applies the password policy and stores the new one.
func (svc *Service) ChangePassword(ctx context.Context, id, current, pwd string) error {
	acc, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		return err
	}
	if err = acc.CheckPassword(current); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "currentPassword", Error: "current password is incorrect"})
	}
	if current == pwd {
		return core.NewValidationError(nil, core.FieldError{Field: "newPassword", Error: "new password must differ from the current password"})
	}
	if err = validatePassword(pwd, acc.User); err != nil {
		return err
	}
	if err = acc.SetPassword(pwd); err != nil {
		return err
	}
	acc.UpdatedAt = nowFunc().UTC()
	_, err = svc.repo.UpdateAccount(ctx, acc)
	return err
}
