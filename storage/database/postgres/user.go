// Package pgrepos implements the development API repositories on PostgreSQL.
package pgrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trainingcmd/portal/core/user"
)

const accountColumns = `id, username, role, first_name, last_name, rank, division, birth_date, address, phone, email,
	education, position, chronic_diseases, food_allergies, drug_allergies, medical_notes, avatar,
	password_hash, is_active, created_at, updated_at, last_login`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (repo *userRepository) CreateAccount(ctx context.Context, acc user.Account) (user.Account, error) {
	if acc.ID == "" {
		acc.ID = uuid.New().String()
	}
	q := `INSERT INTO account (` + accountColumns + `) VALUES (
		:id, :username, :role, :first_name, :last_name, :rank, :division, :birth_date, :address, :phone, :email,
		:education, :position, :chronic_diseases, :food_allergies, :drug_allergies, :medical_notes, :avatar,
		:password_hash, :is_active, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, acc); err != nil {
		if isUniqueViolation(err) {
			return user.Account{}, user.ErrUsernameExists
		}
		return user.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (repo *userRepository) get(ctx context.Context, where string, arg interface{}) (user.Account, error) {
	var acc user.Account
	err := repo.db.GetContext(ctx, &acc, `SELECT `+accountColumns+` FROM account WHERE `+where, arg)
	if err == sql.ErrNoRows {
		return user.Account{}, user.ErrNotFound
	}
	if err != nil {
		return user.Account{}, errors.Wrap(err, "selecting account")
	}
	return acc, nil
}

func (repo *userRepository) GetAccountByID(ctx context.Context, id string) (user.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.Account{}, user.ErrNotFound
	}
	return repo.get(ctx, "id = $1", id)
}

func (repo *userRepository) GetAccountByUsername(ctx context.Context, username string) (user.Account, error) {
	return repo.get(ctx, "username = $1", username)
}

func (repo *userRepository) GetAccountByEmail(ctx context.Context, email string) (user.Account, error) {
	if email == "" {
		return user.Account{}, user.ErrNotFound
	}
	return repo.get(ctx, "lower(email) = lower($1) ORDER BY created_at LIMIT 1", email)
}

func (repo *userRepository) FilterAccounts(ctx context.Context, filter user.QueryFilter) ([]user.Account, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Role != "" {
		args = append(args, filter.Role)
		conds = append(conds, "role = $1")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := "$" + strconv.Itoa(len(args))
		conds = append(conds, "(username ILIKE "+n+" OR first_name ILIKE "+n+" OR last_name ILIKE "+n+")")
	}
	q := `SELECT ` + accountColumns + ` FROM account`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY username`

	accs := make([]user.Account, 0)
	if err := repo.db.SelectContext(ctx, &accs, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting accounts")
	}
	return accs, nil
}

func (repo *userRepository) UpdateAccount(ctx context.Context, acc user.Account) (user.Account, error) {
	q := `UPDATE account SET
		username = :username, role = :role, first_name = :first_name, last_name = :last_name, rank = :rank,
		division = :division, birth_date = :birth_date, address = :address, phone = :phone, email = :email,
		education = :education, position = :position, chronic_diseases = :chronic_diseases,
		food_allergies = :food_allergies, drug_allergies = :drug_allergies, medical_notes = :medical_notes,
		avatar = :avatar, password_hash = :password_hash, is_active = :is_active,
		updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, acc)
	if err != nil {
		if isUniqueViolation(err) {
			return user.Account{}, user.ErrUsernameExists
		}
		return user.Account{}, errors.Wrap(err, "updating account")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.Account{}, user.ErrNotFound
	}
	return acc, nil
}
