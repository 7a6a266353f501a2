package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trainingcmd/portal/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func cloneAccount(acc *user.Account) user.Account {
	c := *acc
	c.User = *acc.User.Clone()
	c.PasswordHash = append([]byte(nil), acc.PasswordHash...)
	return c
}

func (repo *userRepository) CreateAccount(_ context.Context, acc user.Account) (user.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, a := range repo.db.accounts {
		if a.Username == acc.Username {
			return user.Account{}, user.ErrUsernameExists
		}
	}
	if acc.ID == "" {
		acc.ID = newID()
	}
	stored := cloneAccount(&acc)
	repo.db.accounts[acc.ID] = &stored
	return acc, nil
}

func (repo *userRepository) GetAccountByID(_ context.Context, id string) (user.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if acc, ok := repo.db.accounts[id]; ok {
		return cloneAccount(acc), nil
	}
	return user.Account{}, user.ErrNotFound
}

func (repo *userRepository) GetAccountByUsername(_ context.Context, username string) (user.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, acc := range repo.db.accounts {
		if acc.Username == username {
			return cloneAccount(acc), nil
		}
	}
	return user.Account{}, user.ErrNotFound
}

func (repo *userRepository) GetAccountByEmail(_ context.Context, email string) (user.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if email == "" {
		return user.Account{}, user.ErrNotFound
	}
	for _, acc := range repo.db.accounts {
		if strings.EqualFold(acc.Email, email) {
			return cloneAccount(acc), nil
		}
	}
	return user.Account{}, user.ErrNotFound
}

func (repo *userRepository) FilterAccounts(_ context.Context, filter user.QueryFilter) ([]user.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	accs := make([]user.Account, 0, len(repo.db.accounts))
	for _, acc := range repo.db.accounts {
		if filter.Role != "" && !acc.RoleIs(filter.Role) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(acc.Username), search) &&
			!strings.Contains(strings.ToLower(acc.FirstName), search) &&
			!strings.Contains(strings.ToLower(acc.LastName), search) {
			continue
		}
		accs = append(accs, cloneAccount(acc))
	}
	sort.Slice(accs, func(i, j int) bool { return accs[i].Username < accs[j].Username })
	return accs, nil
}

func (repo *userRepository) UpdateAccount(_ context.Context, acc user.Account) (user.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.accounts[acc.ID]; !ok {
		return user.Account{}, user.ErrNotFound
	}
	stored := cloneAccount(&acc)
	repo.db.accounts[acc.ID] = &stored
	return acc, nil
}
