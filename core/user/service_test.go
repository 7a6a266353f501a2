package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/user"
	inmemdb "github.com/trainingcmd/portal/storage/database/inmem"
	testutil "github.com/trainingcmd/portal/tests"
)

func newService(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()
	validate, _ := core.NewValidator()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewService(repo, validate), repo
}

func TestService_Create(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	acc, err := svc.Create(ctx, user.NewAccount{Username: " Somchai ", Password: "Range-Day-42", Role: "Student", FirstName: " Somchai "})
	require.NoError(t, err)
	assert.Equal(t, "somchai", acc.Username)
	assert.Equal(t, user.RoleStudent, acc.Role)
	assert.Equal(t, "Somchai", acc.FirstName)
	assert.True(t, acc.IsActive)
	assert.NotEmpty(t, acc.ID)

	_, err = svc.Create(ctx, user.NewAccount{Username: "somchai", Password: "Range-Day-42", Role: user.RoleStudent})
	assert.True(t, core.IsValidation(err))

	_, err = svc.Create(ctx, user.NewAccount{Username: "suksan", Password: "Range-Day-42", Role: "colonel"})
	assert.Error(t, err)
}

func TestService_Authenticate(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	testutil.CreateAccount(t, repo, "somchai", "Range-Day-42", user.RoleStudent, "", "", true)
	testutil.CreateAccount(t, repo, "retired", "Range-Day-42", user.RoleStudent, "", "", false)

	tests := []struct {
		name, username, pwd string
		wantErr             error
	}{
		{name: "valid", username: "Somchai", pwd: "Range-Day-42"},
		{name: "wrong password", username: "somchai", pwd: "nope", wantErr: user.ErrAuthenticationFailed},
		{name: "unknown user", username: "nobody", pwd: "Range-Day-42", wantErr: user.ErrAuthenticationFailed},
		{name: "inactive", username: "retired", pwd: "Range-Day-42", wantErr: user.ErrAccountDeactivated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			acc, err := svc.Authenticate(ctx, tc.username, tc.pwd)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, acc.LastLogin.IsZero())
		})
	}
}

func TestService_UpdateProfile(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	acc := testutil.CreateAccount(t, repo, "somchai", "", user.RoleStudent, "Somchai", "", true)

	updated, err := svc.UpdateProfile(ctx, acc.ID, user.Fields{"lastName": "Suksan", "foodAllergies": "peanuts, shrimp"})
	require.NoError(t, err)
	assert.Equal(t, "Suksan", updated.LastName)
	assert.Equal(t, user.List{"peanuts", "shrimp"}, updated.FoodAllergies)

	_, err = svc.UpdateProfile(ctx, acc.ID, user.Fields{"role": user.RoleAdmin})
	assert.True(t, core.IsValidation(err))

	got, err := svc.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, got.Role)

	_, err = svc.UpdateProfile(ctx, "missing", user.Fields{"phone": "1"})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_ChangePassword(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	acc := testutil.CreateAccount(t, repo, "somchai", "Range-Day-42", user.RoleStudent, "", "", true)

	tests := []struct {
		name, current, pwd string
		wantField          string
	}{
		{name: "wrong current", current: "nope", pwd: "Night-March-7", wantField: "currentPassword"},
		{name: "unchanged", current: "Range-Day-42", pwd: "Range-Day-42", wantField: "newPassword"},
		{name: "too short", current: "Range-Day-42", pwd: "short", wantField: "newPassword"},
		{name: "valid", current: "Range-Day-42", pwd: "Night-March-7"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.ChangePassword(ctx, acc.ID, tc.current, tc.pwd)
			if tc.wantField == "" {
				require.NoError(t, err)
				_, err = svc.Authenticate(ctx, "somchai", tc.pwd)
				assert.NoError(t, err)
				return
			}
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tc.wantField, vErr.Fields[0].Field)
		})
	}
}

func TestService_Query(t *testing.T) {
	svc, repo := newService(t)
	testutil.CreateAccount(t, repo, "somchai", "", user.RoleStudent, "", "", true)
	testutil.CreateAccount(t, repo, "suksan", "", user.RoleTeacher, "", "", true)

	accs, err := svc.Query(context.Background(), user.QueryFilter{Role: " TEACHER "})
	require.NoError(t, err)
	require.Len(t, accs, 1)
	assert.Equal(t, "suksan", accs[0].Username)
}
