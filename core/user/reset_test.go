package user_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/user"
	emailsvc "github.com/trainingcmd/portal/services/email"
	inmemdb "github.com/trainingcmd/portal/storage/database/inmem"
	testutil "github.com/trainingcmd/portal/tests"
)

var resetCmdRegex = regexp.MustCompile(`reset-password -uid (\S+) -token (\S+)`)

func newResetter(t *testing.T) (*user.PasswordResetter, user.Repository, *emailsvc.ServiceMock) {
	t.Helper()
	validate, _ := core.NewValidator()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	mailer := emailsvc.NewServiceMock(&core.Config{AppName: "Training Portal"})
	return user.NewPasswordResetter(repo, validate, mailer, "secret", 72*time.Hour), repo, mailer
}

func withEmail(t *testing.T, repo user.Repository, acc user.Account, email string) user.Account {
	t.Helper()
	acc.Email = email
	acc, err := repo.UpdateAccount(context.Background(), acc)
	require.NoError(t, err)
	return acc
}

func TestPasswordResetter_Request(t *testing.T) {
	ctx := context.Background()
	resetter, repo, mailer := newResetter(t)
	withEmail(t, repo, testutil.CreateAccount(t, repo, "somchai", "", user.RoleStudent, "Somchai", "Dee", true), "somchai@unit.test")
	withEmail(t, repo, testutil.CreateAccount(t, repo, "retired", "", user.RoleStudent, "", "", false), "retired@unit.test")

	for _, email := range []string{"not-an-email", "a@b..c", "a@.b.c"} {
		err := resetter.Request(ctx, email)
		require.Error(t, err)
		assert.Equal(t, "must be a valid email address", core.ErrorMessage(err))
	}

	for _, email := range []string{"nobody@unit.test", "retired@unit.test"} {
		require.NoError(t, resetter.Request(ctx, email))
	}
	assert.Empty(t, mailer.Sent())

	require.NoError(t, resetter.Request(ctx, " Somchai@Unit.TEST "))
	sent := mailer.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "somchai@unit.test", msg.To[0].Address)
	assert.Equal(t, "Somchai Dee", msg.To[0].Name)
	assert.Equal(t, "Password Reset", msg.Subject)
	assert.Contains(t, msg.TextContent, "Hello Somchai Dee,")
	assert.Contains(t, msg.TextContent, "Training Portal account (somchai)")
	assert.Contains(t, msg.TextContent, "expires in 3 days")
	assert.Contains(t, msg.HTMLContent, "<b>somchai</b>")
	assert.Regexp(t, resetCmdRegex, msg.TextContent)
}

func TestPasswordResetter_Reset(t *testing.T) {
	ctx := context.Background()
	resetter, repo, mailer := newResetter(t)
	acc := withEmail(t, repo, testutil.CreateAccount(t, repo, "somchai", "", user.RoleStudent, "Somchai", "Dee", true), "somchai@unit.test")

	require.NoError(t, resetter.Request(ctx, "somchai@unit.test"))
	sent := mailer.Sent()
	require.Len(t, sent, 1)
	match := resetCmdRegex.FindStringSubmatch(sent[0].TextContent)
	require.Len(t, match, 3)
	uid, token := match[1], match[2]
	assert.Equal(t, user.EncodeUID(acc), uid)

	tests := []struct {
		name       string
		uid, token string
		pwd        string
		wantErrMsg string
	}{
		{name: "bad uid", uid: "!!", token: token, pwd: "Range-Day-7781", wantErrMsg: user.ErrInvalidResetToken.Error()},
		{name: "unknown uid", uid: user.EncodeUID(user.Account{User: user.User{ID: "nope"}}), token: token, pwd: "Range-Day-7781", wantErrMsg: user.ErrInvalidResetToken.Error()},
		{name: "bad token", uid: uid, token: "GE3DOMBQGAYDAMBQ-sig", pwd: "Range-Day-7781", wantErrMsg: user.ErrInvalidResetToken.Error()},
		{name: "weak password", uid: uid, token: token, pwd: "short", wantErrMsg: "password must contain at least 8 characters"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := resetter.Reset(ctx, tc.uid, tc.token, tc.pwd)
			require.Error(t, err)
			assert.Equal(t, tc.wantErrMsg, core.ErrorMessage(err))
		})
	}

	require.NoError(t, resetter.Reset(ctx, uid, token, "Range-Day-7781"))
	got, err := repo.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("Range-Day-7781"))

	// the password hash changed, so the token cannot be used twice
	assert.Equal(t, user.ErrInvalidResetToken, resetter.Reset(ctx, uid, token, "Range-Day-9902"))
}
