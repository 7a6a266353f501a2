package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetTokens_MakeVerify(t *testing.T) {
	timeout := 3 * 24 * time.Hour
	tokens := NewResetTokens("secret", timeout)

	now := time.Now()
	acc := Account{
		User:      User{ID: "8d6f3c1e", Username: "somchai", Email: "somchai@unit.test"},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	require.NoError(t, acc.SetPassword("Range-Day-42"))

	validToken := tokens.Make(acc)

	// generate an expired token
	dayLate := timeout + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := tokens.Make(acc)
	nowFunc = time.Now // reset

	pwdChanged := acc
	require.NoError(t, pwdChanged.SetPassword("Range-Day-43"))
	loggedIn := acc
	loggedIn.LastLogin = now.Add(time.Minute)
	otherAcc := acc
	otherAcc.ID = "0a1b2c3d"

	tests := []struct {
		name    string
		tokens  *ResetTokens
		acc     Account
		token   string
		wantErr error
	}{
		{name: "no token", tokens: tokens, acc: acc, wantErr: ErrInvalidResetToken},
		{name: "invalid parts len", tokens: tokens, acc: acc, token: "lmaooolol", wantErr: ErrInvalidResetToken},
		{name: "invalid base32", tokens: tokens, acc: acc, token: "hahaha-sigsig", wantErr: ErrInvalidResetToken},
		{name: "invalid timestamp", tokens: tokens, acc: acc, token: "NRXWY-sigsig", wantErr: ErrInvalidResetToken},
		{name: "invalid signature", tokens: tokens, acc: acc, token: "GE3DOMBQGAYDAMBQ-sigsig", wantErr: ErrInvalidResetToken},
		{name: "expired token", tokens: tokens, acc: acc, token: expiredToken, wantErr: ErrInvalidResetToken},
		{name: "password changed", tokens: tokens, acc: pwdChanged, token: validToken, wantErr: ErrInvalidResetToken},
		{name: "logged in since", tokens: tokens, acc: loggedIn, token: validToken, wantErr: ErrInvalidResetToken},
		{name: "other account", tokens: tokens, acc: otherAcc, token: validToken, wantErr: ErrInvalidResetToken},
		{name: "other secret", tokens: NewResetTokens("other", timeout), acc: acc, token: validToken, wantErr: ErrInvalidResetToken},
		{name: "valid token", tokens: tokens, acc: acc, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tokens.Verify(tt.acc, tt.token)
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	acc := Account{User: User{ID: "5f0c9a52-7d3e-4c1b-9a8e-2b6f4d1e0c77"}}
	uid := EncodeUID(acc)
	assert.NotContains(t, uid, "=")

	id, err := DecodeUID(uid)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, id)

	_, err = DecodeUID("not base64!")
	assert.Error(t, err)
}

func TestHumanizeDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 72 * time.Hour, want: "3 days"},
		{d: 24 * time.Hour, want: "1 day"},
		{d: 6 * time.Hour, want: "6 hours"},
		{d: time.Hour, want: "1 hour"},
		{d: 90 * time.Minute, want: "1h30m0s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, humanizeDuration(tt.d))
		})
	}
}
