package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	tokenSalt = []byte("trainingcmd.portal.core.user.reset_token")
	b32       = base32.StdEncoding.WithPadding(base32.NoPadding)

	// errors
	ErrInvalidResetToken = errors.New("invalid or expired password reset link")
)

// EncodeUID base64 encodes the ID of acc.
func EncodeUID(acc Account) string {
	return base64.RawURLEncoding.EncodeToString([]byte(acc.ID))
}

// DecodeUID decodes an ID encoded with EncodeUID.
func DecodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// ResetTokens issues and checks password reset tokens.
// A token is bound to the password hash and last login of the account, so it stops working
// as soon as the password changes or the account logs in.
type ResetTokens struct {
	key     []byte
	timeout time.Duration
}

func NewResetTokens(secret string, timeout time.Duration) *ResetTokens {
	key := sha256.Sum256(append(append([]byte(nil), tokenSalt...), secret...))
	return &ResetTokens{key: key[:], timeout: timeout}
}

// Make returns a reset token for acc, issued now.
func (rt *ResetTokens) Make(acc Account) string {
	return rt.makeWithTimestamp(acc, nowFunc().Unix())
}

// Verify checks that token was issued for acc and has not expired.
func (rt *ResetTokens) Verify(acc Account, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidResetToken
	}
	data, err := b32.DecodeString(parts[0])
	if err != nil {
		return ErrInvalidResetToken
	}
	ts, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return ErrInvalidResetToken
	}

	// check that token has not been tampered with
	if subtle.ConstantTimeCompare([]byte(rt.makeWithTimestamp(acc, ts)), []byte(token)) == 0 {
		return ErrInvalidResetToken
	}

	// check that the timestamp is within limit
	if nowFunc().Sub(time.Unix(ts, 0)) > rt.timeout {
		return ErrInvalidResetToken
	}
	return nil
}

func (rt *ResetTokens) makeWithTimestamp(acc Account, ts int64) string {
	h := hmac.New(sha256.New, rt.key)
	_, _ = h.Write(hashValue(acc, ts))
	return fmt.Sprintf("%s-%s", b32.EncodeToString([]byte(strconv.FormatInt(ts, 10))), base64.RawURLEncoding.EncodeToString(h.Sum(nil)))
}

func hashValue(acc Account, ts int64) []byte {
	var val bytes.Buffer
	val.WriteString(acc.ID)
	val.Write(acc.PasswordHash)
	if !acc.LastLogin.IsZero() {
		val.WriteString(acc.LastLogin.UTC().String())
	}
	val.WriteString(strconv.FormatInt(ts, 10))
	return val.Bytes()
}
