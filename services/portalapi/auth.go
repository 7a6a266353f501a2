package portalapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trainingcmd/portal/core/user"
)

// ErrSessionExpired is returned when the refresh token is rejected. The session has been cleared
// and the user must log in again.
var ErrSessionExpired = errors.New("your session has expired, please log in again")

var errNoLoginUser = errors.New("logging in: no user in response")

type loginResponse struct {
	Token        string          `json:"token"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	User         json.RawMessage `json:"user"`
}

// Login authenticates and stores the returned identity in the session.
func (c *Client) Login(ctx context.Context, username, password string) (*user.User, error) {
	in := map[string]string{"username": username, "password": password}
	var resp loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", in, &resp); err != nil {
		return nil, errors.Wrap(err, "logging in")
	}
	token := resp.Token
	if token == "" {
		token = resp.AccessToken
	}
	if token == "" {
		return nil, errors.New("logging in: no token in response")
	}

	if len(resp.User) == 0 || string(resp.User) == "null" {
		return nil, errNoLoginUser
	}
	var usr user.User
	if err := json.Unmarshal(resp.User, &usr); err != nil {
		return nil, errors.Wrap(err, "decoding user")
	}
	if err := c.sess.Login(ctx, token, resp.RefreshToken, &usr); err != nil {
		return nil, err
	}
	return &usr, nil
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         struct {
		Role string `json:"role"`
	} `json:"user"`
}

// RefreshToken exchanges the refresh token for a new access token.
// A rejected (401) or missing refresh token logs the session out and yields ErrSessionExpired.
func (c *Client) RefreshToken(ctx context.Context) error {
	refresh := c.sess.RefreshToken()
	if refresh == "" {
		return c.expire(ctx)
	}

	var resp refreshResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/refresh-token", map[string]string{"refreshToken": refresh}, &resp)
	if StatusCode(err) == http.StatusUnauthorized {
		return c.expire(ctx)
	}
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}

	token := resp.AccessToken
	if token == "" {
		token = resp.Token
	}
	if token == "" {
		return errors.New("refreshing token: no token in response")
	}
	return c.sess.SetTokens(ctx, token, resp.RefreshToken, resp.User.Role)
}

func (c *Client) expire(ctx context.Context) error {
	if err := c.sess.Logout(ctx); err != nil {
		c.logger.Error("portalapi: clearing expired session", err)
	}
	return ErrSessionExpired
}

// EnsureFresh refreshes the access token when it expires within the configured skew.
// Tokens are read without signature verification; the API remains the judge of validity.
func (c *Client) EnsureFresh(ctx context.Context) error {
	token := c.sess.Token()
	if token == "" || c.sess.RefreshToken() == "" {
		return nil
	}
	exp, ok := tokenExpiry(token)
	if !ok {
		return nil
	}
	if nowFunc().Add(c.skew).Before(exp) {
		return nil
	}
	return c.RefreshToken(ctx)
}

func tokenExpiry(token string) (time.Time, bool) {
	var claims jwt.StandardClaims
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == 0 {
		return time.Time{}, false
	}
	return time.Unix(claims.ExpiresAt, 0), true
}

type messageResponse struct {
	Message string `json:"message"`
}

// RequestPasswordReset asks the API to mail a password reset link to email and returns its reply.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	var resp messageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/password-reset", map[string]string{"email": email}, &resp); err != nil {
		return "", errors.Wrap(err, "requesting password reset")
	}
	return resp.Message, nil
}

// ResetPassword sets a new password using the uid and token of a reset link.
func (c *Client) ResetPassword(ctx context.Context, uid, token, newPassword string) (string, error) {
	in := map[string]string{"uid": uid, "token": token, "newPassword": newPassword}
	var resp messageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/password-reset/confirm", in, &resp); err != nil {
		return "", errors.Wrap(err, "resetting password")
	}
	return resp.Message, nil
}
