package portalapi

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/events"
	"github.com/trainingcmd/portal/core/session"
	"github.com/trainingcmd/portal/core/user"
	inmemstore "github.com/trainingcmd/portal/storage/session/inmem"
)

func newSession(t *testing.T) (*session.Session, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	sess, err := session.New(context.Background(), inmemstore.New(), bus, nil)
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess, bus
}

func newClient(t *testing.T, h http.HandlerFunc) (*Client, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	sess, _ := newSession(t)
	c, err := New(srv.URL, sess, &Options{RefreshSkew: time.Minute})
	require.NoError(t, err)
	return c, sess
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{ExpiresAt: exp.Unix(), Subject: "u1"})
	ss, err := token.SignedString([]byte("test"))
	require.NoError(t, err)
	return ss
}

func TestNew(t *testing.T) {
	_, err := New("localhost:8000", nil, nil)
	assert.Error(t, err)

	c, err := New("http://localhost:8000/", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}

func TestError_messages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "message wins", body: `{"message":"Profile locked","error":"forbidden"}`, want: "Profile locked"},
		{name: "error key", body: `{"error":"permission denied"}`, want: "permission denied"},
		{name: "field errors", body: `{"phone":"too long","email":"must be a valid email address"}`, want: "email: must be a valid email address; phone: too long"},
		{name: "non-json", body: `<html>bad gateway</html>`, want: ""},
		{name: "blank message", body: `{"message":"  "}`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newError(http.StatusBadRequest, []byte(tt.body))
			assert.Equal(t, tt.want, err.UserMessage())
			if tt.want == "" {
				assert.Equal(t, "portal api: 400 Bad Request", err.Error())
			}
		})
	}
}

func TestClient_bearerToken(t *testing.T) {
	var gotAuth []string
	c, sess := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"user":{"id":"u1","username":"somchai","role":"student","foodAllergies":"peanuts, shrimp"}}`))
	})
	ctx := context.Background()

	usr, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.List{"peanuts", "shrimp"}, usr.FoodAllergies)

	require.NoError(t, sess.Login(ctx, "tok", "ref", usr))
	_, err = c.Me(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "Bearer tok"}, gotAuth)
}

func TestClient_UpdateMe(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     user.Fields
	}{
		{name: "envelope", response: `{"user":{"phone":"0812345678","drugAllergies":["penicillin"],"secret":"x"}}`,
			want: user.Fields{"phone": "0812345678", "drugAllergies": user.List{"penicillin"}}},
		{name: "bare object", response: `{"rank":"Sergeant"}`, want: user.Fields{"rank": "Sergeant"}},
		{name: "empty body", response: ``, want: user.Fields{}},
		{name: "not an object", response: `"ok"`, want: user.Fields{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sent map[string]interface{}
			c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPut, r.Method)
				assert.Equal(t, "/api/me", r.URL.Path)
				_ = json.NewDecoder(r.Body).Decode(&sent)
				_, _ = w.Write([]byte(tt.response))
			})
			got, err := c.UpdateMe(context.Background(), user.Fields{"phone": "0812345678", "foodAllergies": user.List{"shrimp"}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []interface{}{"shrimp"}, sent["foodAllergies"])
		})
	}
}

func TestClient_Login(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  string
		wantRole string
	}{
		{name: "user", response: `{"token":"tok","refreshToken":"ref","user":{"id":"u1","username":"somchai","role":"teacher"}}`, wantRole: user.RoleTeacher},
		{name: "access token key", response: `{"accessToken":"tok","refreshToken":"ref","user":{"id":"u1","role":"student"}}`, wantRole: user.RoleStudent},
		{name: "no token", response: `{"user":{"id":"u1"}}`, wantErr: "logging in: no token in response"},
		{name: "no user", response: `{"token":"tok","refreshToken":"ref"}`, wantErr: errNoLoginUser.Error()},
		{name: "null user", response: `{"token":"tok","refreshToken":"ref","user":null}`, wantErr: errNoLoginUser.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, sess := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/login", r.URL.Path)
				_, _ = w.Write([]byte(tt.response))
			})
			_, err := c.Login(context.Background(), "somchai", "p4ssw0rd!x")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				assert.False(t, sess.IsAuthenticated())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "tok", sess.Token())
			assert.Equal(t, tt.wantRole, sess.Role())
		})
	}
}

func TestClient_errorMessageThroughCore(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"permission denied"}`))
	})
	_, err := c.ListUsers(context.Background(), "teacher")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
	assert.Equal(t, "permission denied", core.ErrorMessage(err))
}

func TestClient_passwordReset(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		switch r.URL.Path {
		case "/api/password-reset":
			assert.Equal(t, "somchai@unit.test", in["email"])
			_, _ = w.Write([]byte(`{"message":"Link sent."}`))
		case "/api/password-reset/confirm":
			if in["token"] != "good" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"message":"invalid or expired password reset link"}`))
				return
			}
			assert.Equal(t, "dWlk", in["uid"])
			assert.Equal(t, "Range-Day-7781", in["newPassword"])
			_, _ = w.Write([]byte(`{"message":"Password has been reset."}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	msg, err := c.RequestPasswordReset(ctx, "somchai@unit.test")
	require.NoError(t, err)
	assert.Equal(t, "Link sent.", msg)

	msg, err = c.ResetPassword(ctx, "dWlk", "good", "Range-Day-7781")
	require.NoError(t, err)
	assert.Equal(t, "Password has been reset.", msg)

	_, err = c.ResetPassword(ctx, "dWlk", "bad", "Range-Day-7781")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.Equal(t, "invalid or expired password reset link", core.ErrorMessage(err))
}

func TestClient_UploadAvatar(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("avatar")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := ioutil.ReadAll(f)
		assert.Equal(t, "me.png", hdr.Filename)
		assert.Equal(t, "PNGDATA", string(data))
		_, _ = w.Write([]byte(`{"avatar":"/media/avatars/a.png"}`))
	})
	ref, err := c.UploadAvatar(context.Background(), "/tmp/me.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, "/media/avatars/a.png", ref)
}

func TestClient_RefreshToken(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		c, sess := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			assert.Equal(t, "ref", in["refreshToken"])
			_, _ = w.Write([]byte(`{"accessToken":"new","refreshToken":"ref2","user":{"role":"Teacher"}}`))
		})
		require.NoError(t, sess.Login(ctx, "old", "ref", &user.User{ID: "u1", Role: user.RoleStudent}))

		require.NoError(t, c.RefreshToken(ctx))
		assert.Equal(t, "new", sess.Token())
		assert.Equal(t, "ref2", sess.RefreshToken())
		assert.Equal(t, user.RoleTeacher, sess.Role())
	})

	t.Run("401 logs out", func(t *testing.T) {
		c, sess := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid or expired jwt"}`))
		})
		require.NoError(t, sess.Login(ctx, "old", "ref", &user.User{ID: "u1", Role: user.RoleStudent}))

		assert.Equal(t, ErrSessionExpired, c.RefreshToken(ctx))
		assert.False(t, sess.IsAuthenticated())
		assert.Equal(t, user.RoleGuest, sess.Role())
		assert.Nil(t, sess.User())
	})

	t.Run("other errors keep the session", func(t *testing.T) {
		c, sess := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		require.NoError(t, sess.Login(ctx, "old", "ref", &user.User{ID: "u1", Role: user.RoleStudent}))

		err := c.RefreshToken(ctx)
		require.Error(t, err)
		assert.NotEqual(t, ErrSessionExpired, err)
		assert.Equal(t, "old", sess.Token())
	})
}

func TestClient_EnsureFresh(t *testing.T) {
	ctx := context.Background()
	var calls int
	c, sess := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"accessToken":"` + signed(t, time.Now().Add(time.Hour)) + `"}`))
	})

	require.NoError(t, sess.Login(ctx, signed(t, time.Now().Add(time.Hour)), "ref", &user.User{Role: user.RoleStudent}))
	require.NoError(t, c.EnsureFresh(ctx))
	assert.Equal(t, 0, calls, "fresh token must not be refreshed")

	require.NoError(t, sess.Login(ctx, signed(t, time.Now().Add(30*time.Second)), "ref", &user.User{Role: user.RoleStudent}))
	require.NoError(t, c.EnsureFresh(ctx))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "ref", sess.RefreshToken())

	require.NoError(t, sess.Login(ctx, "not-a-jwt", "ref", &user.User{Role: user.RoleStudent}))
	require.NoError(t, c.EnsureFresh(ctx))
	assert.Equal(t, 1, calls)
}
