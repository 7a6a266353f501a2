package sessionstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainingcmd/portal/core/session"
	filestore "github.com/trainingcmd/portal/storage/session/file"
	inmemstore "github.com/trainingcmd/portal/storage/session/inmem"
	redisstore "github.com/trainingcmd/portal/storage/session/redis"
)

func backends() map[string]func(t *testing.T) session.Store {
	return map[string]func(t *testing.T) session.Store{
		"inmem": func(t *testing.T) session.Store { return inmemstore.New() },
		"file": func(t *testing.T) session.Store {
			return filestore.New(filepath.Join(t.TempDir(), "portal", "session.json"))
		},
		"redis": func(t *testing.T) session.Store {
			url := os.Getenv("TEST_REDIS_URL")
			if url == "" {
				t.Skip("TEST_REDIS_URL not set")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			key := fmt.Sprintf("portal:test:%d", time.Now().UnixNano())
			s, err := redisstore.Open(ctx, url, key)
			require.NoError(t, err)
			t.Cleanup(func() {
				_ = s.Delete(context.Background(), "token", "refreshToken", "role")
				_ = s.Close()
			})
			return s
		},
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)

			_, ok, err := s.Get(ctx, "token")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, map[string]string{"token": "a", "refreshToken": "r", "role": "student"}))
			require.NoError(t, s.Set(ctx, map[string]string{"token": "b"}))

			v, ok, err := s.Get(ctx, "token")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "b", v)
			v, _, err = s.Get(ctx, "refreshToken")
			require.NoError(t, err)
			assert.Equal(t, "r", v)

			require.NoError(t, s.Delete(ctx, "token", "refreshToken"))
			_, ok, err = s.Get(ctx, "token")
			require.NoError(t, err)
			assert.False(t, ok)
			v, ok, err = s.Get(ctx, "role")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "student", v)

			require.NoError(t, s.Delete(ctx, "role", "unknown"))
			_, ok, err = s.Get(ctx, "role")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestFileStore_permissionsAndCleanup(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	s := filestore.New(path)

	require.NoError(t, s.Set(ctx, map[string]string{"token": "a"}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// another store on the same file sees the keys
	v, ok, err := filestore.New(path).Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	require.NoError(t, s.Delete(ctx, "token"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, _, err = s.Get(ctx, "token")
	assert.Error(t, err)
}
