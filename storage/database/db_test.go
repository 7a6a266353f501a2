package database

import (
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainingcmd/portal/fs"
)

func TestRunMigration(t *testing.T) {
	defer func(f func(string, *sql.DB, fs.FS, string, ...string) error) { gooseRunFunc = f }(gooseRunFunc)

	var gotCmd, gotDir string
	var gotArgs []string
	gooseRunFunc = func(cmd string, _ *sql.DB, fsys fs.FS, dir string, args ...string) error {
		gotCmd, gotDir, gotArgs = cmd, dir, args
		entries, err := fs.ReadDir(fsys, dir)
		require.NoError(t, err)
		assert.NotEmpty(t, entries)
		if cmd == "fail" {
			return errors.New("boom")
		}
		return nil
	}

	require.NoError(t, Migrate(nil))
	assert.Equal(t, "up", gotCmd)
	assert.Equal(t, "migrations", gotDir)
	assert.Empty(t, gotArgs)

	require.NoError(t, RunMigration(nil, "down-to", "2"))
	assert.Equal(t, []string{"2"}, gotArgs)

	assert.EqualError(t, RunMigration(nil, "fail"), `running migration "fail": boom`)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(appfs.FS, "migrations")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "00001_create_account.sql")
}
