package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	usr, err := user.Current()
	require.NoError(t, err)

	got, err := ResolvePath("~/runs/config.yaml")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(usr.HomeDir, "runs", "config.yaml"), got)

	got, err = ResolvePath("~")
	require.NoError(t, err)
	require.Equal(t, filepath.Clean(usr.HomeDir), got)

	t.Setenv("HLORUNNER_TEST_DIR", "/tmp/hlo")
	got, err = ResolvePath("$HLORUNNER_TEST_DIR/a/../b.json")
	require.NoError(t, err)
	require.Equal(t, "/tmp/hlo/b.json", got)

	_, err = ResolvePath("~no_such_user_for_sure/x")
	require.Error(t, err)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	exists, err := FileExists(dir)
	require.NoError(t, err)
	require.True(t, exists)

	path := filepath.Join(dir, "x")
	exists, err = FileExists(path)
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	exists, err = FileExists(path)
	require.NoError(t, err)
	require.True(t, exists)
}
