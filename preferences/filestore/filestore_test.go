package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/ailab-client/preferences"
	"github.com/jrsteele09/ailab-client/preferences/filestore"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	repo := filestore.New(filepath.Join(t.TempDir(), "nested", "prefs.yaml"))

	values, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestPutDeleteReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")
	repo := filestore.New(path)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, map[preferences.Key]string{
		preferences.KeyAuthToken: "abc123",
		preferences.KeyUserPhone: "",
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	values, err := filestore.New(path).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "abc123", values[preferences.KeyAuthToken])
	phone, ok := values[preferences.KeyUserPhone]
	require.True(t, ok, "empty string must survive a round trip as present")
	require.Equal(t, "", phone)

	require.NoError(t, repo.Delete(ctx, preferences.KeyUserPhone))
	values, err = repo.Load(ctx)
	require.NoError(t, err)
	_, ok = values[preferences.KeyUserPhone]
	require.False(t, ok)

	require.NoError(t, repo.Replace(ctx, map[preferences.Key]string{}))
	values, err = repo.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, values)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("values: [not, a, map"), 0o600))

	_, err := filestore.New(path).Load(context.Background())
	require.Error(t, err)
}

func TestStoreOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	ctx := context.Background()

	store, err := preferences.Open(ctx, filestore.New(path))
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, preferences.KeyAuthToken, "abc123"))
	require.NoError(t, store.Close())

	reopened, err := preferences.Open(ctx, filestore.New(path))
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(ctx, preferences.KeyAuthToken)
	require.NoError(t, err)
	require.Equal(t, "abc123", *v)
}
