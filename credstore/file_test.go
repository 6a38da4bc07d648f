package credstore_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusgate/portalauth/credstore"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store, err := credstore.NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "A1", "R1"))

	access, refresh, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "A1", access)
	require.Equal(t, "R1", refresh)
}

func TestFileStore_MissingFileLoadsEmpty(t *testing.T) {
	store, err := credstore.NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))
	require.NoError(t, err)

	access, refresh, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, access)
	require.Empty(t, refresh)
}

func TestFileStore_ClearRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store, err := credstore.NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "A1", "R1"))
	require.NoError(t, store.Clear(ctx))

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// clearing twice is fine
	require.NoError(t, store.Clear(ctx))
}

func TestFileStore_EncryptedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store, err := credstore.NewFileStore(path, credstore.WithPassphrase("hunter2"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "A1", "R1"))

	// tokens must not be readable off disk
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "A1"))
	require.False(t, strings.Contains(string(raw), "R1"))

	access, refresh, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "A1", access)
	require.Equal(t, "R1", refresh)
}

func TestFileStore_WrongPassphraseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	ctx := context.Background()

	store, err := credstore.NewFileStore(path, credstore.WithPassphrase("hunter2"))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "A1", "R1"))

	other, err := credstore.NewFileStore(path, credstore.WithPassphrase("not-hunter2"))
	require.NoError(t, err)

	_, _, err = other.Load(ctx)
	require.Error(t, err)
}
