package google

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestDefaultTokenPath(t *testing.T) {
	orig := xdg.DataHome
	xdg.DataHome = t.TempDir()
	defer func() { xdg.DataHome = orig }()

	assert.Equal(t, filepath.Join(xdg.DataHome, "apptscheduler", "google-token.json"), DefaultTokenPath())
	assert.Equal(t, DefaultTokenPath(), NewFileTokenStore("").Path())
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	store := NewFileTokenStore(path)

	assert.False(t, store.HasToken())
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(&oauth2.Token{
		AccessToken:  "a",
		TokenType:    "Bearer",
		RefreshToken: "r",
		Expiry:       expiry,
	}))
	assert.True(t, store.HasToken())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "a", token.AccessToken)
	assert.Equal(t, "r", token.RefreshToken)
	assert.True(t, expiry.Equal(token.Expiry))

	assert.Error(t, store.Save(nil))
}

func TestFileTokenStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err := NewFileTokenStore(path).Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)
}
