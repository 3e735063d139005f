package tokenfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestLoad_FileNotFound(t *testing.T) {
	tok, account, err := Load("/nonexistent/path/token.json")
	assert.Nil(t, tok)
	assert.Empty(t, account)
	assert.NoError(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")

	expiry := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	original := &oauth2.Token{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		TokenType:    "Bearer",
		Expiry:       expiry,
	}

	require.NoError(t, Save(path, original, "bot@example.com"))

	tok, account, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "access-123", tok.AccessToken)
	assert.Equal(t, "refresh-456", tok.RefreshToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.True(t, tok.Expiry.Equal(expiry))
	assert.Equal(t, "bot@example.com", account)
}

func TestSave_OverwritesCompletely(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")

	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "old", RefreshToken: "old-r"}, "old@example.com"))
	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "new", RefreshToken: "new-r"}, ""))

	tok, account, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "new", tok.AccessToken)
	assert.Equal(t, "new-r", tok.RefreshToken)
	assert.Empty(t, account)
}

func TestSave_Permissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")

	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}, ""))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")

	require.NoError(t, os.WriteFile(path, []byte(`{not json}`), 0o600))

	tok, _, err := Load(path)
	assert.Nil(t, tok)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoad_MissingTokenField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"account":"x@example.com"}`), 0o600))

	tok, _, err := Load(path)
	assert.Nil(t, tok)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state", "token.json")

	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}, ""))

	_, _, err := Load(path)
	assert.NoError(t, err)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")

	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}, ""))
	require.NoError(t, Remove(path))

	tok, _, err := Load(path)
	assert.Nil(t, tok)
	assert.NoError(t, err)

	// Removing a missing file is not an error.
	assert.NoError(t, Remove(path))
}
