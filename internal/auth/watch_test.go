package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/drivebot-go/internal/tokenfile"
)

func TestWatch_SignalsOnTokenWrite(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := Watch(ctx, tokenPath, testLogger())
	require.NoError(t, err)

	require.NoError(t, tokenfile.Save(tokenPath, &oauth2.Token{
		AccessToken:  "a",
		RefreshToken: "r",
	}, ""))

	select {
	case _, ok := <-changes:
		require.True(t, ok, "channel closed before signaling")
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal after token file write")
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := Watch(ctx, tokenPath, testLogger())
	require.NoError(t, err)

	require.NoError(t, tokenfile.Save(filepath.Join(dir, "other.json"), &oauth2.Token{
		AccessToken:  "a",
		RefreshToken: "r",
	}, ""))

	select {
	case <-changes:
		t.Fatal("unexpected signal for unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())

	changes, err := Watch(ctx, filepath.Join(dir, "token.json"), testLogger())
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-changes:
		require.False(t, ok, "expected channel close after cancel")
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
