package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
bot_token = "123:abc"
destination_folder_id = "folder-1"
max_file_size = "50 MiB"

[logging]
log_level = "debug"

[network]
poll_timeout = "30s"
handler_timeout = "10m"
http_timeout = "20s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.Equal(t, "folder-1", cfg.DestinationFolderID)
	assert.Equal(t, "50 MiB", cfg.MaxFileSize)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "30s", cfg.Network.PollTimeout)
}

func TestLoad_UnknownKeyFails(t *testing.T) {
	path := writeConfig(t, `
bot_token = "123:abc"
maximum_file_size = "50 MiB"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
	assert.Contains(t, err.Error(), "maximum_file_size")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, defaultMaxFileSize, cfg.MaxFileSize)
	assert.Empty(t, cfg.BotToken)
}

func TestResolve_Defaults(t *testing.T) {
	stateDir := t.TempDir()

	r, err := Resolve(EnvOverrides{ConfigPath: filepath.Join(t.TempDir(), "nope.toml")}, CLIOverrides{StateDir: stateDir})
	require.NoError(t, err)

	assert.Equal(t, int64(100*1024*1024), r.MaxFileBytes)
	assert.Equal(t, filepath.Join(stateDir, "token.json"), r.TokenPath)
	assert.Equal(t, filepath.Join(stateDir, "credentials.json"), r.CredentialsPath)
	assert.Equal(t, filepath.Join(stateDir, "ledger.db"), r.LedgerPath)
	assert.Equal(t, 50*time.Second, r.PollTimeout)
	assert.Equal(t, 15*time.Minute, r.HandlerTimeout)
}

func TestResolve_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
bot_token = "file-token"
max_file_size = "10 MiB"
`)

	env := EnvOverrides{
		ConfigPath:    path,
		BotToken:      "env-token",
		FolderID:      "env-folder",
		MaxFileSizeMB: "25",
	}

	r, err := Resolve(env, CLIOverrides{StateDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "env-token", r.BotToken)
	assert.Equal(t, "env-folder", r.DestinationFolderID)
	assert.Equal(t, int64(25*1024*1024), r.MaxFileBytes)
}

func TestResolve_InvalidMaxFileSizeEnv(t *testing.T) {
	env := EnvOverrides{
		ConfigPath:    filepath.Join(t.TempDir(), "nope.toml"),
		MaxFileSizeMB: "lots",
	}

	_, err := Resolve(env, CLIOverrides{StateDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_FILE_SIZE_MB")
}

func TestResolve_ExplicitPathsWin(t *testing.T) {
	path := writeConfig(t, `
[paths]
token_file = "/var/lib/drivebot/tok.json"
`)

	r, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{StateDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/drivebot/tok.json", r.TokenPath)
}

func TestResolve_BadDuration(t *testing.T) {
	path := writeConfig(t, `
[network]
poll_timeout = "soon"
`)

	_, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{StateDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_timeout")
}

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"100 MiB", 100 * 1024 * 1024},
		{"1.5 GiB", 1536 * 1024 * 1024},
		{"10MB", 10 * 1000 * 1000},
		{"2048", 2048},
		{"512 KiB", 512 * 1024},
	}

	for _, tc := range cases {
		got, err := parseSize(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := parseSize("banana")
	assert.Error(t, err)

	_, err = parseSize("-5 MiB")
	assert.Error(t, err)
}
