package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Resolved is the fully-resolved runtime configuration: all overrides
// applied, sizes and durations parsed, state paths absolute.
type Resolved struct {
	BotToken            string
	DestinationFolderID string
	MaxFileBytes        int64

	CredentialsPath string
	TokenPath       string
	LedgerPath      string

	LogLevel       string
	PollTimeout    time.Duration
	HandlerTimeout time.Duration
	HTTPTimeout    time.Duration
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings.
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	StateDir   string // --state-dir flag (empty = use default)
}

// Load reads and parses a TOML config file and returns the resulting Config.
// Unknown keys are fatal errors — silently ignoring a typo in a config file
// leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md, path); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. This supports the zero-config
// first-run experience: BOT_TOKEN in the environment is enough to start.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
// It returns a fully resolved and validated configuration. A missing bot
// token is NOT an error here — login and ledger commands work without one;
// the run command enforces it before polling begins.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.BotToken != "" {
		cfg.BotToken = env.BotToken
	}

	if env.FolderID != "" {
		cfg.DestinationFolderID = env.FolderID
	}

	if env.MaxFileSizeMB != "" {
		mb, convErr := strconv.Atoi(env.MaxFileSizeMB)
		if convErr != nil || mb <= 0 {
			return nil, fmt.Errorf("config: invalid %s value %q: want a positive integer", EnvMaxFileSize, env.MaxFileSizeMB)
		}

		cfg.MaxFileSize = fmt.Sprintf("%d MiB", mb)
	}

	stateDir := cfg.Paths.StateDir
	if env.StateDir != "" {
		stateDir = env.StateDir
	}

	if cli.StateDir != "" {
		stateDir = cli.StateDir
	}

	if stateDir == "" {
		stateDir = DefaultDataDir()
	}

	resolved, err := finalize(cfg, stateDir)
	if err != nil {
		return nil, err
	}

	return resolved, nil
}

// finalize parses sizes and durations and fills in state paths.
func finalize(cfg *Config, stateDir string) (*Resolved, error) {
	maxBytes, err := parseSize(cfg.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("config: max_file_size: %w", err)
	}

	if maxBytes <= 0 {
		return nil, fmt.Errorf("config: max_file_size must be positive, got %q", cfg.MaxFileSize)
	}

	r := &Resolved{
		BotToken:            cfg.BotToken,
		DestinationFolderID: cfg.DestinationFolderID,
		MaxFileBytes:        maxBytes,
		CredentialsPath:     statePath(cfg.Paths.CredentialsFile, stateDir, credentialsFileName),
		TokenPath:           statePath(cfg.Paths.TokenFile, stateDir, tokenFileName),
		LedgerPath:          statePath(cfg.Paths.LedgerFile, stateDir, ledgerFileName),
		LogLevel:            cfg.Logging.LogLevel,
	}

	durs := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"network.poll_timeout", cfg.Network.PollTimeout, &r.PollTimeout},
		{"network.handler_timeout", cfg.Network.HandlerTimeout, &r.HandlerTimeout},
		{"network.http_timeout", cfg.Network.HTTPTimeout, &r.HTTPTimeout},
	}

	for _, d := range durs {
		parsed, parseErr := time.ParseDuration(d.raw)
		if parseErr != nil {
			return nil, fmt.Errorf("config: %s: %w", d.name, parseErr)
		}

		if parsed <= 0 {
			return nil, fmt.Errorf("config: %s must be positive, got %q", d.name, d.raw)
		}

		*d.dst = parsed
	}

	return r, nil
}

// statePath returns the explicit path if set, otherwise name inside dir.
func statePath(explicit, dir, name string) string {
	if explicit != "" {
		return explicit
	}

	return filepath.Join(dir, name)
}

// checkUnknownKeys fails when the TOML file contains keys that did not map
// onto the Config struct.
func checkUnknownKeys(md *toml.MetaData, path string) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}

	return fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
}
