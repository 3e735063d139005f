// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for drivebot. It supports a three-layer
// override chain (defaults -> config file -> environment) plus per-command
// CLI flags applied by the caller.
package config

// Config is the top-level configuration structure parsed from a TOML file.
// Every field has a working default; the only value without one is the
// Telegram bot token, which must come from the file or the BOT_TOKEN
// environment variable before the bot can start polling.
type Config struct {
	BotToken            string        `toml:"bot_token"`
	DestinationFolderID string        `toml:"destination_folder_id"`
	MaxFileSize         string        `toml:"max_file_size"`
	Paths               PathsConfig   `toml:"paths"`
	Logging             LoggingConfig `toml:"logging"`
	Network             NetworkConfig `toml:"network"`
}

// PathsConfig overrides the locations of persisted state. Empty fields fall
// back to the platform data directory (see paths.go).
type PathsConfig struct {
	StateDir        string `toml:"state_dir"`
	CredentialsFile string `toml:"credentials_file"`
	TokenFile       string `toml:"token_file"`
	LedgerFile      string `toml:"ledger_file"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// NetworkConfig controls timeouts. poll_timeout is the Telegram long-poll
// window; handler_timeout bounds a single update end-to-end (download from
// Telegram through upload to Drive); http_timeout applies to individual
// short API calls.
type NetworkConfig struct {
	PollTimeout    string `toml:"poll_timeout"`
	HandlerTimeout string `toml:"handler_timeout"`
	HTTPTimeout    string `toml:"http_timeout"`
}

// Defaults.
const (
	defaultMaxFileSize    = "100 MiB"
	defaultLogLevel       = "info"
	defaultPollTimeout    = "50s"
	defaultHandlerTimeout = "15m"
	defaultHTTPTimeout    = "30s"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		MaxFileSize: defaultMaxFileSize,
		Logging: LoggingConfig{
			LogLevel: defaultLogLevel,
		},
		Network: NetworkConfig{
			PollTimeout:    defaultPollTimeout,
			HandlerTimeout: defaultHandlerTimeout,
			HTTPTimeout:    defaultHTTPTimeout,
		},
	}
}
