package config

import "os"

// Environment variable names for overrides.
const (
	EnvBotToken	= "BOT_TOKEN"
	EnvFolderID	= "DESTINATION_FOLDER_ID"
	EnvMaxFileSize	= "MAX_FILE_SIZE_MB"
	EnvConfig	= "DRIVEBOT_CONFIG"
	EnvStateDir	= "DRIVEBOT_STATE_DIR"
)

// EnvOverrides holds values derived from environment variables.
// These are read once by ReadEnvOverrides and applied in Resolve.
type EnvOverrides struct {
	BotToken      string // BOT_TOKEN: Telegram bot credential
	FolderID      string // DESTINATION_FOLDER_ID: Drive destination folder
	MaxFileSizeMB string // MAX_FILE_SIZE_MB: upload ceiling in megabytes
	ConfigPath    string // DRIVEBOT_CONFIG: override config file path
	StateDir      string // DRIVEBOT_STATE_DIR: override state directory
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		BotToken:      os.Getenv(EnvBotToken),
		FolderID:      os.Getenv(EnvFolderID),
		MaxFileSizeMB: os.Getenv(EnvMaxFileSize),
		ConfigPath:    os.Getenv(EnvConfig),
		StateDir:      os.Getenv(EnvStateDir),
	}
}
