package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultPollInterval   = 10 * time.Second
	DefaultJobTimeout     = 45 * time.Minute
	DefaultRequestTimeout = 30 * time.Second
)

// ResultMode selects how finished job results are presented.
type ResultMode string

const (
	// ResultModeLinks opens result URLs as opaque download links.
	ResultModeLinks ResultMode = "links"
	// ResultModeInline renders the transcript inline with direction controls.
	ResultModeInline ResultMode = "inline"
)

// Defaults returns baseline configuration for first launch.
func Defaults() Config {
	return Config{
		PollInterval:   DefaultPollInterval,
		JobTimeout:     DefaultJobTimeout,
		RequestTimeout: DefaultRequestTimeout,
		ResultMode:     ResultModeLinks,
	}
}

// DefaultSettingsPath returns the per-user settings file location.
func DefaultSettingsPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".episode-mapper", "settings.yaml")
}
