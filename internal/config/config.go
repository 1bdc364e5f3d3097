package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is injected into the job controller and viewers at construction.
// Each option affects exactly the endpoint or interval it names.
type Config struct {
	SubmitEndpoint string        `yaml:"submitEndpoint" json:"submitEndpoint"`
	StatusEndpoint string        `yaml:"statusEndpoint" json:"statusEndpoint"`
	PollInterval   time.Duration `yaml:"pollInterval" json:"pollInterval"`
	JobTimeout     time.Duration `yaml:"jobTimeout" json:"jobTimeout"`
	RequestTimeout time.Duration `yaml:"requestTimeout" json:"requestTimeout"`
	ResultMode     ResultMode    `yaml:"resultMode" json:"resultMode"`
	Assets         []string      `yaml:"assets,omitempty" json:"assets,omitempty"`
}

// Environment keys. The VITE_ names are accepted as fallbacks so an
// existing web deployment's .env file can be reused unchanged.
const (
	EnvSubmitEndpoint     = "TRANSCRIBE_WEBHOOK_URL"
	EnvStatusEndpoint     = "TRANSCRIBE_STATUS_URL"
	EnvViteSubmitEndpoint = "VITE_TRANSCRIBE_WEBHOOK_URL"
	EnvViteStatusEndpoint = "VITE_TRANSCRIBE_STATUS_URL"
	EnvPollInterval       = "POLL_INTERVAL"
	EnvJobTimeout         = "JOB_TIMEOUT"
	EnvRequestTimeout     = "REQUEST_TIMEOUT"
	EnvResultMode         = "RESULT_MODE"
	EnvAssets             = "WAIT_ASSETS"
)

// Load reads the settings file, then any .env files, then the process
// environment. Later sources win.
func Load(store Store, envFiles ...string) (Config, error) {
	cfg, err := store.Load()
	if err != nil {
		return Config{}, fmt.Errorf("load settings: %w", err)
	}

	if err := loadDotEnv(envFiles...); err != nil {
		return Config{}, err
	}

	cfg, err = ApplyEnv(cfg)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg Config) (Config, error) {
	if v, ok := firstEnv(EnvSubmitEndpoint, EnvViteSubmitEndpoint); ok {
		cfg.SubmitEndpoint = v
	}
	if v, ok := firstEnv(EnvStatusEndpoint, EnvViteStatusEndpoint); ok {
		cfg.StatusEndpoint = v
	}

	var err error
	if cfg.PollInterval, err = readDuration(EnvPollInterval, cfg.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.JobTimeout, err = readDuration(EnvJobTimeout, cfg.JobTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = readDuration(EnvRequestTimeout, cfg.RequestTimeout); err != nil {
		return Config{}, err
	}

	if v, ok := firstEnv(EnvResultMode); ok {
		cfg.ResultMode = ResultMode(strings.ToLower(v))
	}
	if v, ok := firstEnv(EnvAssets); ok {
		cfg.Assets = splitList(v)
	}
	return cfg, nil
}

// Validate rejects settings the controller cannot run with. Missing
// endpoints are allowed here and surface as configuration errors on use.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be greater than 0")
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("job timeout must be greater than 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	switch c.ResultMode {
	case ResultModeLinks, ResultModeInline:
	default:
		return fmt.Errorf("result mode must be %q or %q, got %q", ResultModeLinks, ResultModeInline, c.ResultMode)
	}
	return nil
}

func loadDotEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func firstEnv(keys ...string) (string, bool) {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v, true
		}
	}
	return "", false
}

func readDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := firstEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return parsed, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
