package diagnostics

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"episode-mapper/internal/config"
	"episode-mapper/internal/domain"
)

const lookupTimeout = 3 * time.Second

// Checker validates endpoint configuration, timing values and the settings
// directory before the first job is submitted.
type Checker struct {
	lookupHost func(context.Context, string) ([]string, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
	now        func() time.Time
}

// NewChecker builds a checker using the system resolver and filesystem.
func NewChecker() *Checker {
	return &Checker{
		lookupHost: net.DefaultResolver.LookupHost,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
		now:        time.Now,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(ctx context.Context, cfg config.Config, settingsDir string) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkEndpoint(ctx, "submit_endpoint", "Submit webhook", cfg.SubmitEndpoint, config.EnvSubmitEndpoint),
		c.checkEndpoint(ctx, "status_endpoint", "Status endpoint", cfg.StatusEndpoint, config.EnvStatusEndpoint),
		checkTiming(cfg),
		c.checkSettingsDir(settingsDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: c.now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkEndpoint verifies an endpoint is set, well formed and resolvable.
func (c *Checker) checkEndpoint(ctx context.Context, id, name, raw, envKey string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: id, Name: name}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("%s is not configured.", name)
		item.Hint = fmt.Sprintf("Set %s in the environment, a .env file or the settings file.", envKey)
		return item
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("%s is not a valid http(s) URL: %s", name, raw)
		item.Hint = "Use the full webhook URL including https://."
		return item
	}

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	if _, err := c.lookupHost(lookupCtx, u.Hostname()); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot resolve host %s", u.Hostname())
		item.Hint = "Check the URL and your network connection."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Configured: %s", u.Redacted())
	return item
}

// checkTiming validates the poll interval against the job timeout.
func checkTiming(cfg config.Config) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "timing", Name: "Polling"}

	switch {
	case cfg.PollInterval <= 0 || cfg.JobTimeout <= 0 || cfg.RequestTimeout <= 0:
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Poll interval, job timeout and request timeout must be positive."
		item.Hint = "Use Go durations such as 10s or 45m."
	case cfg.JobTimeout <= cfg.PollInterval:
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Job timeout %s is not longer than poll interval %s.", cfg.JobTimeout, cfg.PollInterval)
		item.Hint = "Increase the job timeout or shorten the poll interval."
	default:
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Checking every %s for up to %s.", cfg.PollInterval, cfg.JobTimeout)
	}
	return item
}

// checkSettingsDir validates the settings directory exists and is writable.
func (c *Checker) checkSettingsDir(dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "settings_dir",
		Name: "Settings directory",
	}

	if strings.TrimSpace(dir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Settings directory is empty."
		item.Hint = "Set HOME so settings can be saved."
		return item
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create settings directory: %s", dir)
		item.Hint = "Adjust filesystem permissions for your home directory."
		return item
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Settings directory is not writable: %s", dir)
		item.Hint = "Settings changes will not be saved until this is fixed."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	lookupHost func(context.Context, string) ([]string, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookupHost: lookupHost,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
		now:        time.Now,
	}
}
