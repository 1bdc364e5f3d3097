package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"episode-mapper/internal/config"
	"episode-mapper/internal/domain"
)

// FixDiagnostic applies the remediation for one failed diagnostic item and
// returns the refreshed report. Endpoints cannot be guessed, so those items
// only report what to set.
func (a *App) FixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	cfg := a.GetSettings()
	var fixErr error

	switch id {
	case "submit_endpoint":
		fixErr = fmt.Errorf("set the submit webhook in Settings or %s", config.EnvSubmitEndpoint)
	case "status_endpoint":
		fixErr = fmt.Errorf("set the status endpoint in Settings or %s", config.EnvStatusEndpoint)
	case "timing":
		_, fixErr = a.SaveSettings(resetTiming(cfg))
	case "settings_dir":
		fixErr = writeSettingsFile(a.Store, a.SettingsPath, cfg)
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	report := a.RefreshDiagnostics()
	return report, fixErr
}

// resetTiming restores default timings. A request timeout that was valid on
// its own is kept.
func resetTiming(cfg config.Config) config.Config {
	defaults := config.Defaults()
	cfg.PollInterval = defaults.PollInterval
	cfg.JobTimeout = defaults.JobTimeout
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	return cfg
}

// writeSettingsFile creates the settings directory and persists cfg so the
// file exists for hand editing.
func writeSettingsFile(store config.Store, settingsPath string, cfg config.Config) error {
	dir := filepath.Dir(strings.TrimSpace(settingsPath))
	if dir == "" || dir == "." {
		return fmt.Errorf("settings path is not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings directory %s: %w", dir, err)
	}
	if err := store.Save(normalizeSettings(cfg)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
