package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// TestDefaults verifies baseline polling configuration.
func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.PollInterval != 10*time.Second {
		t.Fatalf("poll interval = %s, want 10s", cfg.PollInterval)
	}
	if cfg.JobTimeout != 45*time.Minute {
		t.Fatalf("job timeout = %s, want 45m", cfg.JobTimeout)
	}
	if cfg.ResultMode != ResultModeLinks {
		t.Fatalf("result mode = %q, want links", cfg.ResultMode)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

// TestYAMLStoreLoadMissingReturnsDefaults checks first-run behavior.
func TestYAMLStoreLoadMissingReturnsDefaults(t *testing.T) {
	store := NewYAMLStore(filepath.Join(t.TempDir(), "missing", "settings.yaml"))

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, Defaults()) {
		t.Fatalf("settings = %+v, want defaults", got)
	}
}

// TestYAMLStoreSaveAndLoadRoundTrip checks persisted settings fidelity.
func TestYAMLStoreSaveAndLoadRoundTrip(t *testing.T) {
	store := NewYAMLStore(filepath.Join(t.TempDir(), "cfg", "settings.yaml"))
	want := Config{
		SubmitEndpoint: "https://hooks.example.com/submit",
		StatusEndpoint: "https://hooks.example.com/status",
		PollInterval:   5 * time.Second,
		JobTimeout:     time.Hour,
		RequestTimeout: 15 * time.Second,
		ResultMode:     ResultModeInline,
		Assets:         []string{"a.gif", "b.gif"},
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
}

// TestYAMLStorePartialFileKeepsDefaults checks missing keys fall back.
func TestYAMLStorePartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("submitEndpoint: https://x.example/submit\npollInterval: 3s\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := NewYAMLStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.SubmitEndpoint != "https://x.example/submit" || got.PollInterval != 3*time.Second {
		t.Fatalf("settings = %+v", got)
	}
	if got.JobTimeout != DefaultJobTimeout {
		t.Fatalf("job timeout = %s, want default", got.JobTimeout)
	}
}

// TestYAMLStoreLoadInvalidYAML checks parse error handling.
func TestYAMLStoreLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("pollInterval: [not, a, duration"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := NewYAMLStore(path).Load(); err == nil {
		t.Fatal("expected yaml parse error")
	}
}
