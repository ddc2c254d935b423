package config

import (
	"path/filepath"
	"testing"
)

func TestLoadStandaloneMode(t *testing.T) {
	t.Setenv("WORKERLINK_PROCESS_ID", "")
	t.Setenv("WORKERLINK_SUPERVISOR_HOST", "")
	t.Setenv("WORKERLINK_SUPERVISOR_PORT", "")
	t.Setenv("WORKERLINK_SUPERVISOR_TOKEN", "")
	t.Setenv("WORKERLINK_SHARED_DIR", "")

	cfg := Load()
	if cfg.SupervisorConfigured() {
		t.Error("empty environment should not configure a supervisor")
	}
	if cfg.SharedDirUsable() {
		t.Error("empty environment should not enable the shared dir")
	}
}

func TestLoadSupervised(t *testing.T) {
	t.Setenv("WORKERLINK_PROCESS_ID", "w1")
	t.Setenv("WORKERLINK_SUPERVISOR_HOST", "127.0.0.1")
	t.Setenv("WORKERLINK_SUPERVISOR_PORT", "9000")
	t.Setenv("WORKERLINK_SUPERVISOR_TOKEN", "secret")

	cfg := Load()
	if cfg.ProcessID != "w1" {
		t.Errorf("expected process id w1, got %q", cfg.ProcessID)
	}
	if !cfg.SupervisorConfigured() {
		t.Error("expected supervisor to be configured")
	}
	if cfg.SupervisorToken != "secret" {
		t.Errorf("expected token to pass through, got %q", cfg.SupervisorToken)
	}
}

func TestSupervisorConfiguredRequiresHostAndPort(t *testing.T) {
	t.Setenv("WORKERLINK_SUPERVISOR_HOST", "127.0.0.1")
	t.Setenv("WORKERLINK_SUPERVISOR_PORT", "")

	if Load().SupervisorConfigured() {
		t.Error("host without port should not configure a supervisor")
	}
}

func TestSharedDirUsable(t *testing.T) {
	dir := t.TempDir()

	t.Run("ExistingDirectory", func(t *testing.T) {
		t.Setenv("WORKERLINK_SHARED_DIR", dir)
		if !Load().SharedDirUsable() {
			t.Error("existing directory should be usable")
		}
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		t.Setenv("WORKERLINK_SHARED_DIR", filepath.Join(dir, "nope"))
		if Load().SharedDirUsable() {
			t.Error("missing directory should not be usable")
		}
	})
}
