package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glucobot/glucobot/internal/config"
)

func TestLogConfigInfo(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.APIKey = "test-api-key-12345"

	// Should not panic
	logConfigInfo(cfg)

	cfg.Model.APIKey = ""
	logConfigInfo(cfg)
}

func TestVersion(t *testing.T) {
	if version != "0.1.0" {
		t.Errorf("Expected version '0.1.0', got '%s'", version)
	}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	got := execute(t, "version")
	if !strings.Contains(got, "Glucose Data Assistant v0.1.0") {
		t.Errorf("Unexpected version output: %q", got)
	}
}

func TestPatientsCommand(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, "config")
	root := filepath.Join(dir, "data")
	for _, name := range []string{"CGMacros-002", "CGMacros-001", "notes"} {
		if err := os.MkdirAll(filepath.Join(root, name), 0755); err != nil {
			t.Fatal(err)
		}
	}

	t.Setenv("GLUCOBOT_DATA_ROOT", root)
	got := execute(t, "--config-dir", configDir, "patients")
	if got != "001\n002\n" {
		t.Errorf("Unexpected patients output: %q", got)
	}

	if _, err := os.Stat(filepath.Join(configDir, "config.yaml")); err != nil {
		t.Errorf("Expected default config in --config-dir: %v", err)
	}
}

func TestExportsCommand_Empty(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GLUCOBOT_MEMORY_JOURNAL_PATH", filepath.Join(dir, "journal.db"))

	got := execute(t, "--config-dir", filepath.Join(dir, "config"), "exports", "-n", "5")
	if got != "" {
		t.Errorf("Expected no exports, got %q", got)
	}
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	got := execute(t, "--config-dir", filepath.Join(dir, "config"), "config")
	if !strings.Contains(got, "Glucose Data Assistant Configuration") {
		t.Errorf("Unexpected config output: %q", got)
	}
	if !strings.Contains(got, filepath.Join(dir, "config", "config.yaml")) {
		t.Errorf("Expected config path in output: %q", got)
	}
}
