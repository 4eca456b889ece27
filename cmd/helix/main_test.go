package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer
	opts, err := parseFlags([]string{"-config", "helix.yaml", "-address", ":9999", "-version"}, &out)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != "helix.yaml" || opts.address != ":9999" || !opts.showVersion {
		t.Errorf("unexpected options: %+v", opts)
	}

	if _, err := parseFlags([]string{"-unknown"}, &out); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"-version"}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "helix version ") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRun_MissingConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config error", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	// No authenticator and anonymous access not allowed.
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), nil, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "creating server") {
		t.Errorf("run() error = %v, want creating server error", err)
	}
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helix.yaml")
	content := "server:\n  pre_shutdown_delay: 1ms\nlog:\n  format: text\nauth:\n  allow_anonymous: true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	if err := run(ctx, []string{"-config", path, "-address", "127.0.0.1:0"}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(stderr.String(), "helix listening") {
		t.Errorf("expected listening log, got %q", stderr.String())
	}
}

func TestLoadConfig_AddressOverride(t *testing.T) {
	cfg, err := loadConfig(serverOptions{address: ":7000"})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Server.Address != ":7000" {
		t.Errorf("Address = %q", cfg.Server.Address)
	}
}
