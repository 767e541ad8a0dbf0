package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Address != DefaultAddress {
		t.Errorf("Address=%q, want %q", cfg.Address, DefaultAddress)
	}
	if cfg.RedirectStatus != DefaultRedirectStatus {
		t.Errorf("RedirectStatus=%d, want %d", cfg.RedirectStatus, DefaultRedirectStatus)
	}
	if !cfg.Enforced() {
		t.Error("Enforced() should default to true")
	}
	if cfg.Path() != "" {
		t.Errorf("Path()=%q, want empty for defaults", cfg.Path())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `{
		"address": ":3000",
		"allowedHosts": ["trusted.com", "example.com"],
		"enforce": false,
		"redirectStatus": 307,
		"trustedProxies": ["10.0.0.0/8"]
	}`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Address != ":3000" {
		t.Errorf("Address=%q, want %q", cfg.Address, ":3000")
	}
	if !reflect.DeepEqual(cfg.AllowedHosts, []string{"trusted.com", "example.com"}) {
		t.Errorf("AllowedHosts=%v", cfg.AllowedHosts)
	}
	if cfg.Enforced() {
		t.Error("Enforced() should be false")
	}
	if cfg.RedirectStatus != 307 {
		t.Errorf("RedirectStatus=%d, want 307", cfg.RedirectStatus)
	}
	if cfg.Path() != path {
		t.Errorf("Path()=%q, want %q", cfg.Path(), path)
	}
}

func TestLoadFromMalformedFile(t *testing.T) {
	path := writeConfig(t, `{not json`)

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"address": ":3000", "allowedHosts": ["old.com"]}`)

	t.Setenv("LINKGATE_ADDRESS", ":4000")
	t.Setenv("LINKGATE_ALLOWED_HOSTS", "trusted.com, example.com ,")
	t.Setenv("LINKGATE_ENFORCE", "false")
	t.Setenv("LINKGATE_REDIRECT_STATUS", "308")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Address != ":4000" {
		t.Errorf("Address=%q, want %q", cfg.Address, ":4000")
	}
	if !reflect.DeepEqual(cfg.AllowedHosts, []string{"trusted.com", "example.com"}) {
		t.Errorf("AllowedHosts=%v, want env value", cfg.AllowedHosts)
	}
	if cfg.Enforced() {
		t.Error("Enforced() should be false via env")
	}
	if cfg.RedirectStatus != 308 {
		t.Errorf("RedirectStatus=%d, want 308", cfg.RedirectStatus)
	}
}

func TestEnvOverrideInvalidValues(t *testing.T) {
	t.Setenv("LINKGATE_ENFORCE", "not-a-bool")
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("invalid LINKGATE_ENFORCE should fail")
	}
	os.Unsetenv("LINKGATE_ENFORCE")

	t.Setenv("LINKGATE_REDIRECT_STATUS", "many")
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("invalid LINKGATE_REDIRECT_STATUS should fail")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.RedirectStatus = 200
	if err := cfg.Validate(); err == nil {
		t.Error("non-3xx redirectStatus should fail validation")
	}

	cfg = Default()
	cfg.AllowlistS3 = "https://not-s3"
	if err := cfg.Validate(); err == nil {
		t.Error("non-s3 URI should fail validation")
	}
}
