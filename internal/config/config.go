package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "linkgate.json"

	// DefaultAddress is the default listen address.
	DefaultAddress = ":8080"

	// DefaultRedirectStatus is the default HTTP status for redirects.
	DefaultRedirectStatus = 302
)

// Config represents the complete linkgate.json configuration.
type Config struct {
	// Address is the listen address.
	Address string `json:"address,omitempty"`

	// AllowedHosts lists inline allowlist entries.
	AllowedHosts []string `json:"allowedHosts,omitempty"`

	// AllowlistFile is a local file with one hostname per line.
	// Blank lines and lines starting with '#' are ignored.
	AllowlistFile string `json:"allowlistFile,omitempty"`

	// AllowlistS3 is an s3://bucket/key URI holding an allowlist in the
	// same line format as AllowlistFile.
	AllowlistS3 string `json:"allowlistS3,omitempty"`

	// S3Region is the region of the AllowlistS3 bucket.
	S3Region string `json:"s3Region,omitempty"`

	// Enforce toggles the allowlist check. Absent means enabled.
	Enforce *bool `json:"enforce,omitempty"`

	// RedirectStatus is the HTTP status for allowed redirects.
	RedirectStatus int `json:"redirectStatus,omitempty"`

	// TrustedProxies lists reverse proxy IPs or CIDRs whose forwarded
	// headers are trusted.
	TrustedProxies []string `json:"trustedProxies,omitempty"`

	// Debug enables verbose logging.
	Debug bool `json:"debug,omitempty"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// Default returns a Config with built-in defaults.
func Default() *Config {
	return &Config{
		Address:        DefaultAddress,
		RedirectStatus: DefaultRedirectStatus,
	}
}

// Load reads linkgate.json from the current directory when it exists,
// falling back to defaults, then applies environment overrides.
func Load() (*Config, error) {
	return LoadFrom(ConfigFileName)
}

// LoadFrom reads the configuration from path. A missing file is not an
// error; defaults and environment overrides still apply.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file: defaults plus environment.
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.configPath = path
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from LINKGATE_* environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("LINKGATE_ADDRESS"); v != "" {
		c.Address = v
	}
	if v := os.Getenv("LINKGATE_ALLOWED_HOSTS"); v != "" {
		c.AllowedHosts = splitHosts(v)
	}
	if v := os.Getenv("LINKGATE_ALLOWLIST_FILE"); v != "" {
		c.AllowlistFile = v
	}
	if v := os.Getenv("LINKGATE_ALLOWLIST_S3"); v != "" {
		c.AllowlistS3 = v
	}
	if v := os.Getenv("LINKGATE_S3_REGION"); v != "" {
		c.S3Region = v
	}
	if v := os.Getenv("LINKGATE_ENFORCE"); v != "" {
		enforce, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: LINKGATE_ENFORCE: %w", err)
		}
		c.Enforce = &enforce
	}
	if v := os.Getenv("LINKGATE_REDIRECT_STATUS"); v != "" {
		status, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: LINKGATE_REDIRECT_STATUS: %w", err)
		}
		c.RedirectStatus = status
	}
	if v := os.Getenv("LINKGATE_TRUSTED_PROXIES"); v != "" {
		c.TrustedProxies = splitHosts(v)
	}
	return nil
}

// Validate checks the configuration for hard errors.
func (c *Config) Validate() error {
	if c.RedirectStatus < 300 || c.RedirectStatus > 399 {
		return fmt.Errorf("config: redirectStatus %d is not a 3xx status", c.RedirectStatus)
	}
	if c.AllowlistS3 != "" {
		if _, _, err := ParseS3URI(c.AllowlistS3); err != nil {
			return err
		}
	}
	return nil
}

// Enforced reports whether the allowlist check is enabled. Defaults to true
// when the field is absent.
func (c *Config) Enforced() bool {
	return c.Enforce == nil || *c.Enforce
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.configPath
}

// splitHosts splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitHosts(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
