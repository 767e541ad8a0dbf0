package server

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Config holds configuration for the redirect gateway server.
type Config struct {
	// Address is the address to listen on (e.g., ":8080" or "localhost:3000").
	// Default: ":8080".
	Address string

	// Redirect policy

	// AllowedHosts lists the hostnames authorized as redirect targets.
	// Entries are matched exactly: no case folding, no trailing-dot
	// stripping, no punycode normalization.
	// Default: empty (every destination is denied).
	AllowedHosts []string

	// EnforceAllowlist enables the allowlist check. When false, any
	// non-empty destination is redirected verbatim, reproducing the
	// unguarded open-redirect behavior for demonstrations.
	// SECURITY: never disable outside a test harness.
	// Default: true.
	EnforceAllowlist bool

	// RedirectStatus is the HTTP status for allowed redirects.
	// Must be a 3xx status.
	// Default: 302 (Found).
	RedirectStatus int

	// Timeouts

	// ReadHeaderTimeout is the maximum time to read request headers.
	// Default: 5 seconds.
	ReadHeaderTimeout time.Duration

	// ReadTimeout is the maximum time to read the full request.
	// Default: 10 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to write the response.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 2 minutes.
	IdleTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Audit stream

	// CheckOrigin validates the request origin of audit stream upgrades.
	// Default: same-origin only.
	CheckOrigin func(r *http.Request) bool

	// AuditQueueSize is the per-subscriber event queue length. Events to a
	// subscriber whose queue is full are dropped; the redirect path never
	// blocks on the audit stream.
	// Default: 256.
	AuditQueueSize int

	// Networking

	// TrustedProxies lists trusted reverse proxy IPs or CIDRs for
	// Forwarded and X-Forwarded-* headers. Client IPs recorded in audit
	// events honor these headers only when the peer is trusted.
	// Default: nil (don't trust proxy headers).
	TrustedProxies []string

	// DebugMode enables verbose logging, including denied candidates.
	// Default: false.
	DebugMode bool
}

// DefaultConfig returns a Config with sensible defaults.
// SECURITY: the allowlist check is enabled and the allowlist is empty, so a
// default server denies every destination until hosts are configured.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":8080",
		AllowedHosts:      nil,
		EnforceAllowlist:  true,
		RedirectStatus:    http.StatusFound,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
		CheckOrigin:       SameOriginCheck,
		AuditQueueSize:    256,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if c.AllowedHosts != nil {
		clone.AllowedHosts = make([]string, len(c.AllowedHosts))
		copy(clone.AllowedHosts, c.AllowedHosts)
	}
	if c.TrustedProxies != nil {
		clone.TrustedProxies = make([]string, len(c.TrustedProxies))
		copy(clone.TrustedProxies, c.TrustedProxies)
	}
	return &clone
}

// Validate checks the configuration for hard errors.
func (c *Config) Validate() error {
	if c.RedirectStatus < 300 || c.RedirectStatus > 399 {
		return fmt.Errorf("%w: %d", ErrInvalidRedirectStatus, c.RedirectStatus)
	}
	if c.AuditQueueSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAuditQueue, c.AuditQueueSize)
	}
	return nil
}

// Warnings returns non-fatal configuration concerns worth logging at startup.
func (c *Config) Warnings() []string {
	var warnings []string
	if !c.EnforceAllowlist {
		warnings = append(warnings, "allowlist enforcement is DISABLED; every destination will be redirected")
	}
	if c.EnforceAllowlist && len(c.AllowedHosts) == 0 {
		warnings = append(warnings, "allowlist is empty; every destination will be denied")
	}
	return warnings
}

// WithAddress sets the listen address and returns the config for chaining.
func (c *Config) WithAddress(addr string) *Config {
	c.Address = addr
	return c
}

// WithAllowedHosts sets the allowlist and returns the config for chaining.
func (c *Config) WithAllowedHosts(hosts []string) *Config {
	c.AllowedHosts = hosts
	return c
}

// WithEnforcement toggles the allowlist check and returns the config for chaining.
func (c *Config) WithEnforcement(enforce bool) *Config {
	c.EnforceAllowlist = enforce
	return c
}

// WithRedirectStatus sets the redirect status and returns the config for chaining.
func (c *Config) WithRedirectStatus(status int) *Config {
	c.RedirectStatus = status
	return c
}

// WithTrustedProxies sets the trusted proxies and returns the config for chaining.
func (c *Config) WithTrustedProxies(proxies []string) *Config {
	c.TrustedProxies = proxies
	return c
}

// WithDebug toggles debug mode and returns the config for chaining.
func (c *Config) WithDebug(debug bool) *Config {
	c.DebugMode = debug
	return c
}

// SameOriginCheck validates that the request origin matches the host.
// This is the secure default for CheckOrigin on audit stream upgrades.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// No Origin header (e.g., same-origin request or curl).
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := r.Host
	if host == "" {
		return false
	}

	return originURL.Host == host
}
