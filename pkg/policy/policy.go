package policy

import "net/url"

// Verdict is the two-valued outcome of classifying a candidate destination.
type Verdict int

const (
	// Deny means the destination could not be proven safe.
	Deny Verdict = iota

	// Allow means the destination's hostname is an exact allowlist member.
	Allow
)

// String returns "allow" or "deny".
func (v Verdict) String() string {
	if v == Allow {
		return "allow"
	}
	return "deny"
}

// Reason records why a candidate was denied. Reasons are internal: callers
// facing untrusted clients must collapse all deny causes into one generic
// response so the allowlist cannot be enumerated.
type Reason int

const (
	// ReasonNone accompanies an Allow verdict.
	ReasonNone Reason = iota

	// ReasonMissing means the candidate was absent or empty.
	ReasonMissing

	// ReasonParse means the candidate did not parse as an absolute URL
	// with a host (malformed syntax, missing scheme, relative reference).
	ReasonParse

	// ReasonHost means the candidate parsed but its hostname is not an
	// exact member of the allowlist.
	ReasonHost
)

// String returns a short machine-friendly label for logs and metrics.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMissing:
		return "missing"
	case ReasonParse:
		return "parse"
	case ReasonHost:
		return "host"
	default:
		return "unknown"
	}
}

// Decision is the result of a single classification.
type Decision struct {
	// Verdict is Allow or Deny.
	Verdict Verdict

	// Reason explains a Deny; ReasonNone for Allow.
	Reason Reason

	// Host is the hostname the parser extracted, or "" when parsing
	// failed or was skipped.
	Host string
}

// Allowed reports whether the verdict is Allow.
func (d Decision) Allowed() bool {
	return d.Verdict == Allow
}

// Validator classifies candidate destinations against an Allowlist.
//
// A Validator is pure: Classify performs no I/O, no logging, and no
// mutation, so one instance may serve concurrent requests without locking.
type Validator struct {
	allowlist *Allowlist
	enforce   bool
}

// NewValidator creates a Validator over the given allowlist.
//
// When enforce is false the allowlist check is skipped and any non-empty
// candidate is allowed verbatim. That mode reproduces the unguarded
// open-redirect behavior so both behaviors can be exercised against the
// same harness; it must never be enabled outside demonstrations.
func NewValidator(allowlist *Allowlist, enforce bool) *Validator {
	return &Validator{allowlist: allowlist, enforce: enforce}
}

// Enforcing reports whether the allowlist check is active.
func (v *Validator) Enforcing() bool {
	return v.enforce
}

// Allowlist returns the allowlist the validator was built with.
func (v *Validator) Allowlist() *Allowlist {
	return v.allowlist
}

// Classify decides whether candidate is safe to redirect to.
//
// The procedure is a single linear decision: an empty candidate denies
// without invoking the parser; a candidate that does not parse as an
// absolute URL with a host denies; otherwise the parsed hostname must be an
// exact allowlist member. Parse failure is an expected classification
// input, not an error condition, so Classify never returns an error.
func (v *Validator) Classify(candidate string) Decision {
	if candidate == "" {
		return Decision{Verdict: Deny, Reason: ReasonMissing}
	}

	if !v.enforce {
		return Decision{Verdict: Allow}
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Decision{Verdict: Deny, Reason: ReasonParse}
	}

	host := u.Hostname()
	if !v.allowlist.Contains(host) {
		return Decision{Verdict: Deny, Reason: ReasonHost, Host: host}
	}

	return Decision{Verdict: Allow, Host: host}
}
