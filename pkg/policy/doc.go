// Package policy implements the redirect-target validation policy.
//
// The policy decides whether a caller-supplied destination URL is safe to
// redirect to. The decision is made by a Validator, a pure function over an
// immutable Allowlist of authorized hostnames:
//
//	allowlist := policy.NewAllowlist([]string{"trusted.com", "example.com"})
//	validator := policy.NewValidator(allowlist, true)
//
//	d := validator.Classify("http://trusted.com/page")
//	if d.Verdict == policy.Allow {
//	    // safe to redirect
//	}
//
// # Fail-closed
//
// Every input terminates in a verdict. Missing input, malformed syntax,
// relative references, and unlisted hostnames all classify as Deny; nothing
// panics and no error escapes to the caller. A destination is never trusted
// merely because it parses.
//
// # Matching semantics
//
// Hostname comparison is exact string membership against the allowlist, on
// the hostname exactly as delivered by the URL parser. Case folding,
// trailing-dot stripping, and punycode normalization are deliberately not
// performed; "TRUSTED.COM" does not match an allowlist entry "trusted.com".
// This is a documented limitation of the policy, kept so that the allowlist
// remains the single, auditable source of truth.
//
// # Concurrency
//
// The Allowlist is read-only after construction and the Validator holds no
// mutable state, so a single Validator may be shared by any number of
// request-handling goroutines without locking.
package policy
