package policy

import (
	"sort"
	"strings"
)

// Allowlist is an immutable set of hostnames authorized as redirect targets.
//
// Entries are matched by exact string comparison. The set is built once at
// construction and never mutated, so it is safe for concurrent readers.
type Allowlist struct {
	hosts map[string]struct{}
}

// NewAllowlist builds an Allowlist from the given hostnames.
//
// Surrounding whitespace is trimmed and empty entries are skipped. No other
// normalization is applied: entries are stored and matched exactly as given,
// including case and any trailing dot.
func NewAllowlist(hosts []string) *Allowlist {
	set := make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		h := strings.TrimSpace(host)
		if h == "" {
			continue
		}
		set[h] = struct{}{}
	}
	return &Allowlist{hosts: set}
}

// Contains reports whether host is an exact member of the allowlist.
func (a *Allowlist) Contains(host string) bool {
	if a == nil || host == "" {
		return false
	}
	_, ok := a.hosts[host]
	return ok
}

// Len returns the number of entries.
func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.hosts)
}

// Hosts returns the entries as a sorted copy. Mutating the returned slice
// does not affect the allowlist.
func (a *Allowlist) Hosts() []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.hosts))
	for h := range a.hosts {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
