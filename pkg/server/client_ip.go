package server

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// clientIP resolves the client address recorded in logs and audit events.
// Forwarded headers are honored only when the direct peer is a trusted proxy.
func (s *Server) clientIP(r *http.Request) string {
	ip := resolveClientIP(r, s.trustedProxies)
	if ip == nil {
		return ""
	}
	return ip.String()
}

func resolveClientIP(r *http.Request, trusted *proxyMatcher) net.IP {
	peer := peerIP(r)
	if peer == nil {
		return nil
	}
	if !trusted.IsTrusted(peer) {
		return peer
	}

	chain := forwardedChain(r.Header.Get("Forwarded"))
	if len(chain) == 0 {
		chain = xForwardedForChain(r.Header.Get("X-Forwarded-For"))
	}
	if len(chain) == 0 {
		return peer
	}

	// Walk right to left: the first hop not operated by us is the client.
	for i := len(chain) - 1; i >= 0; i-- {
		if !trusted.IsTrusted(chain[i]) {
			return chain[i]
		}
	}
	return chain[0]
}

// peerIP extracts the IP of the direct TCP peer.
func peerIP(r *http.Request) net.IP {
	if r == nil {
		return nil
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return nil
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return parseIPValue(addr)
}

// forwardedChain extracts the for= hops of an RFC 7239 Forwarded header.
func forwardedChain(header string) []net.IP {
	if header == "" {
		return nil
	}

	var out []net.IP
	for _, elem := range strings.Split(header, ",") {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			continue
		}
		for _, param := range strings.Split(elem, ";") {
			kv := strings.SplitN(strings.TrimSpace(param), "=", 2)
			if len(kv) != 2 || !strings.EqualFold(strings.TrimSpace(kv[0]), "for") {
				continue
			}
			if ip := parseIPValue(strings.TrimSpace(kv[1])); ip != nil {
				out = append(out, ip)
			}
		}
	}
	return out
}

// xForwardedForChain extracts the hops of an X-Forwarded-For header.
func xForwardedForChain(header string) []net.IP {
	if header == "" {
		return nil
	}

	var out []net.IP
	for _, part := range strings.Split(header, ",") {
		if ip := parseIPValue(part); ip != nil {
			out = append(out, ip)
		}
	}
	return out
}

// parseIPValue parses a single forwarded-address value, tolerating quoting,
// ports, brackets, and IPv6 zones.
func parseIPValue(value string) net.IP {
	value = strings.Trim(strings.TrimSpace(value), "\"")
	if value == "" || strings.EqualFold(value, "unknown") {
		return nil
	}

	host := value
	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end != -1 {
			host = host[1:end]
		}
	} else if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if zone := strings.Index(host, "%"); zone != -1 {
		host = host[:zone]
	}
	return net.ParseIP(host)
}

// proxyMatcher answers whether an IP belongs to a configured trusted proxy.
type proxyMatcher struct {
	ips  map[string]struct{}
	nets []*net.IPNet
}

// newProxyMatcher builds a matcher from IP and CIDR entries. Invalid entries
// are logged and skipped; an empty result disables proxy trust entirely.
func newProxyMatcher(entries []string, logger *slog.Logger) *proxyMatcher {
	if len(entries) == 0 {
		return nil
	}

	ips := make(map[string]struct{})
	var nets []*net.IPNet

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				if logger != nil {
					logger.Warn("invalid trusted proxy CIDR", "entry", entry, "error", err)
				}
				continue
			}
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			if logger != nil {
				logger.Warn("invalid trusted proxy IP", "entry", entry)
			}
			continue
		}
		ips[ip.String()] = struct{}{}
	}

	if len(ips) == 0 && len(nets) == 0 {
		return nil
	}
	return &proxyMatcher{ips: ips, nets: nets}
}

// IsTrusted reports whether ip is a configured trusted proxy.
func (m *proxyMatcher) IsTrusted(ip net.IP) bool {
	if m == nil || ip == nil {
		return false
	}
	if _, ok := m.ips[ip.String()]; ok {
		return true
	}
	for _, network := range m.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
