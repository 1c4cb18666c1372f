package certrotate

import "strings"

// MatchHostname reports whether hostname is covered by one of domains.
// A wildcard entry "*.base" covers base itself and exactly one label
// below it, never deeper subdomains.
func MatchHostname(hostname string, domains []string) bool {
	for _, domain := range domains {
		base, wildcard := strings.CutPrefix(domain, "*.")
		if !wildcard {
			if hostname == domain {
				return true
			}
			continue
		}
		if hostname == base {
			return true
		}
		if prefix, ok := strings.CutSuffix(hostname, "."+base); ok && prefix != "" && !strings.Contains(prefix, ".") {
			return true
		}
	}
	return false
}
