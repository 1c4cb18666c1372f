package certrotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchHostname(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		domains  []string
		want     bool
	}{
		{"exact", "www.example.com", []string{"www.example.com"}, true},
		{"exact mismatch", "www.example.com", []string{"api.example.com"}, false},
		{"wildcard one label", "api.example.com", []string{"*.example.com"}, true},
		{"wildcard two labels", "a.b.example.com", []string{"*.example.com"}, false},
		{"wildcard base", "example.com", []string{"*.example.com"}, true},
		{"wildcard suffix without dot", "badexample.com", []string{"*.example.com"}, false},
		{"wildcard other zone", "api.example.org", []string{"*.example.com"}, false},
		{"empty prefix", ".example.com", []string{"*.example.com"}, false},
		{"second entry", "other.org", []string{"*.example.com", "other.org"}, true},
		{"empty set", "example.com", nil, false},
		{"empty hostname", "", []string{"*.example.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchHostname(tt.hostname, tt.domains))
		})
	}
}

func TestMatchHostname_OrderIndependent(t *testing.T) {
	domains := []string{"example.com", "*.example.com", "static.example.net"}
	reversed := []string{"static.example.net", "*.example.com", "example.com"}

	for _, host := range []string{"example.com", "cdn.example.com", "static.example.net", "x.static.example.net", "a.b.example.com"} {
		assert.Equal(t, MatchHostname(host, domains), MatchHostname(host, reversed), host)
	}
}
