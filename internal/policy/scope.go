package policy

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Scope reports whether a URL belongs to the site being crawled.
type Scope struct {
	// host is the seed host including a non-default port.
	host string

	// registrable is the eTLD+1 of the seed host, empty for IPs and
	// single-label hosts such as localhost.
	registrable string

	// sameDomain selects the exact-host rule.
	sameDomain bool
}

// NewScope creates a scope rooted at the given seed URL.
//
// With sameDomain set, only URLs on exactly the seed host are in scope.
// Otherwise any host under the same registrable domain is in scope, so a
// crawl of www.example.com also follows shop.example.com but never
// example.org.
func NewScope(seedURL string, sameDomain bool) (*Scope, error) {
	u, err := url.Parse(seedURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartURL, seedURL)
	}

	s := &Scope{
		host:       strings.ToLower(stripDefaultPort(strings.ToLower(u.Scheme), u.Host)),
		sameDomain: sameDomain,
	}
	s.registrable = registrableDomain(u.Hostname())
	return s, nil
}

// Host returns the seed host.
func (s *Scope) Host() string {
	return s.host
}

// Contains reports whether rawURL is in scope.
func (s *Scope) Contains(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(stripDefaultPort(strings.ToLower(u.Scheme), u.Host))

	if host == s.host {
		return true
	}
	if s.sameDomain || s.registrable == "" {
		return false
	}

	return registrableDomain(u.Hostname()) == s.registrable
}

// registrableDomain returns the eTLD+1 of hostname, or "" for IP addresses
// and hosts without a public suffix.
func registrableDomain(hostname string) string {
	hostname = strings.ToLower(hostname)
	if net.ParseIP(hostname) != nil {
		return ""
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		return ""
	}
	return etld1
}
