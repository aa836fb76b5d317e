package policy

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrInvalidStartURL is returned when the seed URL cannot be crawled.
// It is the only fatal policy error.
var ErrInvalidStartURL = errors.New("invalid start URL")

// NormalizeSeed turns user input such as "example.com" into a crawlable
// absolute URL. A missing scheme is completed with https://.
func NormalizeSeed(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidStartURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	canonical, ok := Canonicalize(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStartURL, raw)
	}
	return canonical, nil
}

// Canonicalize reduces an absolute http(s) URL to the form used for
// deduplication. It reports false for anything that is not crawlable.
//
// The canonical form has:
//   - lowercase scheme and host
//   - no default port
//   - no fragment and no query
//   - "/" instead of an empty path
func Canonicalize(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Hostname() == "" {
		return "", false
	}

	u.Host = strings.ToLower(stripDefaultPort(u.Scheme, u.Host))
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = ""
	u.ForceQuery = false
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), true
}

// Resolve makes href absolute against base. It returns "" for references
// that never point at a fetchable resource.
func Resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:", "about:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// stripDefaultPort removes :80 from http and :443 from https hosts.
func stripDefaultPort(scheme, host string) string {
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		if strings.Contains(h, ":") {
			return "[" + h + "]"
		}
		return h
	}
	return host
}
