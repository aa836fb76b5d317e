package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// maxRedirects stops redirect loops while still following normal redirects.
const maxRedirects = 10

// ClientConfig configures the shared HTTP client.
type ClientConfig struct {
	// Timeout is the overall deadline of one request including the body.
	Timeout time.Duration

	// ProxyAddress routes every connection through a SOCKS5 proxy when set.
	// Format: "host:port".
	ProxyAddress string

	// Cookie is sent with every request, e.g. "session=abc; lang=en".
	Cookie string

	// Headers are extra request headers sent with every request.
	Headers map[string]string
}

// NewHTTPClient creates the HTTP client used for pages, robots.txt and media.
//
// Design decisions:
//   - A cookie jar keeps sessions that the site sets while we crawl
//   - Redirects are limited to prevent loops
//   - Cookie and headers are injected by a RoundTripper so redirects carry
//     them too
func NewHTTPClient(cfg ClientConfig) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
	}

	if cfg.ProxyAddress != "" {
		if !isValidProxyAddress(cfg.ProxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", cfg.ProxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	if cfg.Cookie != "" || len(cfg.Headers) > 0 {
		client.Transport = &headerInjectingTransport{
			base:    transport,
			cookie:  cfg.Cookie,
			headers: cfg.Headers,
		}
	}

	return client, nil
}

// isValidProxyAddress checks for "host:port" with a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// headerInjectingTransport adds a cookie and fixed headers to every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
