package policy

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	// defaultRobotsTimeout bounds the robots.txt request of each host.
	defaultRobotsTimeout = 10 * time.Second

	// maxRobotsSize is the part of a robots.txt that is read. The rest is
	// ignored.
	maxRobotsSize = 512 * 1024
)

// Robots answers robots.txt questions for the hosts of one crawl.
// Each host's robots.txt is fetched at most once and cached.
//
// A host whose robots.txt cannot be fetched, answers with anything other
// than 200, or does not parse is treated as allowing everything.
type Robots struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// RobotsOption configures Robots.
type RobotsOption func(*Robots)

// WithRobotsClient sets the HTTP client used to fetch robots.txt.
func WithRobotsClient(client *http.Client) RobotsOption {
	return func(r *Robots) {
		r.client = client
	}
}

// WithRobotsLogger sets the logger.
func WithRobotsLogger(logger *slog.Logger) RobotsOption {
	return func(r *Robots) {
		r.logger = logger
	}
}

// NewRobots creates a robots.txt checker that identifies as userAgent.
func NewRobots(userAgent string, opts ...RobotsOption) *Robots {
	r := &Robots{
		client:    &http.Client{Timeout: defaultRobotsTimeout},
		userAgent: userAgent,
		logger:    slog.Default(),
		cache:     make(map[string]*robotstxt.RobotsData),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allowed reports whether robots.txt permits fetching rawURL.
func (r *Robots) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	data := r.load(ctx, u)
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, r.userAgent)
}

// load returns the cached robots data of the URL's host, fetching it on
// first use. A nil result means "allow everything".
func (r *Robots) load(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	origin := u.Scheme + "://" + u.Host

	r.mu.Lock()
	data, ok := r.cache[origin]
	r.mu.Unlock()
	if ok {
		return data
	}

	data = r.fetch(ctx, origin)

	r.mu.Lock()
	r.cache[origin] = data
	r.mu.Unlock()
	return data
}

// fetch downloads and parses robots.txt of origin.
func (r *Robots) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	robotsURL := origin + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, proceeding", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Debug("robots.txt not found, proceeding", "url", robotsURL, "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		r.logger.Debug("robots.txt unreadable, proceeding", "url", robotsURL, "error", err)
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		r.logger.Debug("robots.txt unparsable, proceeding", "url", robotsURL, "error", err)
		return nil
	}
	return data
}
