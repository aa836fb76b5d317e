package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/brandscan/internal/fetcher"
	"github.com/nao1215/brandscan/internal/model"
	"github.com/nao1215/brandscan/internal/policy"
)

// DefaultUserAgent identifies the crawler to servers and robots.txt.
const DefaultUserAgent = "brandscan/1.0 (+https://github.com/nao1215/brandscan)"

// PageFetcher performs one GET request.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Response, error)
}

// RobotsChecker answers robots.txt questions.
type RobotsChecker interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// CrawlProgress is reported after every page attempt.
type CrawlProgress struct {
	// URL is the page just attempted.
	URL string

	// PagesVisited is the number of pages fetched so far.
	PagesVisited int

	// PagesFailed is the number of failed attempts so far.
	PagesFailed int

	// MaxPages is the page budget of the crawl.
	MaxPages int

	// Queued is the number of URLs waiting in the frontier.
	Queued int
}

// Spider crawls one website breadth-first.
//
// Design decision: We keep the crawl single-owner and sequential because:
//  1. Politeness pacing is a fixed interval between page fetches
//  2. One goroutine owning queue, seen set and counters needs no locks
//  3. The visit order is deterministic, which keeps results reproducible
//
// A Spider holds no crawl state between calls, so one instance can run
// several crawls one after another or concurrently.
type Spider struct {
	client      *http.Client
	fetcher     PageFetcher
	robots      RobotsChecker
	logger      *slog.Logger
	userAgent   string
	timeout     time.Duration
	maxBodySize int64

	// ignorePatterns are URL path patterns to skip during crawling.
	// Patterns use glob syntax (e.g., "/admin/*", "*.pdf").
	ignorePatterns []string

	// followPatterns are URL path patterns to follow during crawling.
	// If set, only URLs matching these patterns are crawled.
	followPatterns []string

	parserOpts []ParserOption
	progress   func(CrawlProgress)
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithSpiderUserAgent sets the User-Agent used for pages and robots.txt.
func WithSpiderUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithSpiderTimeout sets the per-page request timeout.
func WithSpiderTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.timeout = d
	}
}

// WithSpiderMaxBodySize sets the maximum response body size.
func WithSpiderMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithFetcher replaces the page fetcher.
func WithFetcher(f PageFetcher) SpiderOption {
	return func(s *Spider) {
		s.fetcher = f
	}
}

// WithRobots replaces the robots.txt checker.
func WithRobots(r RobotsChecker) SpiderOption {
	return func(s *Spider) {
		s.robots = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithParserOptions passes options to the parser of every page.
func WithParserOptions(opts ...ParserOption) SpiderOption {
	return func(s *Spider) {
		s.parserOpts = append(s.parserOpts, opts...)
	}
}

// WithProgress registers a callback invoked after each page attempt.
// It runs on the crawl goroutine and must return quickly.
func WithProgress(fn func(CrawlProgress)) SpiderOption {
	return func(s *Spider) {
		s.progress = fn
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts crawling to URL paths matching at least one
// pattern. The start page is always crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// NewSpider creates a Spider that fetches pages and robots.txt with client.
// A nil client gets a plain client with the fetcher's default timeout.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		logger:      slog.Default(),
		userAgent:   DefaultUserAgent,
		timeout:     fetcher.DefaultTimeout,
		maxBodySize: fetcher.DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		s.client = &http.Client{Timeout: s.timeout}
	}
	if s.fetcher == nil {
		s.fetcher = fetcher.New(s.client,
			fetcher.WithUserAgent(s.userAgent),
			fetcher.WithTimeout(s.timeout),
			fetcher.WithMaxBodySize(s.maxBodySize),
			fetcher.WithHTMLDecoding(),
		)
	}
	return s
}

// Crawl visits the site described by job and returns every page it fetched.
//
// Per-page failures are counted and skipped. Crawl returns an error only
// when the job or start URL is invalid, when the start page cannot be
// fetched (ErrSeedUnreachable), or when ctx is done. In the last two cases
// the partial result is returned too.
func (s *Spider) Crawl(ctx context.Context, job model.CrawlJob) (*model.CrawlResult, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	start, err := policy.NormalizeSeed(job.StartURL)
	if err != nil {
		return nil, err
	}
	seedScope, err := policy.NewScope(start, job.SameDomain)
	if err != nil {
		return nil, err
	}
	// A seed that redirects to another host adds that host's scope.
	scopes := []*policy.Scope{seedScope}
	inScope := func(link string) bool {
		return slices.ContainsFunc(scopes, func(sc *policy.Scope) bool {
			return sc.Contains(link)
		})
	}

	robots := s.robots
	if robots == nil {
		// Each crawl gets its own robots.txt cache.
		robots = policy.NewRobots(s.userAgent,
			policy.WithRobotsClient(s.client),
			policy.WithRobotsLogger(s.logger),
		)
	}

	var limiter *rate.Limiter
	if job.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(job.Delay), 1)
	}

	parserOpts := append([]ParserOption{WithScope(inScope)}, s.parserOpts...)

	result := model.NewCrawlResult(start)
	finish := func(err error) (*model.CrawlResult, error) {
		result.FinishedAt = time.Now()
		return result, err
	}

	queue := []model.FrontierEntry{{URL: start, Depth: 0}}
	seen := map[string]struct{}{start: {}}
	result.PagesDiscovered = 1

	s.logger.Debug("crawl started", "url", start, "max_depth", job.MaxDepth, "max_pages", job.MaxPages)

	for len(queue) > 0 && result.PagesVisited < job.MaxPages {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		entry := queue[0]
		queue = queue[1:]

		if entry.Depth > job.MaxDepth {
			continue
		}
		if _, ok := result.Pages[entry.URL]; ok {
			continue
		}
		if !inScope(entry.URL) {
			continue
		}

		if !robots.Allowed(ctx, entry.URL) {
			result.RobotsDisallowed++
			if job.RobotsStance == model.RobotsRespect {
				s.logger.Info("skipping URL disallowed by robots.txt", "url", entry.URL)
				continue
			}
			s.logger.Warn("robots.txt disallows URL, crawling anyway", "url", entry.URL)
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return finish(ctxErr)
				}
				return finish(context.DeadlineExceeded)
			}
		}

		resp, err := s.fetchPage(ctx, entry.URL)
		if err == nil && entry.Depth == 0 {
			if redirected := redirectScope(resp.URL, inScope, job.SameDomain); redirected != nil {
				s.logger.Debug("start URL redirected to another host", "url", start, "final_url", resp.URL)
				scopes = append(scopes, redirected)
			}
		}
		var (
			page     *model.PageRecord
			finalURL string
		)
		if err == nil {
			page, finalURL, err = s.parsePage(entry, resp, parserOpts)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish(ctxErr)
			}
			result.PagesFailed++
			s.logger.Debug("page failed", "url", entry.URL, "error", err)
			s.report(result, entry.URL, job.MaxPages, len(queue))
			if entry.Depth == 0 {
				return finish(fmt.Errorf("%w: %w", ErrSeedUnreachable, err))
			}
			continue
		}

		result.AddPage(page)
		if finalURL != "" {
			// A redirect target is the same page; never fetch it again.
			seen[finalURL] = struct{}{}
		}
		s.logger.Debug("page crawled", "url", page.URL, "depth", page.Depth,
			"links", len(page.Links), "media", len(page.MediaURLs))

		if entry.Depth < job.MaxDepth {
			for _, link := range page.Links {
				if _, ok := seen[link]; ok {
					continue
				}
				if !inScope(link) || !s.shouldCrawl(link) {
					continue
				}
				seen[link] = struct{}{}
				queue = append(queue, model.FrontierEntry{URL: link, Depth: entry.Depth + 1})
				result.PagesDiscovered++
			}
		}

		s.report(result, entry.URL, job.MaxPages, len(queue))
	}

	s.logger.Debug("crawl finished", "url", start, "pages", result.PagesVisited, "failed", result.PagesFailed)
	return finish(nil)
}

// fetchPage fetches one page and rejects non-HTML responses.
func (s *Spider) fetchPage(ctx context.Context, rawURL string) (*fetcher.Response, error) {
	resp, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !resp.IsHTML() {
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, resp.MediaType())
	}
	return resp, nil
}

// redirectScope returns a scope rooted at finalURL when it lies outside
// the current scope, otherwise nil.
func redirectScope(finalURL string, inScope func(string) bool, sameDomain bool) *policy.Scope {
	canonical, ok := policy.Canonicalize(finalURL)
	if !ok || inScope(canonical) {
		return nil
	}
	scope, err := policy.NewScope(canonical, sameDomain)
	if err != nil {
		return nil
	}
	return scope
}

// parsePage parses a fetched page. The returned URL is the canonical
// final URL when the request was redirected, otherwise "".
func (s *Spider) parsePage(entry model.FrontierEntry, resp *fetcher.Response, parserOpts []ParserOption) (*model.PageRecord, string, error) {
	base := resp.URL
	if base == "" {
		base = entry.URL
	}
	parser, err := NewParser(base, parserOpts...)
	if err != nil {
		return nil, "", err
	}
	parsed, err := parser.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, "", err
	}

	finalURL := ""
	if canonical, ok := policy.Canonicalize(base); ok && canonical != entry.URL {
		finalURL = canonical
	}

	return &model.PageRecord{
		URL:             entry.URL,
		Depth:           entry.Depth,
		StatusCode:      resp.StatusCode,
		ContentType:     resp.ContentType,
		Title:           parsed.Title,
		MetaDescription: parsed.MetaDescription,
		HTML:            resp.Body,
		Text:            parsed.Text,
		MediaURLs:       parsed.MediaURLs,
		VideoURLs:       parsed.VideoURLs,
		Links:           parsed.Links,
		FetchedAt:       time.Now(),
	}, finalURL, nil
}

// report invokes the progress callback.
func (s *Spider) report(result *model.CrawlResult, pageURL string, maxPages, queued int) {
	if s.progress == nil {
		return
	}
	s.progress(CrawlProgress{
		URL:          pageURL,
		PagesVisited: result.PagesVisited,
		PagesFailed:  result.PagesFailed,
		MaxPages:     maxPages,
		Queued:       queued,
	})
}

// shouldCrawl checks if a URL should be crawled based on ignore/follow patterns.
//
// Logic:
//  1. If URL matches any ignorePattern, skip it (return false)
//  2. If followPatterns is set and URL matches none, skip it (return false)
//  3. Otherwise, crawl it (return true)
func (s *Spider) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.followPatterns) == 0 {
		return true
	}
	for _, pattern := range s.followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard" and "/admin/users/1"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1"
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	// Patterns without a slash also match the last path segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
