package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/brandscan/internal/model"
)

// site is a test website that counts requests per path.
type site struct {
	server *httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

// newSite serves pages from a path → HTML map. robots is served at
// /robots.txt when non-empty; unknown paths answer 404.
func newSite(t *testing.T, pages map[string]string, robots string) *site {
	t.Helper()

	s := &site{hits: make(map[string]int)}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			if robots == "" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(robots))
			return
		}

		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()

		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *site) url(path string) string {
	return s.server.URL + path
}

func (s *site) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *site) totalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

func links(paths ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, p := range paths {
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, p, p)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newJob(startURL string) model.CrawlJob {
	return model.CrawlJob{
		StartURL:     startURL,
		MaxDepth:     3,
		MaxPages:     50,
		SameDomain:   true,
		RobotsStance: model.RobotsWarn,
	}
}

// TestSpiderCrawl covers the crawl scenarios end to end.
func TestSpiderCrawl(t *testing.T) {
	t.Parallel()

	t.Run("single page with text and media", func(t *testing.T) {
		t.Parallel()

		s := newSite(t, map[string]string{
			"/": `<html><head><title>Acme</title></head><body>
				<p>We make anvils.</p><img src="/logo.png"><video src="/intro.mp4"></video>
				</body></html>`,
		}, "")

		job := newJob(s.url("/"))
		job.MaxDepth = 0

		result, err := NewSpider(s.server.Client()).Crawl(context.Background(), job)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PagesVisited != 1 {
			t.Fatalf("expected 1 page, got %d", result.PagesVisited)
		}
		page := result.Pages[result.Order[0]]
		if page.Title != "Acme" {
			t.Errorf("expected title Acme, got %q", page.Title)
		}
		if len(result.Text) != 1 || result.Text[0] != "We make anvils." {
			t.Errorf("unexpected text %q", result.Text)
		}
		if len(result.MediaURLs) != 1 || result.MediaURLs[0] != s.url("/logo.png") {
			t.Errorf("unexpected media %q", result.MediaURLs)
		}
		if len(result.VideoURLs) != 1 {
			t.Errorf("expected 1 video, got %q", result.VideoURLs)
		}
		if result.FinishedAt.Before(result.StartedAt) {
			t.Error("expected FinishedAt after StartedAt")
		}
	})

	t.Run("max depth zero fetches only the start page", func(t *testing.T) {
		t.Parallel()

		s := newSite(t, map[string]string{
			"/":  links("/a", "/b", "/c"),
			"/a": links(),
			"/b": links(),
			"/c": links(),
		}, "")

		job := newJob(s.url("/"))
		job.MaxDepth = 0

		result, err := NewSpider(s.server.Client()).Crawl(context.Background(), job)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PagesVisited != 1 {
			t.Errorf("expected 1 page, got %d", result.PagesVisited)
		}
		if result.PagesDiscovered != 1 {
			t.Errorf("expected no links followed, got %d discovered", result.PagesDiscovered)
		}
		if s.totalHits() != 1 {
			t.Errorf("expected 1 page request, got %d", s.totalHits())
		}
	})

	t.Run("start URL redirected to another host keeps crawling", func(t *testing.T) {
		t.Parallel()

		var canonical string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Host, "localhost") {
				http.Redirect(w, r, canonical+r.URL.Path, http.StatusMovedPermanently)
				return
			}
			switch r.URL.Path {
			case "/":
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte(links("/a", "b")))
			case "/a", "/b":
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte(links()))
			default:
				http.NotFound(w, r)
			}
		}))
		t.Cleanup(server.Close)
		canonical = server.URL
		seed := strings.Replace(server.URL, "127.0.0.1", "localhost", 1)

		result, err := NewSpider(server.Client()).Crawl(context.Background(), newJob(seed+"/"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PagesVisited != 3 {
			t.Errorf("expected 3 pages, got %d: %v", result.PagesVisited, result.Order)
		}
		for _, path := range []string{"/a", "/b"} {
			if _, ok := result.Pages[canonical+path]; !ok {
				t.Errorf("expected %s to be crawled, got %v", path, result.Order)
			}
		}
	})

	t.Run("max pages bounds the crawl", func(t *testing.T) {
		t.Parallel()

		pages := map[string]string{"/": links("/1", "/2", "/3", "/4", "/5", "/6")}
		for i := 1; i <= 6; i++ {
			pages[fmt.Sprintf("/%d", i)] = links("/")
		}
		s := newSite(t, pages, "")

		job := newJob(s.url("/"))
		job.MaxPages = 3

		result, err := NewSpider(s.server.Client()).Crawl(context.Background(), job)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PagesVisited != 3 || len(result.Pages) != 3 {
			t.Errorf("expected 3 pages, got %d", result.PagesVisited)
		}
		if s.totalHits() != 3 {
			t.Errorf("expected 3 page requests, got %d", s.totalHits())
		}
	})

	t.Run("max depth bounds the crawl", func(t *testing.T) {
		t.Parallel()

		s := newSite(t, map[string]string{
			"/":  links("/a"),
			"/a": links("/b"),
			"/b": links("/c"),
			"/c": links(),
		}, "")

		job := newJob(s.url("/"))
		job.MaxDepth = 1

		result, err := NewSpider(s.server.Client()).Crawl(context.Background(), job)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PagesVisited != 2 {
			t.Errorf("expected 2 pages, got %d: %v", result.PagesVisited, result.Order)
		}
		for _, p := range result.Pages {
			if p.Depth > 1 {
				t.Errorf("page %s exceeds max depth: %d", p.URL, p.Depth)
			}
		}
		if s.hitCount("/b") != 0 {
			t.Error("page beyond max depth was fetched")
		}
	})

	t.Run("never leaves the domain", func(t *testing.T) {
		t.Parallel()

		foreign := newSite(t, map[string]string{"/": links()}, "")
		s := newSite(t, map[string]string{
			"/":  links("/a", foreign.url("/")),
			"/a": links(foreign.url("/other")),
		}, "")

		result, err := NewSpider(s.server.Client()).Crawl(context.Background(), newJob(s.url("/")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if foreign.totalHits() != 0 {
			t.Errorf("foreign site received %d requests", foreign.totalHits())
		}
		for u := range result.Pages {
			if !strings.HasPrefix(u, s.server.URL) {
				t.Errorf("foreign page recorded: %s", u)
			}
		}
	})

	t.Run("visits every page once", func(t *testing.T) {
		t.Parallel()

		s := newSite(t, map[string]string{
			"/":  links("/a", "/b", "/a#x", "/a?y=1"),
			"/a": links("/", "/b"),
			"/b": links("/", "/a"),
		}, "")

		result, err := NewSpider(s.server.Client()).Crawl(context.Background(), newJob(s.url("/")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PagesVisited != 3 {
			t.Errorf("expected 3 pages, got %d", result.PagesVisited)
		}
		for _, path := range []string{"/", "/a", "/b"} {
			if n := s.hitCount(path); n != 1 {
				t.Errorf("%s fetched %d times", path, n)
			}
		}
		if result.PagesDiscovered != 3 {
			t.Errorf("expected 3 discovered URLs, got %d", result.PagesDiscovered)
		}
	})

	t.Run("failed pages are counted and skipped", func(t *testing.T) {
		t.Parallel()

		s := newSite(t, map[string]string{
			"/":   links("/missing", "/ok"),
			"/ok": links(),
		}, "")

		result, err := NewSpider(s.server.Client()).Crawl(context.Background(), newJob(s.url("/")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PagesVisited != 2 || result.PagesFailed != 1 {
			t.Errorf("expected 2 visited and 1 failed, got %d and %d", result.PagesVisited, result.PagesFailed)
		}
		if s.hitCount("/missing") != 1 {
			t.Error("failed page must not be retried")
		}
	})

	t.Run("unreachable seed returns error and partial result", func(t *testing.T) {
		t.Parallel()

		s := newSite(t, map[string]string{}, "")

		result, err := NewSpider(s.server.Client()).Crawl(context.Background(), newJob(s.url("/")))
		if !errors.Is(err, ErrSeedUnreachable) {
			t.Fatalf("expected ErrSeedUnreachable, got %v", err)
		}
		if result == nil || result.PagesVisited != 0 || result.PagesFailed != 1 {
			t.Errorf("expected empty partial result, got %+v", result)
		}
	})

	t.Run("invalid job is rejected before any request", func(t *testing.T) {
		t.Parallel()

		job := newJob("https://acme.test/")
		job.MaxPages = 0
		if _, err := NewSpider(nil).Crawl(context.Background(), job); !errors.Is(err, model.ErrInvalidMaxPages) {
			t.Errorf("expected ErrInvalidMaxPages, got %v", err)
		}

		job = newJob("ftp://acme.test/")
		if _, err := NewSpider(nil).Crawl(context.Background(), job); err == nil {
			t.Error("expected error for non-http start URL")
		}
	})

	t.Run("robots respect skips disallowed pages", func(t *testing.T) {
		t.Parallel()

		s := newSite(t, map[string]string{
			"/":        links("/private", "/public"),
			"/private": links(),
			"/public":  links(),
		}, "User-agent: *\nDisallow: /private\n")

		job := newJob(s.url("/"))
		job.RobotsStance = model.RobotsRespect

		result, err := NewSpider(s.server.Client()).Crawl(context.Background(), job)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.hitCount("/private") != 0 {
			t.Error("disallowed page was fetched")
		}
		if result.RobotsDisallowed != 1 || result.PagesVisited != 2 {
			t.Errorf("expected 1 disallowed and 2 visited, got %d and %d", result.RobotsDisallowed, result.PagesVisited)
		}
	})

	t.Run("robots warn crawls disallowed pages", func(t *testing.T) {
		t.Parallel()

		s := newSite(t, map[string]string{
			"/":        links("/private"),
			"/private": links(),
		}, "User-agent: *\nDisallow: /private\n")

		result, err := NewSpider(s.server.Client()).Crawl(context.Background(), newJob(s.url("/")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.hitCount("/private") != 1 {
			t.Error("expected disallowed page to be fetched in warn mode")
		}
		if result.RobotsDisallowed != 1 {
			t.Errorf("expected 1 disallowed URL, got %d", result.RobotsDisallowed)
		}
	})

	t.Run("delay spaces page fetches", func(t *testing.T) {
		t.Parallel()

		s := newSite(t, map[string]string{
			"/":  links("/a", "/b"),
			"/a": links(),
			"/b": links(),
		}, "")

		job := newJob(s.url("/"))
		job.Delay = 50 * time.Millisecond

		begin := time.Now()
		if _, err := NewSpider(s.server.Client()).Crawl(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(begin); elapsed < 100*time.Millisecond {
			t.Errorf("three fetches finished in %v, expected at least 100ms", elapsed)
		}
	})

	t.Run("cancellation returns the partial result", func(t *testing.T) {
		t.Parallel()

		s := newSite(t, map[string]string{
			"/":  links("/a", "/b"),
			"/a": links(),
			"/b": links(),
		}, "")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		spider := NewSpider(s.server.Client(), WithProgress(func(p CrawlProgress) {
			if p.PagesVisited == 1 {
				cancel()
			}
		}))

		result, err := spider.Crawl(ctx, newJob(s.url("/")))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result == nil || result.PagesVisited != 1 {
			t.Errorf("expected partial result with 1 page, got %+v", result)
		}
	})

	t.Run("ignore patterns prune the frontier", func(t *testing.T) {
		t.Parallel()

		s := newSite(t, map[string]string{
			"/":               links("/blog/post", "/files/deck.pdf", "/about"),
			"/blog/post":      links(),
			"/files/deck.pdf": links(),
			"/about":          links(),
		}, "")

		spider := NewSpider(s.server.Client(), WithIgnorePatterns([]string{"/blog/*", "*.pdf"}))
		result, err := spider.Crawl(context.Background(), newJob(s.url("/")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PagesVisited != 2 {
			t.Errorf("expected 2 pages, got %v", result.Order)
		}
	})

	t.Run("non-HTML responses are not pages", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/":
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte(links("/doc.json")))
			case "/doc.json":
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{}`))
			default:
				http.NotFound(w, r)
			}
		}))
		defer server.Close()

		result, err := NewSpider(server.Client()).Crawl(context.Background(), newJob(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PagesVisited != 1 || result.PagesFailed != 1 {
			t.Errorf("expected 1 visited and 1 failed, got %d and %d", result.PagesVisited, result.PagesFailed)
		}
	})
}

// TestMatchPattern tests glob matching of URL paths.
func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"directory prefix", "/shop/*", "/shop/cart", true},
		{"directory itself", "/shop/*", "/shop", true},
		{"sibling directory", "/shop/*", "/shopping", false},
		{"nested directory", "/shop/*", "/shop/items/42", true},
		{"extension", "*.zip", "/downloads/brand-kit.zip", true},
		{"other extension", "*.zip", "/downloads/brand-kit.pdf", false},
		{"exact path", "/login", "/login", true},
		{"exact path mismatch", "/login", "/logout", false},
		{"single character", "/v?/docs", "/v2/docs", true},
		{"single character overflow", "/v?/docs", "/v10/docs", false},
		{"segment glob", "print-*", "/news/print-2024", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := matchPattern(tt.pattern, tt.path); got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

// TestShouldCrawl tests URL filtering based on patterns.
func TestShouldCrawl(t *testing.T) {
	t.Parallel()

	t.Run("no patterns allows all", func(t *testing.T) {
		t.Parallel()

		if !NewSpider(nil).shouldCrawl("https://acme.test/any/path") {
			t.Error("expected all URLs to be allowed when no patterns set")
		}
	})

	t.Run("follow patterns restrict the crawl", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(nil, WithFollowPatterns([]string{"/products/*"}))
		if !spider.shouldCrawl("https://acme.test/products/anvil") {
			t.Error("expected /products/anvil to be followed")
		}
		if spider.shouldCrawl("https://acme.test/careers") {
			t.Error("expected /careers to be skipped")
		}
	})

	t.Run("ignore wins over follow", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(nil,
			WithFollowPatterns([]string{"/products/*"}),
			WithIgnorePatterns([]string{"/products/archive/*"}),
		)
		if spider.shouldCrawl("https://acme.test/products/archive/old") {
			t.Error("expected ignore pattern to take precedence")
		}
	})
}
