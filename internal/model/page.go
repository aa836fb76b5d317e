package model

import (
	"net/url"
	"time"
)

// PageRecord is the result of one successfully fetched and parsed page.
// It is created once and never modified afterwards.
type PageRecord struct {
	// URL is the canonical URL the page was fetched from.
	URL string `json:"url"`

	// Depth is the link distance from the seed URL.
	Depth int `json:"depth"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type reported by the server.
	ContentType string `json:"content_type"`

	// Title is the text of the <title> element.
	Title string `json:"title,omitempty"`

	// MetaDescription is the content of <meta name="description">.
	MetaDescription string `json:"meta_description,omitempty"`

	// HTML is the raw response body.
	HTML []byte `json:"-"`

	// Text contains the visible text chunks in document order.
	Text []string `json:"text,omitempty"`

	// MediaURLs are the absolute image references found on the page.
	MediaURLs []string `json:"media_urls,omitempty"`

	// VideoURLs are the absolute video and embed references found on the page.
	VideoURLs []string `json:"video_urls,omitempty"`

	// Links are the in-scope outgoing links, deduplicated in first-seen order.
	Links []string `json:"links,omitempty"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// CrawlResult is the aggregate output of one crawl.
type CrawlResult struct {
	// Domain is the host of the seed URL.
	Domain string `json:"domain"`

	// StartURL is the normalized seed URL.
	StartURL string `json:"start_url"`

	// Pages maps a page URL to its record.
	Pages map[string]*PageRecord `json:"pages"`

	// Order lists page URLs in the order they were fetched.
	Order []string `json:"order"`

	// Text holds every text chunk of every page in crawl order.
	Text []string `json:"-"`

	// MediaURLs is the union of all page media, deduplicated in first-seen order.
	MediaURLs []string `json:"media_urls"`

	// VideoURLs is the union of all page videos, deduplicated in first-seen order.
	VideoURLs []string `json:"video_urls"`

	// PagesVisited is the number of successfully fetched pages.
	PagesVisited int `json:"pages_visited"`

	// PagesFailed counts fetch attempts that produced no page.
	PagesFailed int `json:"pages_failed"`

	// PagesDiscovered counts URLs admitted to the frontier, including the seed.
	PagesDiscovered int `json:"pages_discovered"`

	// RobotsDisallowed counts URLs robots.txt disallowed, whether or not
	// they were skipped.
	RobotsDisallowed int `json:"robots_disallowed"`

	// StartedAt and FinishedAt bracket the crawl.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	mediaSeen map[string]struct{}
	videoSeen map[string]struct{}
}

// NewCrawlResult creates an empty result for the given seed URL.
func NewCrawlResult(startURL string) *CrawlResult {
	domain := ""
	if u, err := url.Parse(startURL); err == nil {
		domain = u.Host
	}
	return &CrawlResult{
		Domain:    domain,
		StartURL:  startURL,
		Pages:     make(map[string]*PageRecord),
		Order:     make([]string, 0),
		Text:      make([]string, 0),
		MediaURLs: make([]string, 0),
		VideoURLs: make([]string, 0),
		StartedAt: time.Now(),
		mediaSeen: make(map[string]struct{}),
		videoSeen: make(map[string]struct{}),
	}
}

// AddPage records a fetched page and merges its text and media into the
// aggregate lists. A URL that is already present is ignored so every
// visited URL keeps exactly one record.
func (r *CrawlResult) AddPage(page *PageRecord) bool {
	if _, ok := r.Pages[page.URL]; ok {
		return false
	}
	if r.mediaSeen == nil {
		r.mediaSeen = make(map[string]struct{})
	}
	if r.videoSeen == nil {
		r.videoSeen = make(map[string]struct{})
	}

	r.Pages[page.URL] = page
	r.Order = append(r.Order, page.URL)
	r.PagesVisited++
	r.Text = append(r.Text, page.Text...)

	for _, m := range page.MediaURLs {
		if _, ok := r.mediaSeen[m]; ok {
			continue
		}
		r.mediaSeen[m] = struct{}{}
		r.MediaURLs = append(r.MediaURLs, m)
	}
	for _, v := range page.VideoURLs {
		if _, ok := r.videoSeen[v]; ok {
			continue
		}
		r.videoSeen[v] = struct{}{}
		r.VideoURLs = append(r.VideoURLs, v)
	}
	return true
}

// OrderedPages returns page records in crawl order.
func (r *CrawlResult) OrderedPages() []*PageRecord {
	pages := make([]*PageRecord, 0, len(r.Order))
	for _, u := range r.Order {
		if p, ok := r.Pages[u]; ok {
			pages = append(pages, p)
		}
	}
	return pages
}
