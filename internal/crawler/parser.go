package crawler

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/brandscan/internal/policy"
)

// DefaultEmbedHosts are the video platforms whose iframes count as videos.
var DefaultEmbedHosts = []string{
	"youtube.com",
	"youtube-nocookie.com",
	"vimeo.com",
	"dailymotion.com",
}

// textExcluded lists elements whose text is boilerplate or not visible.
const textExcluded = "head, title, script, style, noscript, template, nav, footer, header"

// backgroundRegex finds url(...) references in inline background styles.
var backgroundRegex = regexp.MustCompile(`(?i)background(?:-image)?\s*:[^;]*?url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// blockElements end a line of text, so adjacent paragraphs do not merge
// into one chunk.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"hr": true, "li": true, "main": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// Parser extracts text, media, videos and links from one HTML page.
// It never fetches anything and has no state between calls.
//
// Design decision: We select with goquery and walk text with
// golang.org/x/net/html because:
//  1. CSS selectors keep every media rule to one line
//  2. The underlying parser repairs malformed HTML instead of failing
//  3. A node walk is the only way to keep text in document order
type Parser struct {
	// baseURL is the page URL, replaced by <base href> when present.
	baseURL *url.URL

	// inScope decides which links are kept. Defaults to the page host.
	inScope func(string) bool

	// mediaFilter drops media URLs it returns false for.
	mediaFilter func(string) bool

	// embedHosts are the iframe hosts recognised as video embeds.
	embedHosts []string
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithScope sets the predicate deciding which links are kept.
func WithScope(inScope func(string) bool) ParserOption {
	return func(p *Parser) {
		p.inScope = inScope
	}
}

// WithMediaFilter drops media URLs for which keep returns false.
func WithMediaFilter(keep func(string) bool) ParserOption {
	return func(p *Parser) {
		p.mediaFilter = keep
	}
}

// WithEmbedHosts replaces the video embed allow-list.
func WithEmbedHosts(hosts []string) ParserOption {
	return func(p *Parser) {
		p.embedHosts = hosts
	}
}

// ParseResult contains everything extracted from one page.
type ParseResult struct {
	// Title is the text of the <title> element.
	Title string

	// MetaDescription is the content of <meta name="description">.
	MetaDescription string

	// Text holds visible text chunks in document order.
	Text []string

	// MediaURLs are absolute image references, deduplicated.
	MediaURLs []string

	// VideoURLs are absolute video sources and embed URLs, deduplicated.
	VideoURLs []string

	// Links are canonical in-scope page links, deduplicated in first-seen order.
	Links []string
}

// NewParser creates a parser for the page at baseURL.
func NewParser(baseURL string, opts ...ParserOption) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	p := &Parser{
		baseURL:    u,
		embedHosts: DefaultEmbedHosts,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inScope == nil {
		host := strings.ToLower(u.Host)
		p.inScope = func(link string) bool {
			l, err := url.Parse(link)
			return err == nil && strings.EqualFold(l.Host, host)
		}
	}
	return p, nil
}

// Parse extracts page content. Malformed HTML is repaired, so only a
// failing reader produces an error.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := goquery.NewDocumentFromReader(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base := p.baseURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = p.baseURL.ResolveReference(u)
		}
	}

	result := &ParseResult{
		Title:     p.title(doc),
		MediaURLs: make([]string, 0),
		VideoURLs: make([]string, 0),
		Links:     make([]string, 0),
	}
	if desc, ok := doc.Find("meta[name='description']").First().Attr("content"); ok {
		result.MetaDescription = strings.TrimSpace(desc)
	}

	media := newOrderedSet()
	videos := newOrderedSet()
	links := newOrderedSet()

	addMedia := func(ref string) {
		abs := policy.Resolve(base, ref)
		if abs == "" {
			return
		}
		if p.mediaFilter != nil && !p.mediaFilter(abs) {
			return
		}
		media.add(abs)
	}

	// Media is collected before boilerplate is removed: header and nav
	// usually hold the logo.
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "data-src", "data-lazy-src", "data-original"} {
			// A data: placeholder in src falls through to the lazy attributes.
			if v, ok := s.Attr(attr); ok && policy.Resolve(base, v) != "" {
				addMedia(v)
				return
			}
		}
	})
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		for _, m := range backgroundRegex.FindAllStringSubmatch(style, -1) {
			addMedia(m[1])
		}
	})
	doc.Find("svg image").Each(func(_ int, s *goquery.Selection) {
		if href := svgImageHref(s); href != "" {
			addMedia(href)
		}
	})
	doc.Find("object[data]").Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		data, _ := s.Attr("data")
		if strings.Contains(strings.ToLower(typ), "svg") || strings.HasSuffix(strings.ToLower(data), ".svg") {
			addMedia(data)
		}
	})
	doc.Find("link[rel][href]").Each(func(_ int, s *goquery.Selection) {
		rel, _ := s.Attr("rel")
		if isIconRel(rel) {
			href, _ := s.Attr("href")
			addMedia(href)
		}
	})
	doc.Find("meta[property='og:image'], meta[name='og:image'], meta[name='twitter:image'], meta[property='twitter:image']").
		Each(func(_ int, s *goquery.Selection) {
			if content, ok := s.Attr("content"); ok {
				addMedia(content)
			}
		})

	doc.Find("video").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			if abs := policy.Resolve(base, src); abs != "" {
				videos.add(abs)
			}
		}
		s.Find("source[src]").Each(func(_ int, src *goquery.Selection) {
			v, _ := src.Attr("src")
			if abs := policy.Resolve(base, v); abs != "" {
				videos.add(abs)
			}
		})
	})
	doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		abs := policy.Resolve(base, src)
		if abs != "" && p.isEmbed(abs) {
			videos.add(abs)
		}
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		// A fragment-only href points back at this page.
		if strings.HasPrefix(strings.TrimSpace(href), "#") {
			return
		}
		abs := policy.Resolve(base, href)
		if abs == "" {
			return
		}
		canonical, ok := policy.Canonicalize(abs)
		if !ok || !p.inScope(canonical) {
			return
		}
		links.add(canonical)
	})

	doc.Find(textExcluded).Remove()
	result.Text = extractText(doc.Nodes)

	result.MediaURLs = media.items
	result.VideoURLs = videos.items
	result.Links = links.items
	return result, nil
}

// title prefers the document <title> over titles embedded in inline SVG.
func (p *Parser) title(doc *goquery.Document) string {
	if t := doc.Find("head > title").First(); t.Length() > 0 {
		return strings.TrimSpace(t.Text())
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// isEmbed reports whether rawURL is on the embed allow-list.
func (p *Parser) isEmbed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range p.embedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// svgImageHref returns href or xlink:href of an SVG <image>.
func svgImageHref(s *goquery.Selection) string {
	for _, n := range s.Nodes {
		for _, attr := range n.Attr {
			if attr.Key == "href" && strings.TrimSpace(attr.Val) != "" {
				return attr.Val
			}
		}
	}
	return ""
}

// isIconRel reports whether a rel attribute names an icon.
func isIconRel(rel string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if strings.Contains(token, "icon") {
			return true
		}
	}
	return false
}

// extractText returns visible text chunks in document order. Each text
// line is split on double spaces, whitespace inside a chunk is collapsed
// and empty chunks are dropped.
func extractText(nodes []*html.Node) []string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.CommentNode:
			return
		case html.ElementNode:
			if blockElements[n.Data] {
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteByte('\n')
		}
	}
	for _, n := range nodes {
		walk(n)
	}

	chunks := make([]string, 0)
	for _, line := range strings.Split(b.String(), "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			chunk := strings.Join(strings.Fields(phrase), " ")
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
		}
	}
	return chunks
}

// orderedSet keeps the first occurrence of each string.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: make([]string, 0)}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
