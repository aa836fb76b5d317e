package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Default fetcher settings.
const (
	// DefaultTimeout bounds one request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize is the largest body read for a page.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// AcceptHTML is sent when fetching pages.
	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	// AcceptImage is sent when fetching media.
	AcceptImage = "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8"
)

// Response is a successful fetch.
type Response struct {
	// URL is the final URL after redirects.
	URL string

	StatusCode  int
	ContentType string
	Header      http.Header
	Body        []byte

	// Truncated is true when the body was cut at the size limit.
	Truncated bool
}

// MediaType returns the lowercase media type without parameters.
func (r *Response) MediaType() string {
	return MediaType(r.ContentType)
}

// IsHTML reports whether the response is an HTML document. A missing
// content type counts as HTML because many small sites omit it.
func (r *Response) IsHTML() bool {
	mt := r.MediaType()
	return mt == "" || mt == "text/html" || mt == "application/xhtml+xml"
}

// MediaType returns the lowercase media type of a Content-Type header value.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// Fetcher performs GET requests with a fixed set of headers and limits.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	accept      string
	timeout     time.Duration
	maxBodySize int64

	// strictSize fails instead of truncating oversized bodies.
	strictSize bool

	// decodeHTML converts HTML bodies to UTF-8.
	decodeHTML bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithAccept sets the Accept header.
func WithAccept(accept string) Option {
	return func(f *Fetcher) {
		f.accept = accept
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxBodySize sets the maximum number of body bytes read.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithStrictSize makes oversized bodies fail with KindTooLarge instead of
// being truncated. Binary media must not be truncated.
func WithStrictSize() Option {
	return func(f *Fetcher) {
		f.strictSize = true
	}
}

// WithHTMLDecoding converts HTML bodies in other charsets to UTF-8.
func WithHTMLDecoding() Option {
	return func(f *Fetcher) {
		f.decodeHTML = true
	}
}

// New creates a Fetcher using client. A nil client gets a plain client
// with DefaultTimeout.
func New(client *http.Client, opts ...Option) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	f := &Fetcher{
		client:      client,
		userAgent:   "brandscan",
		accept:      AcceptHTML,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs rawURL once. Any non-2xx status is an error of KindStatus.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: KindConnection, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", f.accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: classify(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // drain for connection reuse
		return nil, &Error{URL: rawURL, Kind: KindStatus, StatusCode: resp.StatusCode}
	}

	body, truncated, err := f.readBody(resp.Body)
	if err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			return nil, &Error{URL: rawURL, Kind: KindTooLarge, Err: err}
		}
		kind := classify(ctx, err)
		if kind == KindConnection {
			kind = KindRead
		}
		return nil, &Error{URL: rawURL, Kind: kind, Err: err}
	}

	out := &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header,
		Body:        body,
		Truncated:   truncated,
	}

	if f.decodeHTML && out.IsHTML() {
		if decoded, err := toUTF8(out.Body, out.ContentType); err == nil {
			out.Body = decoded
		}
	}

	return out, nil
}

// readBody reads up to maxBodySize bytes.
func (f *Fetcher) readBody(r io.Reader) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r, f.maxBodySize+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) <= f.maxBodySize {
		return body, false, nil
	}
	if f.strictSize {
		return nil, false, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.maxBodySize)
	}
	return body[:f.maxBodySize], true, nil
}

// toUTF8 converts an HTML body using the charset from the header, a BOM or
// a <meta charset> element.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(strings.NewReader(string(body)), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
