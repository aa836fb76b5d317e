package asset

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/brandscan/internal/classify"
	"github.com/nao1215/brandscan/internal/fetcher"
	"github.com/nao1215/brandscan/internal/imaging"
	"github.com/nao1215/brandscan/internal/model"
)

// Pipeline defaults.
const (
	DefaultMaxMedia     = 200
	DefaultConcurrency  = 1
	DefaultMaxImageSize = 20 * 1024 * 1024
	DefaultTimeout      = 30 * time.Second
)

// MediaFetcher downloads one media URL.
type MediaFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Response, error)
}

// Progress is reported after each media URL is committed.
type Progress struct {
	// Done is the number of URLs committed so far.
	Done int

	// Total is the number of URLs the run will process.
	Total int

	// Outcome is the result of the URL just committed.
	Outcome model.Outcome
}

// Pipeline turns the media URLs of a crawl into stored assets.
type Pipeline struct {
	fetcher     MediaFetcher
	sink        Sink
	normalizer  *imaging.Normalizer
	logger      *slog.Logger
	maxMedia    int
	concurrency int
	skipVideos  bool
	optimize    bool
	filter      func(string) bool
	progress    func(Progress)

	// client settings used when no fetcher is injected
	userAgent    string
	timeout      time.Duration
	maxImageSize int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxMedia caps the number of media URLs processed. Zero or less
// means no cap.
func WithMaxMedia(n int) Option {
	return func(p *Pipeline) {
		p.maxMedia = n
	}
}

// WithConcurrency sets how many downloads may be in flight.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithSkipVideos disables recording video references.
func WithSkipVideos(skip bool) Option {
	return func(p *Pipeline) {
		p.skipVideos = skip
	}
}

// WithOptimize enables or disables image normalization.
func WithOptimize(optimize bool) Option {
	return func(p *Pipeline) {
		p.optimize = optimize
	}
}

// WithAssetFilter skips media URLs for which keep returns false. Skipped
// URLs are never downloaded.
func WithAssetFilter(keep func(string) bool) Option {
	return func(p *Pipeline) {
		p.filter = keep
	}
}

// WithMediaFetcher replaces the downloader.
func WithMediaFetcher(f MediaFetcher) Option {
	return func(p *Pipeline) {
		p.fetcher = f
	}
}

// WithNormalizer replaces the image normalizer.
func WithNormalizer(n *imaging.Normalizer) Option {
	return func(p *Pipeline) {
		p.normalizer = n
	}
}

// WithUserAgent sets the User-Agent of media requests.
func WithUserAgent(ua string) Option {
	return func(p *Pipeline) {
		p.userAgent = ua
	}
}

// WithTimeout sets the per-download timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// WithMaxImageSize sets the largest accepted download in bytes.
func WithMaxImageSize(n int64) Option {
	return func(p *Pipeline) {
		p.maxImageSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithProgress registers a callback invoked after every committed URL.
func WithProgress(fn func(Progress)) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// NewPipeline creates a pipeline that downloads with client and stores
// into sink.
func NewPipeline(client *http.Client, sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		sink:         sink,
		logger:       slog.Default(),
		maxMedia:     DefaultMaxMedia,
		concurrency:  DefaultConcurrency,
		optimize:     true,
		userAgent:    "brandscan",
		timeout:      DefaultTimeout,
		maxImageSize: DefaultMaxImageSize,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.fetcher == nil {
		p.fetcher = fetcher.New(client,
			fetcher.WithUserAgent(p.userAgent),
			fetcher.WithAccept(fetcher.AcceptImage),
			fetcher.WithTimeout(p.timeout),
			fetcher.WithMaxBodySize(p.maxImageSize),
			fetcher.WithStrictSize(),
		)
	}
	if p.normalizer == nil {
		p.normalizer = imaging.NewNormalizer()
	}
	if p.sink == nil {
		p.sink = NewMemorySink()
	}
	return p
}

// download is the fetch-stage result of one URL.
type download struct {
	resp     *fetcher.Response
	err      error
	filtered bool

	// held is set when the download owns a slot of the prefetch window.
	held bool
}

// mediaItem is one media URL selected for processing.
type mediaItem struct {
	url      string
	filtered bool
}

// selectMedia applies the asset filter, then the media cap. Filtered
// URLs are kept as items so they are reported, but never count toward
// the cap.
func (p *Pipeline) selectMedia(urls []string) []mediaItem {
	items := make([]mediaItem, 0, len(urls))
	kept := 0
	for _, u := range urls {
		if p.maxMedia > 0 && kept >= p.maxMedia {
			break
		}
		if p.filter != nil && !p.filter(u) {
			items = append(items, mediaItem{url: u, filtered: true})
			continue
		}
		items = append(items, mediaItem{url: u})
		kept++
	}
	return items
}

// Process downloads and stores the media of result.
//
// Per-URL failures are counted in the manifest and never returned. The
// only error is ctx's, in which case the manifest built so far is
// returned with it.
func (p *Pipeline) Process(ctx context.Context, result *model.CrawlResult) (*model.AssetManifest, error) {
	manifest := model.NewAssetManifest()

	if !p.skipVideos {
		for i, v := range result.VideoURLs {
			manifest.Videos = append(manifest.Videos, model.VideoRef{Ordinal: i + 1, URL: v})
		}
		manifest.Stats.VideosProcessed = len(manifest.Videos)
	}

	items := p.selectMedia(result.MediaURLs)
	if len(items) == 0 {
		return manifest, ctx.Err()
	}

	// One buffered slot per URL: fetchers never block on send and the
	// commit loop reads them in input order.
	slots := make([]chan download, len(items))
	for i := range slots {
		slots[i] = make(chan download, 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	// window bounds the bodies fetched but not yet committed, so a slow
	// sink holds back the downloads instead of buffering every body.
	window := semaphore.NewWeighted(int64(p.concurrency))

	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i, it := range items {
			if it.filtered {
				slots[i] <- download{filtered: true}
				continue
			}
			if err := window.Acquire(gctx, 1); err != nil {
				slots[i] <- download{err: err}
				continue
			}
			g.Go(func() error {
				resp, err := p.fetcher.Fetch(gctx, it.url)
				slots[i] <- download{resp: resp, err: err, held: true}
				return nil
			})
		}
	}()

	store := NewContentStore()
	var procErr error
	for i, it := range items {
		if err := ctx.Err(); err != nil {
			procErr = err
			break
		}

		var d download
		select {
		case d = <-slots[i]:
		case <-ctx.Done():
			procErr = ctx.Err()
		}
		if procErr != nil {
			break
		}

		outcome := p.commit(ctx, manifest, store, it.url, d)
		if d.held {
			window.Release(1)
		}
		manifest.Outcomes = append(manifest.Outcomes, outcome)
		if p.progress != nil {
			p.progress(Progress{Done: i + 1, Total: len(items), Outcome: outcome})
		}
	}

	<-launched
	_ = g.Wait() //nolint:errcheck // fetch goroutines never return errors

	s := manifest.Stats
	p.logger.Debug("assets processed",
		"stored", s.ImagesDownloaded, "logos", s.LogosDetected,
		"duplicates", s.DuplicatesSkipped, "failed", s.FailedDownloads)

	return manifest, procErr
}

// commit processes one download on the commit goroutine.
func (p *Pipeline) commit(ctx context.Context, m *model.AssetManifest, store *ContentStore, rawURL string, d download) model.Outcome {
	outcome := model.Outcome{URL: rawURL}

	if d.filtered {
		m.Stats.Filtered++
		outcome.Kind = model.OutcomeFiltered
		return outcome
	}
	if d.err != nil {
		m.Stats.FailedDownloads++
		outcome.Kind = model.OutcomeFailed
		outcome.Error = d.err.Error()
		p.logger.Debug("media download failed", "url", rawURL, "error", d.err)
		return outcome
	}

	contentType, ok := resolveContentType(d.resp.ContentType, rawURL)
	if !ok {
		m.Stats.NonImageSkipped++
		outcome.Kind = model.OutcomeNotImage
		return outcome
	}

	raw := d.resp.Body
	hash := HashBytes(raw)
	outcome.Hash = hash
	if store.Has(hash) {
		m.Stats.DuplicatesSkipped++
		outcome.Kind = model.OutcomeDuplicate
		return outcome
	}

	isLogo := classify.IsLogo(rawURL, raw)

	data := raw
	normalized := false
	width, height := 0, 0
	if !imaging.IsVector(contentType, rawURL) {
		if p.optimize {
			r := p.normalizer.Normalize(raw)
			data, normalized, width, height = r.Data, r.Normalized, r.Width, r.Height
		} else if w, h, ok := imaging.Dimensions(raw); ok {
			width, height = w, h
		}
	}
	if normalized {
		contentType = "image/jpeg"
	}

	filename := Filename(rawURL, hash, contentType, isLogo, normalized)
	key := Key(filename, isLogo)
	if err := p.sink.Put(ctx, key, data, contentType); err != nil {
		m.Stats.FailedDownloads++
		outcome.Kind = model.OutcomeFailed
		outcome.Error = err.Error()
		p.logger.Warn("failed to store asset", "key", key, "error", err)
		return outcome
	}

	class := model.ClassMedia
	if isLogo {
		class = model.ClassLogo
	}
	store.Claim(hash, key)
	m.Add(&model.AssetRecord{
		Hash:         hash,
		Class:        class,
		Key:          key,
		Filename:     filename,
		SourceURL:    rawURL,
		ContentType:  contentType,
		Size:         int64(len(data)),
		OriginalSize: int64(len(raw)),
		Normalized:   normalized,
		Width:        width,
		Height:       height,
	})

	m.Stats.ImagesDownloaded++
	if normalized {
		m.Stats.ImagesOptimized++
	}
	if isLogo {
		m.Stats.LogosDetected++
	}

	outcome.Kind = model.OutcomeStored
	p.logger.Debug("asset stored", "url", rawURL, "key", key, "logo", isLogo)
	return outcome
}
