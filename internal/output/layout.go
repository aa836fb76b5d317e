package output

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nao1215/brandscan/internal/asset"
	"github.com/nao1215/brandscan/internal/brand"
	"github.com/nao1215/brandscan/internal/model"
)

// Paths relative to the layout root.
const (
	HTMLDir      = "html"
	InfoDir      = "info"
	MediaDir     = "media"
	LogosDir     = "media/logos"
	RawTextFile  = "info/raw.txt"
	BriefFile    = "info/brand_brief.md"
	ManifestFile = "info/manifest.json"
	VideosFile   = "media/videos.txt"
	ReportFile   = "extraction_report.txt"
)

// maxSafeName bounds the name part of saved HTML files.
const maxSafeName = 100

// ErrNoRoot is returned when a layout has no root directory.
var ErrNoRoot = errors.New("output directory is not set")

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
	dashRuns    = regexp.MustCompile(`-+`)
)

// Layout is the on-disk structure of one run.
type Layout struct {
	root string
}

// NewLayout returns the layout rooted at dir. Nothing is created until
// Prepare is called.
func NewLayout(dir string) *Layout {
	return &Layout{root: dir}
}

// Root returns the root directory.
func (l *Layout) Root() string {
	return l.root
}

// Path joins rel onto the root.
func (l *Layout) Path(rel string) string {
	return filepath.Join(l.root, filepath.FromSlash(rel))
}

// Prepare creates the directory structure.
func (l *Layout) Prepare() error {
	if l.root == "" {
		return ErrNoRoot
	}
	for _, dir := range []string{MediaDir, LogosDir, InfoDir, HTMLDir} {
		if err := os.MkdirAll(l.Path(dir), 0750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Sink returns the asset sink that stores images under the root.
func (l *Layout) Sink() *asset.DirSink {
	return asset.NewDirSink(l.root)
}

// WriteFile creates rel and fills it with fn.
func (l *Layout) WriteFile(rel string, fn func(io.Writer) error) (err error) {
	path := l.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // path is under the run root
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", rel, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", rel, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return w.Flush()
}

// WriteRawText writes every non-blank chunk on its own line.
func (l *Layout) WriteRawText(text []string) error {
	return l.WriteFile(RawTextFile, func(w io.Writer) error {
		for _, chunk := range text {
			if strings.TrimSpace(chunk) == "" {
				continue
			}
			if _, err := io.WriteString(w, chunk+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

// WritePages saves the raw HTML of every page in crawl order and returns
// the relative paths written.
func (l *Layout) WritePages(result *model.CrawlResult) ([]string, error) {
	if result == nil {
		return nil, nil
	}

	written := make([]string, 0, len(result.Order))
	for i, page := range result.OrderedPages() {
		rel := fmt.Sprintf("%s/%03d_%s", HTMLDir, i, SafeName(page.URL, "html"))
		if err := l.WriteFile(rel, func(w io.Writer) error {
			_, err := w.Write(page.HTML)
			return err
		}); err != nil {
			return written, err
		}
		written = append(written, rel)
	}
	return written, nil
}

// WriteVideos writes the video reference list. Nothing is written when
// there are no videos.
func (l *Layout) WriteVideos(videos []model.VideoRef) error {
	if len(videos) == 0 {
		return nil
	}
	return l.WriteFile(VideosFile, func(w io.Writer) error {
		if _, err := io.WriteString(w, "# Video URLs found on the website\n\n"); err != nil {
			return err
		}
		for _, v := range videos {
			if _, err := io.WriteString(w, v.URL+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteBrief renders the brand brief.
func (l *Layout) WriteBrief(brief *model.BrandBrief, domain string) error {
	return l.WriteFile(BriefFile, func(w io.Writer) error {
		return brand.Render(w, brief, domain)
	})
}

// WriteManifest writes the asset manifest as indented JSON.
func (l *Layout) WriteManifest(manifest *model.AssetManifest) error {
	if manifest == nil {
		manifest = model.NewAssetManifest()
	}
	return l.WriteFile(ManifestFile, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(manifest)
	})
}

// SafeName turns a page URL into a file name: host without "www." and
// path, with dots and slashes as dashes and everything else outside
// [a-zA-Z0-9-_] dropped.
func SafeName(rawURL, ext string) string {
	name := "page"
	if u, err := url.Parse(rawURL); err == nil {
		host := strings.ReplaceAll(strings.TrimPrefix(u.Host, "www."), ".", "-")
		path := strings.NewReplacer("/", "-", ".", "-").Replace(u.Path)
		name = unsafeChars.ReplaceAllString(host+path, "")
		name = strings.Trim(dashRuns.ReplaceAllString(name, "-"), "-")
	}
	if len(name) > maxSafeName {
		name = name[:maxSafeName]
	}
	if name == "" {
		name = "page"
	}
	return name + "." + ext
}
