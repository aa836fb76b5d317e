package asset

import (
	"net/url"
	"path"
	"strings"

	"github.com/nao1215/brandscan/internal/fetcher"
)

// imageExtensions maps the image extensions we recognise in URLs to
// their MIME types.
var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".ico":  "image/x-icon",
	".avif": "image/avif",
}

// typeExtensions is the preferred file extension of each image MIME type.
var typeExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/x-icon":  ".ico",
	"image/avif":    ".avif",
}

// genericTypes say nothing about the content.
var genericTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
}

// resolveContentType decides whether a response is an image. The header
// wins unless it is missing or generic, in which case the URL extension
// decides.
func resolveContentType(header, rawURL string) (string, bool) {
	mt := fetcher.MediaType(header)
	if strings.HasPrefix(mt, "image/") || strings.Contains(mt, "svg") {
		return mt, true
	}
	if !genericTypes[mt] {
		return mt, false
	}
	if ct, ok := imageExtensions[urlExtension(rawURL)]; ok {
		return ct, true
	}
	return mt, false
}

// urlExtension returns the lowercase extension of the URL path.
func urlExtension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}
