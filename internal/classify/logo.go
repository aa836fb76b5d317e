// Package classify decides whether a downloaded image is likely a logo.
package classify

import (
	"bytes"
	"image"
	"net/url"
	"strings"

	// Registered decoders for DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// logoKeywords mark a URL as pointing at a logo.
var logoKeywords = []string{
	"logo",
	"brand",
	"header-logo",
	"site-logo",
	"company-logo",
	"navbar-brand",
	"masthead",
	"brand-logo",
	"site-brand",
}

// logoDirs are path segments under which sites keep brand marks.
var logoDirs = []string{"/logo/", "/brand/", "/header/", "/nav/"}

const (
	// maxIconSide is the longest side below which an image counts as an icon.
	maxIconSide = 200

	// maxBannerHeight is the height below which a wide image counts as a wordmark.
	maxBannerHeight = 100
)

// IsLogo reports whether the image at rawURL with the given bytes is
// likely a logo. Rules are checked in order and the first match wins:
//
//  1. the URL contains a logo keyword
//  2. the URL path contains a logo directory
//  3. the image's longer side is below 200 pixels
//  4. the image is more than twice as wide as high and below 100 pixels high
//
// Undecodable data fails rules 3 and 4. IsLogo has no side effects.
func IsLogo(rawURL string, data []byte) bool {
	return MatchURL(rawURL) || MatchDimensions(data)
}

// MatchURL applies the URL rules of IsLogo.
func MatchURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, kw := range logoKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	path := lower
	if u, err := url.Parse(lower); err == nil && u.Path != "" {
		path = u.Path
	}
	for _, dir := range logoDirs {
		if strings.Contains(path, dir) {
			return true
		}
	}
	return false
}

// MatchDimensions applies the size rules of IsLogo.
func MatchDimensions(data []byte) bool {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return false
	}

	if max(cfg.Width, cfg.Height) < maxIconSide {
		return true
	}
	return cfg.Width > 2*cfg.Height && cfg.Height < maxBannerHeight
}
