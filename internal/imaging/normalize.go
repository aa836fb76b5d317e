package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"path"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Normalization defaults.
const (
	DefaultMaxWidth = 1920
	DefaultQuality  = 85

	// maxPixels refuses to decode images whose header claims more pixels
	// than this.
	maxPixels = 100_000_000
)

// Result is the outcome of Normalize.
type Result struct {
	// Data is the normalized JPEG, or the input when Normalized is false.
	Data []byte

	// Normalized reports whether Data was re-encoded.
	Normalized bool

	// Width and Height are the dimensions of Data, zero when unknown.
	Width  int
	Height int

	// Format is "jpeg" when normalized, otherwise the decoded source
	// format or "".
	Format string
}

// Normalizer re-encodes raster images.
type Normalizer struct {
	maxWidth int
	quality  int
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithMaxWidth sets the width above which images are downscaled.
func WithMaxWidth(w int) Option {
	return func(n *Normalizer) {
		if w > 0 {
			n.maxWidth = w
		}
	}
}

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option {
	return func(n *Normalizer) {
		if q >= 1 && q <= 100 {
			n.quality = q
		}
	}
}

// NewNormalizer creates a Normalizer with the default settings.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		maxWidth: DefaultMaxWidth,
		quality:  DefaultQuality,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize applies, in order: EXIF orientation, compositing over white,
// downscaling to the maximum width, and JPEG encoding.
//
// Design decision: We orient before resizing because:
//  1. The width limit applies to the image as displayed
//  2. A rotated portrait photo would otherwise be scaled on the wrong axis
func (n *Normalizer) Normalize(data []byte) Result {
	original := Result{Data: data}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return original
	}
	original.Width, original.Height, original.Format = cfg.Width, cfg.Height, format
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return original
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return original
	}

	img := flatten(src)
	img = orient(img, orientation(data))
	img = n.fit(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: n.quality}); err != nil {
		return original
	}

	b := img.Bounds()
	return Result{
		Data:       buf.Bytes(),
		Normalized: true,
		Width:      b.Dx(),
		Height:     b.Dy(),
		Format:     "jpeg",
	}
}

// flatten draws src over an opaque white canvas.
func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

// fit downscales img to the maximum width, keeping the aspect ratio.
func (n *Normalizer) fit(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	if b.Dx() <= n.maxWidth {
		return img
	}
	h := b.Dy() * n.maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, n.maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// IsVector reports whether a resource is an SVG, judged by its content
// type or, failing that, by its URL path.
func IsVector(contentType, rawURL string) bool {
	if strings.Contains(strings.ToLower(contentType), "svg") {
		return true
	}
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.EqualFold(path.Ext(p), ".svg")
}
