package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	t.Run("downscales wide images and flattens alpha", func(t *testing.T) {
		t.Parallel()

		src := image.NewNRGBA(image.Rect(0, 0, 3000, 1000))
		for x := range 1500 {
			for y := range 1000 {
				src.Set(x, y, color.NRGBA{B: 255, A: 255})
			}
		}

		result := NewNormalizer().Normalize(encodePNG(t, src))
		if !result.Normalized {
			t.Fatal("expected image to be normalized")
		}
		if result.Width != 1920 || result.Height != 640 {
			t.Errorf("expected 1920x640, got %dx%d", result.Width, result.Height)
		}
		if result.Format != "jpeg" {
			t.Errorf("expected jpeg, got %q", result.Format)
		}

		decoded, err := jpeg.Decode(bytes.NewReader(result.Data))
		if err != nil {
			t.Fatalf("normalized data is not a JPEG: %v", err)
		}
		r, g, b, _ := decoded.At(1800, 300).RGBA()
		if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
			t.Errorf("expected transparent area to become white, got %d,%d,%d", r>>8, g>>8, b>>8)
		}
	})

	t.Run("keeps dimensions of small images", func(t *testing.T) {
		t.Parallel()

		result := NewNormalizer().Normalize(encodePNG(t, image.NewRGBA(image.Rect(0, 0, 320, 200))))
		if !result.Normalized || result.Width != 320 || result.Height != 200 {
			t.Errorf("unexpected result: normalized=%v %dx%d", result.Normalized, result.Width, result.Height)
		}
	})

	t.Run("is idempotent on dimensions and format", func(t *testing.T) {
		t.Parallel()

		n := NewNormalizer(WithMaxWidth(500))
		first := n.Normalize(encodePNG(t, image.NewRGBA(image.Rect(0, 0, 1000, 777))))
		second := n.Normalize(first.Data)

		if first.Width != second.Width || first.Height != second.Height || first.Format != second.Format {
			t.Errorf("second pass changed the image: %dx%d %s -> %dx%d %s",
				first.Width, first.Height, first.Format, second.Width, second.Height, second.Format)
		}
	})

	t.Run("returns undecodable data unchanged", func(t *testing.T) {
		t.Parallel()

		data := []byte("<svg xmlns='http://www.w3.org/2000/svg'></svg>")
		result := NewNormalizer().Normalize(data)
		if result.Normalized {
			t.Error("expected normalization to be skipped")
		}
		if !bytes.Equal(result.Data, data) {
			t.Error("expected original bytes")
		}
	})

	t.Run("quality option is applied", func(t *testing.T) {
		t.Parallel()

		img := image.NewRGBA(image.Rect(0, 0, 200, 200))
		for x := range 200 {
			for y := range 200 {
				img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
			}
		}
		data := encodePNG(t, img)

		low := NewNormalizer(WithQuality(10)).Normalize(data)
		high := NewNormalizer(WithQuality(95)).Normalize(data)
		if len(low.Data) >= len(high.Data) {
			t.Errorf("expected lower quality to be smaller: %d >= %d", len(low.Data), len(high.Data))
		}
	})
}

func TestOrient(t *testing.T) {
	t.Parallel()

	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	// A 2x1 image: red on the left, blue on the right.
	newImage := func() *image.RGBA {
		img := image.NewRGBA(image.Rect(0, 0, 2, 1))
		img.Set(0, 0, red)
		img.Set(1, 0, blue)
		return img
	}

	tests := []struct {
		name        string
		orientation int
		w, h        int
		first       color.RGBA
	}{
		{"upright", 1, 2, 1, red},
		{"mirrored", 2, 2, 1, blue},
		{"rotated 180", 3, 2, 1, blue},
		{"rotated 90 clockwise", 6, 1, 2, red},
		{"rotated 90 counter-clockwise", 8, 1, 2, blue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := orient(newImage(), tt.orientation)
			if got.Bounds().Dx() != tt.w || got.Bounds().Dy() != tt.h {
				t.Fatalf("expected %dx%d, got %v", tt.w, tt.h, got.Bounds())
			}
			if c := got.RGBAAt(0, 0); c != tt.first {
				t.Errorf("expected first pixel %v, got %v", tt.first, c)
			}
		})
	}
}

func TestOrientationWithoutExif(t *testing.T) {
	t.Parallel()

	if o := orientation(encodePNG(t, image.NewRGBA(image.Rect(0, 0, 4, 4)))); o != 1 {
		t.Errorf("expected orientation 1, got %d", o)
	}
}

func TestIsVector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		url         string
		want        bool
	}{
		{"image/svg+xml", "https://acme.test/logo", true},
		{"", "https://acme.test/logo.SVG?v=2", true},
		{"image/png", "https://acme.test/logo.png", false},
		{"", "https://acme.test/svg/logo.png", false},
	}

	for _, tt := range tests {
		if got := IsVector(tt.contentType, tt.url); got != tt.want {
			t.Errorf("IsVector(%q, %q) = %v, want %v", tt.contentType, tt.url, got, tt.want)
		}
	}
}
