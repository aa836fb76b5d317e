package imaging

import (
	"image"
	"strconv"

	exif "github.com/dsoprea/go-exif/v3"
)

// orientationTag is the EXIF tag holding image orientation.
const orientationTag = "Orientation"

// orientation returns the EXIF orientation (1-8) of data, or 1 when the
// data carries no usable EXIF block.
func orientation(data []byte) int {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return 1
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 1
	}

	for _, entry := range entries {
		if entry.TagName != orientationTag {
			continue
		}
		v := 0
		switch value := entry.Value.(type) {
		case []uint16:
			if len(value) > 0 {
				v = int(value[0])
			}
		default:
			v, _ = strconv.Atoi(entry.FormattedFirst) //nolint:errcheck // zero is rejected below
		}
		if v >= 1 && v <= 8 {
			return v
		}
		return 1
	}
	return 1
}

// orient returns img transformed so that orientation o displays upright.
func orient(img *image.RGBA, o int) *image.RGBA {
	if o <= 1 || o > 8 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	// Orientations 5-8 swap the axes.
	dw, dh := w, h
	if o >= 5 {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))

	for y := range h {
		for x := range w {
			var dx, dy int
			switch o {
			case 2: // mirror horizontal
				dx, dy = w-1-x, y
			case 3: // rotate 180
				dx, dy = w-1-x, h-1-y
			case 4: // mirror vertical
				dx, dy = x, h-1-y
			case 5: // transpose
				dx, dy = y, x
			case 6: // rotate 90 clockwise
				dx, dy = h-1-y, x
			case 7: // transverse
				dx, dy = h-1-y, w-1-x
			case 8: // rotate 90 counter-clockwise
				dx, dy = y, w-1-x
			}
			si := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := dst.PixOffset(dx, dy)
			copy(dst.Pix[di:di+4], img.Pix[si:si+4])
		}
	}
	return dst
}
