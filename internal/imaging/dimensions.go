package imaging

import (
	"bytes"
	"image"
)

// Dimensions returns the size recorded in a raster image header.
func Dimensions(data []byte) (width, height int, ok bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
