// Package imaging converts downloaded raster images into the canonical
// stored form: upright, opaque RGB, at most 1920 pixels wide, JPEG
// encoded at quality 85.
//
// Normalization never fails from the caller's point of view. Anything
// that cannot be decoded or encoded is returned unchanged with
// Normalized set to false.
package imaging
