// Package asset downloads the media a crawl discovered and turns it into
// a deduplicated, classified and normalized set of stored images.
//
// # Architecture
//
// Processing has two stages:
//
//   - Fetch: media URLs are downloaded with a bounded number of requests
//     in flight (one by default)
//   - Commit: results are consumed strictly in media URL order by a
//     single goroutine that hashes, deduplicates, classifies, normalizes
//     and writes each image
//
// Because the commit stage is single-owner and ordered, which URL wins a
// duplicate and every counter in the manifest are the same for any
// concurrency setting.
//
// # Storage
//
// Stored bytes go through a Sink. DirSink writes below an output
// directory, MemorySink keeps objects in memory for tests and the HTTP
// API. Keys are "media/<name>" for ordinary images and
// "media/logos/<name>" for logos.
package asset
