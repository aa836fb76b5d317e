// Package model defines the core data structures used throughout brandscan.
//
// This package contains the following main types:
//   - CrawlJob: The immutable parameters of one crawl
//   - PageRecord / CrawlResult: What the frontier crawler produced
//   - AssetRecord / AssetManifest: What the asset pipeline stored
//   - Extraction: One run's envelope as it moves through the step pipeline
//   - JobState: Progress of a background extraction served over HTTP
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, asset pipeline, report writers and database all
// share these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage. Raw page HTML is excluded from JSON to keep reports small.
package model
