// Package pipeline runs one extraction through its stages: crawl the site,
// download and store its media, derive the brand brief, then write the run
// to disk and to the history database.
//
// Each stage is a Step that receives the shared *model.Extraction and adds
// its part. Writing steps are finalizers: they run even after a failure or
// a timeout so partial results are never lost.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. Steps can be added or removed without modifying the core loop
// 2. It provides consistent error handling and logging across steps
// 3. Step boundaries are the natural points to report job progress
//
// Several targets are processed concurrently by the BatchProcessor using
// errgroup, each target owning its own pipeline and extraction.
package pipeline
