// Package main provides the entry point for the brandscan CLI.
//
// brandscan crawls a company website and extracts its brand assets: logos,
// images, video references, page text and a brand brief.
//
// Usage:
//
//	brandscan scan <url>
//	brandscan serve --addr :8080
//
// See --help for all available options.
package main

func main() {
	Execute()
}
