// Package output writes an extraction run to a directory and packs run
// directories into zip archives.
//
// # Layout
//
//	<root>/
//	├── extraction_report.txt   console report without colors
//	├── html/NNN_<name>.html    raw HTML of each page, in crawl order
//	├── info/
//	│   ├── raw.txt             text chunks, one per line
//	│   ├── brand_brief.md      brand brief
//	│   └── manifest.json       asset manifest
//	└── media/
//	    ├── logos/              images classified as logos
//	    ├── videos.txt          referenced video URLs
//	    └── ...                 every other stored image
//
// Images reach media/ through the Sink returned by Layout.Sink while the
// asset pipeline runs. Everything else is written after the run.
package output
