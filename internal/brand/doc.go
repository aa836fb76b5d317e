// Package brand infers a brand brief from the text and styles of a crawled
// website.
//
// The analysis is a set of keyword tables and regular expressions applied
// to the concatenated page text. It is a heuristic: every field may be
// empty, and Render prints a placeholder for fields that could not be
// inferred instead of inventing values.
//
// Colors and fonts are read from the raw HTML of the crawled pages, where
// inline styles and <style> blocks still live. The text chunks alone have
// those stripped by the parser.
package brand
