// Package policy decides which URLs a crawl may visit.
//
// It owns three concerns:
//   - URL normalization: the seed URL gets a default scheme, and every
//     discovered link is reduced to a canonical form so the crawler's seen
//     set does not visit the same page twice under different spellings
//   - Scope: whether a URL belongs to the site being crawled
//   - robots.txt: whether the site asks crawlers to stay away from a URL
//
// Design decision: We keep policy separate from the crawler because:
//  1. The parser needs the same scope check to filter links
//  2. The rules are pure functions of the URL and are easy to test alone
//  3. The robots stance is a user decision, not a crawler detail
package policy
