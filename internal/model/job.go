package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RobotsStance decides what the crawler does when robots.txt disallows a URL.
type RobotsStance string

const (
	// RobotsWarn logs the disallowed URL and crawls it anyway.
	RobotsWarn RobotsStance = "warn"

	// RobotsRespect skips disallowed URLs.
	RobotsRespect RobotsStance = "respect"
)

// ParseRobotsStance converts a user-supplied string into a RobotsStance.
// An empty string selects RobotsWarn.
func ParseRobotsStance(s string) (RobotsStance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(RobotsWarn):
		return RobotsWarn, nil
	case string(RobotsRespect):
		return RobotsRespect, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRobotsStance, s)
	}
}

// Crawl job validation errors.
var (
	// ErrInvalidMaxDepth is returned when MaxDepth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxPages is returned when MaxPages is less than one.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be at least 1")

	// ErrInvalidDelay is returned when Delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidRobotsStance is returned for an unknown robots stance.
	ErrInvalidRobotsStance = errors.New("invalid robots stance: must be warn or respect")
)

// CrawlJob holds the parameters of a single crawl.
// It is passed by value and never modified once a crawl has started.
type CrawlJob struct {
	// StartURL is the seed of the crawl. A missing scheme is completed
	// with https:// by the URL policy.
	StartURL string `json:"start_url"`

	// MaxDepth is the maximum link distance from the seed.
	// 0 means only the seed page is fetched.
	MaxDepth int `json:"max_depth"`

	// MaxPages caps the number of successfully fetched pages.
	MaxPages int `json:"max_pages"`

	// Delay is the minimum spacing between two page fetches.
	Delay time.Duration `json:"delay"`

	// SameDomain restricts the crawl to the exact host of the seed.
	// When false, sibling subdomains of the same registrable domain are
	// also crawled.
	SameDomain bool `json:"same_domain"`

	// RobotsStance selects the robots.txt behavior.
	RobotsStance RobotsStance `json:"robots_stance"`
}

// Validate checks the numeric limits of the job.
// The start URL is checked separately by the URL policy because it needs
// normalization first.
func (j CrawlJob) Validate() error {
	if j.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if j.MaxPages < 1 {
		return ErrInvalidMaxPages
	}
	if j.Delay < 0 {
		return ErrInvalidDelay
	}
	if j.RobotsStance != "" && j.RobotsStance != RobotsWarn && j.RobotsStance != RobotsRespect {
		return ErrInvalidRobotsStance
	}
	return nil
}

// FrontierEntry is a URL waiting in the crawl queue together with its
// link distance from the seed.
type FrontierEntry struct {
	URL   string
	Depth int
}
