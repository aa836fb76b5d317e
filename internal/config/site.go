package config

import (
	"fmt"
	"maps"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/brandscan/internal/model"
	"github.com/nao1215/brandscan/internal/policy"
)

// SiteConfig holds site-specific configuration for a single host.
// Zero values mean "not set" and fall back to the defaults section or to
// the command line.
type SiteConfig struct {
	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the crawl depth for this site.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the page budget for this site.
	MaxPages int `yaml:"maxPages,omitempty"`

	// MaxMedia overrides the media budget for this site.
	MaxMedia int `yaml:"maxMedia,omitempty"`

	// Delay overrides the crawl delay, e.g. "500ms" or "2s".
	Delay string `yaml:"delay,omitempty"`

	// Robots overrides the robots.txt stance: "warn" or "respect".
	Robots string `yaml:"robots,omitempty"`

	// IgnorePatterns are URL path globs that are never crawled.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict the crawl to matching URL paths.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// SkipMedia are substrings; media URLs containing any of them are
	// never downloaded, e.g. tracking pixels.
	SkipMedia []string `yaml:"skipMedia,omitempty"`
}

// File represents the structure of the .brandscan configuration file.
type File struct {
	// Sites maps hosts to their site-specific configurations.
	// Keys are hosts without scheme, e.g. "acme.com". A leading "www." is
	// ignored on both sides of the lookup.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merging the
// site-specific section over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}

	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	siteConfig, ok := cf.Sites[host]
	if !ok {
		siteConfig, ok = cf.Sites[strings.TrimPrefix(host, "www.")]
	}
	if !ok {
		siteConfig, ok = cf.Sites["www."+host]
	}
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.MaxMedia != 0 {
		result.MaxMedia = siteConfig.MaxMedia
	}
	if siteConfig.Delay != "" {
		result.Delay = siteConfig.Delay
	}
	if siteConfig.Robots != "" {
		result.Robots = siteConfig.Robots
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}
	if len(siteConfig.SkipMedia) > 0 {
		result.SkipMedia = siteConfig.SkipMedia
	}

	return result
}

// Target is a seed URL with every setting that applies to it resolved.
type Target struct {
	// Job is the crawl configuration.
	Job model.CrawlJob

	// Site is the merged config-file section for the seed host.
	Site SiteConfig

	// MaxMedia is the media budget after site overrides.
	MaxMedia int
}

// ResolveTarget applies the config file's site section to a seed URL.
// Values from the config file override the command line because they are
// the more specific setting.
func (c *Config) ResolveTarget(rawURL string) (Target, error) {
	seed, err := policy.NormalizeSeed(rawURL)
	if err != nil {
		return Target{}, err
	}

	host := ""
	if u, err := url.Parse(seed); err == nil {
		host = u.Hostname()
	}
	site := c.SiteConfigs.GetSiteConfig(host)

	t := Target{
		Job: model.CrawlJob{
			StartURL:     seed,
			MaxDepth:     c.MaxDepth,
			MaxPages:     c.MaxPages,
			Delay:        c.CrawlDelay,
			SameDomain:   c.SameDomain,
			RobotsStance: c.RobotsStance(),
		},
		Site:     site,
		MaxMedia: c.MaxMedia,
	}

	if site.Depth != 0 {
		t.Job.MaxDepth = site.Depth
	}
	if site.MaxPages != 0 {
		t.Job.MaxPages = site.MaxPages
	}
	if site.MaxMedia != 0 {
		t.MaxMedia = site.MaxMedia
	}
	if site.Delay != "" {
		d, err := time.ParseDuration(site.Delay)
		if err != nil {
			return Target{}, fmt.Errorf("%w: %q", ErrInvalidSiteDelay, site.Delay)
		}
		t.Job.Delay = d
	}
	if site.Robots != "" {
		stance, err := model.ParseRobotsStance(site.Robots)
		if err != nil {
			return Target{}, err
		}
		t.Job.RobotsStance = stance
	}

	return t, t.Job.Validate()
}

// MediaFilter returns a predicate rejecting media URLs that contain one of
// the site's SkipMedia substrings, or nil when there are none.
func (s SiteConfig) MediaFilter() func(string) bool {
	if len(s.SkipMedia) == 0 {
		return nil
	}
	skip := s.SkipMedia
	return func(u string) bool {
		for _, sub := range skip {
			if sub != "" && strings.Contains(u, sub) {
				return false
			}
		}
		return true
	}
}
