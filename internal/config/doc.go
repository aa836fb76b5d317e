// Package config provides the configuration of brandscan: the flat Config
// populated from CLI flags and the optional .brandscan YAML file with
// per-site overrides for cookies, headers, budgets and crawl patterns.
package config
