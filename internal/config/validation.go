package config

import (
	"net/url"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/retry"
)

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	if c.Source.RepositoryURL == "" {
		return errors.ConfigError("source.repository_url is required").Build()
	}
	u, err := url.Parse(c.Source.RepositoryURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.ConfigError("source.repository_url must be an absolute URL").
			WithContext("repository_url", c.Source.RepositoryURL).Build()
	}

	if c.Locales.Default == c.Locales.Secondary {
		return errors.ConfigError("locales.default and locales.secondary must differ").Build()
	}
	if strings.ContainsAny(c.Locales.SecondaryMarker, "./\\") {
		return errors.ConfigError("locales.secondary_marker must be a plain filename suffix").
			WithContext("secondary_marker", c.Locales.SecondaryMarker).Build()
	}

	outputs := []struct{ name, dir string }{
		{"output.pages_dir", c.Output.PagesDir},
		{"output.cookbook_dir", c.Output.CookbookDir},
		{"output.public_assets_dir", c.Output.PublicAssetsDir},
	}
	for _, o := range outputs {
		clean := filepath.Clean(o.dir)
		if filepath.IsAbs(o.dir) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return errors.ConfigError(o.name+" must be relative and stay inside its parent").
				WithContext("value", o.dir).Build()
		}
	}
	if filepath.Clean(c.Output.CookbookDir) == "." {
		return errors.ConfigError("output.cookbook_dir must be a subdirectory of the pages dir").Build()
	}
	if filepath.Clean(c.Output.PublicAssetsDir) == "." {
		return errors.ConfigError("output.public_assets_dir must not be the output root").Build()
	}

	if c.Sync.RetryBackoff != "" && !retry.BackoffMode(c.Sync.RetryBackoff).Valid() {
		return errors.ConfigError("sync.retry_backoff must be fixed, linear or exponential").
			WithContext("retry_backoff", c.Sync.RetryBackoff).Build()
	}
	if c.Sync.Depth < 0 || c.Sync.MaxRetries < 0 {
		return errors.ConfigError("sync.depth and sync.max_retries must not be negative").Build()
	}
	if c.Source.CloneURL != "" {
		if u, err := url.Parse(c.Source.CloneURL); err != nil || u.Scheme == "" {
			return errors.ConfigError("source.clone_url must be a URL").
				WithContext("clone_url", c.Source.CloneURL).Build()
		}
	}

	if c.Schedule.Interval < 0 {
		return errors.ConfigError("schedule.interval must not be negative").Build()
	}
	return nil
}
