package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docsite/internal/retry"
)

// Config represents the application configuration.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Output   OutputConfig   `yaml:"output"`
	Locales  LocalesConfig  `yaml:"locales"`
	Build    BuildConfig    `yaml:"build"`
	Sync     SyncConfig     `yaml:"sync,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
	State    StateConfig    `yaml:"state,omitempty"`
	Notify   NotifyConfig   `yaml:"notify,omitempty"`
	Schedule ScheduleConfig `yaml:"schedule,omitempty"`
}

// SourceConfig describes the checkout of the documented project.
type SourceConfig struct {
	Root          string `yaml:"root"`           // Local checkout of the project
	RepositoryURL string `yaml:"repository_url"` // Browse URL used for code links, e.g. https://github.com/org/repo
	Branch        string `yaml:"branch,omitempty"`
	CloneURL      string `yaml:"clone_url,omitempty"` // When set, `sync` clones/pulls Root from here
	ExamplesDir   string `yaml:"examples_dir,omitempty"`
	DocsDir       string `yaml:"docs_dir,omitempty"`
	AssetsDir     string `yaml:"assets_dir,omitempty"` // Project-wide shared assets
	Readme        string `yaml:"readme,omitempty"`     // Project README published as the index page
}

// OutputConfig represents where the site content is written.
type OutputConfig struct {
	Root            string `yaml:"root"`
	PagesDir        string `yaml:"pages_dir,omitempty"`
	CookbookDir     string `yaml:"cookbook_dir,omitempty"` // Relative to PagesDir
	PublicAssetsDir string `yaml:"public_assets_dir,omitempty"`
}

// LocalesConfig names the two published locales.
type LocalesConfig struct {
	Default         string `yaml:"default"`
	Secondary       string `yaml:"secondary"`
	SecondaryMarker string `yaml:"secondary_marker"`
}

// BuildConfig tunes a single pipeline run.
type BuildConfig struct {
	Concurrency int  `yaml:"concurrency,omitempty"`
	Audit       bool `yaml:"audit,omitempty"`  // Report relative links left in output
	Strict      bool `yaml:"strict,omitempty"` // Fail the run when any file was skipped
}

// SyncConfig controls how `sync` clones or pulls Source.CloneURL.
type SyncConfig struct {
	Token             string        `yaml:"token,omitempty"` // HTTPS token, usually ${GIT_TOKEN}
	Depth             int           `yaml:"depth,omitempty"` // 0 clones full history
	MaxRetries        int           `yaml:"max_retries,omitempty"`
	RetryBackoff      string        `yaml:"retry_backoff,omitempty"` // fixed|linear|exponential
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay,omitempty"`
	RetryMaxDelay     time.Duration `yaml:"retry_max_delay,omitempty"`
}

// RetryPolicy returns the retry policy for network operations.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.NewPolicy(retry.BackoffMode(c.Sync.RetryBackoff), c.Sync.RetryInitialDelay, c.Sync.RetryMaxDelay, c.Sync.MaxRetries)
}

// MetricsConfig enables Prometheus metrics exported to a node-exporter textfile.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// StateConfig enables the SQLite build ledger.
type StateConfig struct {
	LedgerPath string `yaml:"ledger_path,omitempty"`
}

// NotifyConfig publishes a build summary to NATS after every run.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// ScheduleConfig drives the `schedule` command.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval,omitempty"`
	Cron     string        `yaml:"cron,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes YAML configuration, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ExamplesPath returns the directory holding one subdirectory per example.
func (c *Config) ExamplesPath() string { return filepath.Join(c.Source.Root, c.Source.ExamplesDir) }

// DocsPath returns the general documentation tree.
func (c *Config) DocsPath() string { return filepath.Join(c.Source.Root, c.Source.DocsDir) }

// SharedAssetsPath returns the project-wide assets directory.
func (c *Config) SharedAssetsPath() string { return filepath.Join(c.Source.Root, c.Source.AssetsDir) }

// ReadmePath returns the project README published as the site index.
func (c *Config) ReadmePath() string { return filepath.Join(c.Source.Root, c.Source.Readme) }

// PagesPath returns the output pages root.
func (c *Config) PagesPath() string { return filepath.Join(c.Output.Root, c.Output.PagesDir) }

// CookbookPath returns the directory receiving example pages and navigation metadata.
func (c *Config) CookbookPath() string { return filepath.Join(c.PagesPath(), c.Output.CookbookDir) }

// PublicAssetsPath returns the public assets root.
func (c *Config) PublicAssetsPath() string {
	return filepath.Join(c.Output.Root, c.Output.PublicAssetsDir)
}

// CodeURL returns the browse URL of an example directory in the source repository.
func (c *Config) CodeURL(example string) string {
	return c.TreeURL() + "/" + strings.Trim(filepath.ToSlash(c.Source.ExamplesDir), "/") + "/" + example
}

// TreeURL returns the browse URL of the configured branch root.
func (c *Config) TreeURL() string {
	return strings.TrimSuffix(c.Source.RepositoryURL, "/") + "/tree/" + c.Source.Branch
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Source: SourceConfig{
			Root:          "./pluto",
			RepositoryURL: "https://github.com/pluto-lang/pluto",
			Branch:        "main",
			CloneURL:      "https://github.com/pluto-lang/pluto.git",
		},
		Output: OutputConfig{Root: "."},
		Build:  BuildConfig{Concurrency: 4, Audit: true},
		Sync:   SyncConfig{Depth: 1, MaxRetries: 2, RetryBackoff: string(retry.BackoffExponential)},
	}
	ApplyDefaults(&example)

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
