// Package config contains the loader and strongly typed model for mergelog.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mergelog/mergelogctl/internal/digest"
	"github.com/mergelog/mergelogctl/internal/env"
)

// Config is the full mergelog.yaml model after defaults are applied.
type Config struct {
	// Repo is the "owner/name" slug of the source repository.
	Repo string `yaml:"repo"`
	// EnvFiles lists .env files loaded before credentials are resolved.
	EnvFiles []string `yaml:"envFiles,omitempty"`
	// Site describes the published site the digest belongs to.
	Site SiteConfig `yaml:"site,omitempty"`
	// Paths locates the partition directory and derived artifacts.
	Paths PathsConfig `yaml:"paths,omitempty"`
	// Digest tunes partitioning, the fetch window and summary pacing.
	Digest DigestConfig `yaml:"digest,omitempty"`
	// LLM configures the summarization endpoint.
	LLM LLMConfig `yaml:"llm,omitempty"`

	// baseDir is the directory mergelog.yaml was loaded from.
	baseDir string
}

// SiteConfig describes the published site.
type SiteConfig struct {
	// Title is the feed and site title.
	Title string `yaml:"title,omitempty"`
	// Description is the feed description.
	Description string `yaml:"description,omitempty"`
	// BaseURL is the absolute URL of the digest section, used for feed links.
	BaseURL string `yaml:"baseUrl,omitempty"`
}

// PathsConfig locates everything the pipeline reads and writes.
type PathsConfig struct {
	// DocsDir is the directory holding the partition files.
	DocsDir string `yaml:"docsDir,omitempty"`
	// LandingPage is the aggregator page filename inside DocsDir.
	LandingPage string `yaml:"landingPage,omitempty"`
	// Manifest is the partition manifest JSON path.
	Manifest string `yaml:"manifest,omitempty"`
	// DataStore is the flattened JSON store path.
	DataStore string `yaml:"dataStore,omitempty"`
	// Feed is the RSS feed output path.
	Feed string `yaml:"feed,omitempty"`
}

// DigestConfig tunes partitioning and pipeline pacing.
type DigestConfig struct {
	// Bucket selects the partition scheme: "month" or "week".
	Bucket string `yaml:"bucket,omitempty"`
	// WindowHours is the trailing fetch window in hours.
	WindowHours int `yaml:"windowHours,omitempty"`
	// SummaryDelay is the pause between summarization calls (e.g. "2s").
	SummaryDelay string `yaml:"summaryDelay,omitempty"`
	// URLPrefix is the site-relative prefix of partition page URLs.
	URLPrefix string `yaml:"urlPrefix,omitempty"`
}

// LLMConfig configures the summarization endpoint.
type LLMConfig struct {
	// BaseURL is the chat-completions endpoint; empty selects OpenAI.
	BaseURL string `yaml:"baseUrl,omitempty"`
	// Model is the model identifier used for summaries.
	Model string `yaml:"model,omitempty"`
}

// Credentials carries the secrets required before any I/O happens.
type Credentials struct {
	// GitHubToken authenticates repository API calls (GITHUB_TOKEN).
	GitHubToken string
	// LLMAPIKey authenticates summarization calls (MERGELOG_LLM_API_KEY).
	LLMAPIKey string
}

// Load reads mergelog.yaml, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", absPath, err)
	}
	cfg.baseDir = filepath.Dir(absPath)

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills empty fields with the standard layout.
func (c *Config) applyDefaults() {
	if c.Paths.DocsDir == "" {
		c.Paths.DocsDir = "docs/merges"
	}
	if c.Paths.LandingPage == "" {
		c.Paths.LandingPage = "index.md"
	}
	if c.Paths.Manifest == "" {
		c.Paths.Manifest = filepath.Join(c.Paths.DocsDir, "manifest.json")
	}
	if c.Paths.DataStore == "" {
		c.Paths.DataStore = "data/merges.json"
	}
	if c.Paths.Feed == "" {
		c.Paths.Feed = "public/merges.xml"
	}
	if c.Digest.Bucket == "" {
		c.Digest.Bucket = string(digest.BucketMonthly)
	}
	if c.Digest.WindowHours <= 0 {
		c.Digest.WindowHours = 24
	}
	if c.Digest.SummaryDelay == "" {
		c.Digest.SummaryDelay = "2s"
	}
	if c.Digest.URLPrefix == "" {
		c.Digest.URLPrefix = "/merges"
	}
	if c.Site.Title == "" {
		c.Site.Title = "Merge digest"
	}
	if c.Site.Description == "" {
		c.Site.Description = "Summaries of recently merged pull requests."
	}
}

// Validate checks the loaded config for structural problems.
func (c *Config) Validate() error {
	repo := strings.TrimSpace(c.Repo)
	if repo == "" {
		return fmt.Errorf("repo must be set in mergelog.yaml")
	}
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return fmt.Errorf("invalid repo slug %q, expected owner/repo", repo)
	}
	if _, err := digest.ParseBucketScheme(c.Digest.Bucket); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.Digest.SummaryDelay); err != nil {
		return fmt.Errorf("invalid summaryDelay %q: %w", c.Digest.SummaryDelay, err)
	}
	if strings.TrimSpace(c.Site.BaseURL) == "" {
		return fmt.Errorf("site.baseUrl must be set in mergelog.yaml")
	}
	return nil
}

// BucketScheme returns the validated partition scheme.
func (c *Config) BucketScheme() digest.BucketScheme {
	scheme, err := digest.ParseBucketScheme(c.Digest.Bucket)
	if err != nil {
		return digest.BucketMonthly
	}
	return scheme
}

// SummaryDelay returns the validated pause between summarization calls.
func (c *Config) SummaryDelay() time.Duration {
	d, err := time.ParseDuration(c.Digest.SummaryDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// Window returns the trailing fetch window.
func (c *Config) Window() time.Duration {
	return time.Duration(c.Digest.WindowHours) * time.Hour
}

// LoadCredentials resolves secrets from the configured envFiles merged with
// the process environment, the latter taking precedence.
func (c *Config) LoadCredentials() (Credentials, error) {
	fileVars, err := env.LoadEnvFiles(c.baseDir, c.EnvFiles)
	if err != nil {
		return Credentials{}, err
	}
	merged := env.Merge(fileVars, env.FromOS())

	return Credentials{
		GitHubToken: merged["GITHUB_TOKEN"],
		LLMAPIKey:   merged["MERGELOG_LLM_API_KEY"],
	}, nil
}

// Validate reports which required credentials are missing. The run aborts
// on this before any network or filesystem I/O.
func (cr Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(cr.GitHubToken) == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if strings.TrimSpace(cr.LLMAPIKey) == "" {
		missing = append(missing, "MERGELOG_LLM_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}
