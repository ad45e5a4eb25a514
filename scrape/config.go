// Package scrape populates the word database from jisho.org search pages.
//
// The scraper runs offline, ahead of the server: it fetches search result
// pages for a configured set of keywords, keeps every word entry that has
// at least one example sentence, sanitizes the markup, and stores the
// representation and meaning-wrapper fragments for the daily selection to
// draw from.
package scrape

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "2s" or "500ms" (yaml.v3 has no native duration support).
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("scrape: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the scraper configuration, loaded from YAML.
type Config struct {
	// Database is the SQLite file to write.
	Database string `yaml:"database"`
	// BaseURL is the search endpoint prefix the keyword is appended to.
	BaseURL string `yaml:"base_url"`
	// Keywords are the search terms to scrape, e.g. "#jlpt-n3 #common".
	Keywords []string `yaml:"keywords"`
	// Pages is how many result pages to fetch per keyword.
	Pages int `yaml:"pages"`
	// Delay between page fetches. Polite default: 2s.
	Delay Duration `yaml:"delay"`
	// UserAgent sent with requests.
	UserAgent string `yaml:"user_agent"`
	// Timeout for a single page fetch.
	Timeout Duration `yaml:"timeout"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("scrape: parse config: %w", err)
	}

	cfg.defaults()
	return &cfg, nil
}

func (c *Config) defaults() {
	if c.Database == "" {
		c.Database = "data/jisho_words.db"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://jisho.org/search/"
	}
	if c.Pages <= 0 {
		c.Pages = 1
	}
	if c.Delay <= 0 {
		c.Delay = Duration(2 * time.Second)
	}
	if c.UserAgent == "" {
		c.UserAgent = "kotoba-scrape/1.0"
	}
	if c.Timeout <= 0 {
		c.Timeout = Duration(30 * time.Second)
	}
}
