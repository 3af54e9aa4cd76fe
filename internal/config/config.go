package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind is the type of a published repository
type Kind string

const (
	KindDebian    Kind = "debian"
	KindHtmlLinks Kind = "html-links"
)

// Config is the contents of a bulk.yaml file
type Config struct {
	Metadata     *Metadata    `yaml:"metadata"`
	Repositories []Repository `yaml:"repositories"`
}

// Metadata describes the package built by the pack command
type Metadata struct {
	Name             string   `yaml:"name"`
	Architecture     string   `yaml:"architecture"`
	ShortDescription string   `yaml:"short-description"`
	LongDescription  string   `yaml:"long-description"`
	Maintainer       string   `yaml:"maintainer"`
	Homepage         string   `yaml:"homepage"`
	Depends          []string `yaml:"depends"`
	Section          string   `yaml:"section"`
	Priority         string   `yaml:"priority"`
}

// Repository is one entry of the repositories list
type Repository struct {
	Kind         Kind   `yaml:"kind"`
	MatchVersion string `yaml:"match-version"`
	SkipVersion  string `yaml:"skip-version"`

	// debian
	Suite            string `yaml:"suite"`
	Component        string `yaml:"component"`
	AddEmptyI386Repo bool   `yaml:"add-empty-i386-repo"`

	// html-links
	Index string `yaml:"index"`
	Files string `yaml:"files"`
}

// ErrMissingField is wrapped by validation errors for absent required fields
var ErrMissingField = errors.New("missing required field")

// ParseFile reads and validates a configuration file
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates configuration data
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every repository entry
func (c *Config) Validate() error {
	for i := range c.Repositories {
		if err := c.Repositories[i].Validate(); err != nil {
			return fmt.Errorf("repositories[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks that the entry has a known kind and the fields it needs
func (r *Repository) Validate() error {
	switch r.Kind {
	case KindDebian:
		if r.Suite == "" || r.Component == "" {
			return fmt.Errorf("%w: debian repository requires suite and component to be specified", ErrMissingField)
		}
	case KindHtmlLinks:
	case "":
		return fmt.Errorf("%w: kind", ErrMissingField)
	default:
		return fmt.Errorf("unknown repository kind %q", r.Kind)
	}
	return nil
}
