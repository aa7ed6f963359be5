package app

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	coreconfig "festbot/core/config"
	coredatabase "festbot/core/database"
	"festbot/internal/conversation"
)

const (
	// SourceFile loads sections and events from a YAML file.
	SourceFile = "file"
	// SourcePostgres loads sections and events from the content tables.
	SourcePostgres = "postgres"

	defaultContentFile = "configs/content.yaml"
)

// ContentConfig selects where festival content comes from and how the
// conversation behaves.
type ContentConfig struct {
	Source string `yaml:"source" envconfig:"CONTENT_SOURCE"`
	File   string `yaml:"file" envconfig:"CONTENT_FILE"`
	// SeedFile, when set with the postgres source, replaces the content
	// tables with this YAML document at startup.
	SeedFile        string `yaml:"seed_file" envconfig:"CONTENT_SEED_FILE"`
	ScheduleSection string `yaml:"schedule_section" envconfig:"CONTENT_SCHEDULE_SECTION"`
	// Timezone is an IANA name; empty means the host zone.
	Timezone      string                `yaml:"timezone" envconfig:"FESTIVAL_TIMEZONE"`
	CancelPattern string                `yaml:"cancel_pattern" envconfig:"CONTENT_CANCEL_PATTERN"`
	Messages      conversation.Messages `yaml:"messages" ignored:"true"`

	location *time.Location
	cancel   *regexp.Regexp
}

// Location returns the festival time zone resolved by Normalize.
func (c ContentConfig) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// CancelRegexp returns the compiled cancel pattern resolved by Normalize.
func (c ContentConfig) CancelRegexp() *regexp.Regexp {
	return c.cancel
}

// Config is the festbot configuration: the shared core sections plus the
// database and content sections.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Content  ContentConfig       `yaml:"content"`
}

// CoreConfig exposes the embedded core configuration to the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// UsesDatabase reports whether the content source needs Postgres.
func (c *Config) UsesDatabase() bool {
	return c.Content.Source == SourcePostgres
}

// LoadConfig reads the YAML file at path, applies environment overrides and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates core, database and content settings and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	c := &cfg.Content
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	if c.Source == "" {
		c.Source = SourceFile
	}
	switch c.Source {
	case SourceFile:
		if strings.TrimSpace(c.File) == "" {
			c.File = defaultContentFile
		}
	case SourcePostgres:
		if err := cfg.Database.Normalize(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid content.source %q; allowed: file, postgres", c.Source)
	}
	c.ScheduleSection = strings.TrimSpace(c.ScheduleSection)

	c.Timezone = strings.TrimSpace(c.Timezone)
	c.location = time.Local
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid content.timezone %q: %w", c.Timezone, err)
		}
		c.location = loc
	}

	re, err := conversation.CompileCancelPattern(c.CancelPattern)
	if err != nil {
		return fmt.Errorf("invalid content.cancel_pattern: %w", err)
	}
	c.cancel = re
	c.Messages = c.Messages.WithDefaults()
	return nil
}
