// Package config loads emile's per-site configuration.
//
// Settings come from emile.toml (found by walking up from the site root),
// EMILE_* environment variables and Zola's own config.toml, which provides
// base_url and default_language.
package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Config is the resolved configuration of one Zola site.
type Config struct {
	// Root is the absolute path of the site (the directory holding emile.toml)
	Root string `mapstructure:"-" toml:"-"`

	DraftsCreationDir    string `mapstructure:"drafts_creation_dir" toml:"drafts_creation_dir"`
	DraftsYearShift      int    `mapstructure:"drafts_year_shift" toml:"drafts_year_shift"`
	DraftTemplate        string `mapstructure:"draft_template" toml:"draft_template"`
	PublishDest          string `mapstructure:"publish_dest" toml:"publish_dest"`
	ScheduleDir          string `mapstructure:"schedule_dir" toml:"schedule_dir"`
	Timezone             int    `mapstructure:"timezone" toml:"timezone"`     // hours east of UTC
	Debouncing           int    `mapstructure:"debouncing" toml:"debouncing"` // seconds
	DefaultSchTime       string `mapstructure:"default_sch_time" toml:"default_sch_time"`
	BuildCommand         string `mapstructure:"build_command" toml:"build_command"`
	MaxRebuildsPerMinute int    `mapstructure:"max_rebuilds_per_minute" toml:"max_rebuilds_per_minute"`
	HistoryDB            string `mapstructure:"history_db" toml:"history_db"`

	Social *SocialConfig `mapstructure:"social" toml:"social,omitempty"`
	Git    GitConfig     `mapstructure:"git" toml:"git"`

	// Read from Zola's config.toml
	BaseURL     string `mapstructure:"-" toml:"base_url,omitempty"`
	DefaultLang string `mapstructure:"-" toml:"default_language,omitempty"`
}

// SocialConfig configures announcements of new posts.
type SocialConfig struct {
	SocialTemplate string           `mapstructure:"social_template" toml:"social_template"`
	LinkTemplate   string           `mapstructure:"link_template" toml:"link_template"`
	LinkTag        string           `mapstructure:"link_tag" toml:"link_tag"`
	TagLang        []TagLang        `mapstructure:"tag_lang" toml:"tag_lang"`
	FilteredTag    []string         `mapstructure:"filtered_tag" toml:"filtered_tag"`
	Instances      []SocialInstance `mapstructure:"instances" toml:"instances"`
}

// TagLang maps a post tag to the language of its announcement.
type TagLang struct {
	Tag  string `mapstructure:"tag" toml:"tag"`
	Lang string `mapstructure:"lang" toml:"lang"`
}

// Social platform identifiers accepted in SocialInstance.API.
const (
	APIMastodon = "mastodon"
	APIBluesky  = "bluesky"
)

// SocialInstance is one account to post to.
type SocialInstance struct {
	Server    string `mapstructure:"server" toml:"server"`
	API       string `mapstructure:"api" toml:"api"`
	TokenVar  string `mapstructure:"token_var" toml:"token_var"`   // env var holding the access token / app password
	HandleVar string `mapstructure:"handle_var" toml:"handle_var"` // env var holding the account handle (Bluesky)
}

// GitConfig enables syncing the site repository around publications.
type GitConfig struct {
	Enabled     bool   `mapstructure:"enabled" toml:"enabled"`
	Remote      string `mapstructure:"remote" toml:"remote"`
	AuthorName  string `mapstructure:"author_name" toml:"author_name"`
	AuthorEmail string `mapstructure:"author_email" toml:"author_email"`
}

// Platform returns the display name of the instance's API ("Mastodon", "Bluesky").
func (i SocialInstance) Platform() string {
	switch strings.ToLower(i.API) {
	case APIMastodon:
		return "Mastodon"
	case APIBluesky:
		return "Bluesky"
	default:
		return i.API
	}
}

// Location returns the fixed-offset zone posts are dated in.
func (c *Config) Location() *time.Location {
	if c.Timezone == 0 {
		return time.UTC
	}
	return time.FixedZone("", c.Timezone*3600)
}

// DebounceWindow returns the watcher quiet period.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Debouncing) * time.Second
}

// DefaultTime returns default_sch_time as a duration since midnight.
// Validate guarantees it parses.
func (c *Config) DefaultTime() time.Duration {
	d, _ := parseClock(c.DefaultSchTime)
	return d
}

// Abs resolves a site-relative path against Root. Absolute paths are kept.
func (c *Config) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(c.Root, rel)
}

// DraftsPath is the absolute drafts creation directory.
func (c *Config) DraftsPath() string { return c.Abs(c.DraftsCreationDir) }

// SchedulePath is the absolute schedule directory.
func (c *Config) SchedulePath() string { return c.Abs(c.ScheduleDir) }

// PublishPath is the absolute publish destination.
func (c *Config) PublishPath() string { return c.Abs(c.PublishDest) }

// TemplatesPath is the absolute Zola templates directory.
func (c *Config) TemplatesPath() string { return c.Abs("templates") }

// HistoryPath is the absolute path of the publication log database.
func (c *Config) HistoryPath() string { return c.Abs(c.HistoryDB) }
