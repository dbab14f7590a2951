package config

import (
	"github.com/spf13/viper"
)

// Defaults of the [social] table, applied only when the table is present.
const (
	DefaultSocialTemplate = "social.txt"
	DefaultLinkTemplate   = "social_link.txt"
	DefaultLinkTag        = "{$ emile_social $}"
)

// Zola config fallbacks when config.toml is missing or silent.
const (
	DefaultBaseURL  = "localhost"
	DefaultLanguage = "en"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("drafts_creation_dir", "content/drafts")
	v.SetDefault("drafts_year_shift", 0)
	v.SetDefault("draft_template", "draft.md")
	v.SetDefault("publish_dest", "content/posts")
	v.SetDefault("schedule_dir", "content/drafts/scheduled")
	v.SetDefault("timezone", 0)
	v.SetDefault("debouncing", 2)
	v.SetDefault("default_sch_time", "12:00")

	v.SetDefault("build_command", "zola build")
	v.SetDefault("max_rebuilds_per_minute", 0) // 0 = unlimited
	v.SetDefault("history_db", ".emile/history.db")

	v.SetDefault("git.enabled", false)
	v.SetDefault("git.remote", "origin")
	v.SetDefault("git.author_name", "emile")
	v.SetDefault("git.author_email", "emile@localhost")
}

// applySocialDefaults fills unset [social] keys. The table is optional as a
// whole, so its defaults cannot live in viper without making it always present.
func (s *SocialConfig) applySocialDefaults() {
	if s.SocialTemplate == "" {
		s.SocialTemplate = DefaultSocialTemplate
	}
	if s.LinkTemplate == "" {
		s.LinkTemplate = DefaultLinkTemplate
	}
	if s.LinkTag == "" {
		s.LinkTag = DefaultLinkTag
	}
}
