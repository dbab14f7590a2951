package config

import (
	"strings"
	"time"

	"github.com/teranos/emile/errors"
)

// Validate checks that the configuration is valid. Every failure is marked
// errors.ErrConfig, which the CLI treats as fatal.
func (c *Config) Validate() error {
	if c.Timezone < -12 || c.Timezone > 14 {
		return errors.NewConfigError("timezone must be between -12 and 14 hours, got %d", c.Timezone)
	}

	// Debouncing: 0 = classify every event immediately, negative = invalid
	if c.Debouncing < 0 {
		return errors.NewConfigError("debouncing must be >= 0, got %d", c.Debouncing)
	}

	if _, err := parseClock(c.DefaultSchTime); err != nil {
		return errors.WithHint(
			errors.WrapConfig(err, "invalid default_sch_time %q", c.DefaultSchTime),
			"use HH:MM or HH:MM:SS, for example \"12:00\"",
		)
	}

	if strings.TrimSpace(c.BuildCommand) == "" {
		return errors.NewConfigError("build_command cannot be empty")
	}

	if c.MaxRebuildsPerMinute < 0 {
		return errors.NewConfigError("max_rebuilds_per_minute must be >= 0, got %d", c.MaxRebuildsPerMinute)
	}

	for name, dir := range map[string]string{
		"drafts_creation_dir": c.DraftsCreationDir,
		"publish_dest":        c.PublishDest,
		"schedule_dir":        c.ScheduleDir,
	} {
		if dir == "" {
			return errors.NewConfigError("%s cannot be empty", name)
		}
	}

	if c.Social != nil {
		if err := c.Social.validate(); err != nil {
			return err
		}
	}

	if c.Git.Enabled && c.Git.Remote == "" {
		return errors.NewConfigError("git.remote cannot be empty when git is enabled")
	}

	return nil
}

func (s *SocialConfig) validate() error {
	if len(s.Instances) == 0 {
		return errors.WithHint(
			errors.NewConfigError("no social servers defined"),
			"add at least one [[social.instances]] table or remove [social]",
		)
	}

	for i, inst := range s.Instances {
		switch strings.ToLower(inst.API) {
		case APIMastodon:
			if inst.Server == "" {
				return errors.NewConfigError("social.instances[%d]: server cannot be empty for mastodon", i)
			}
		case APIBluesky:
			if inst.HandleVar == "" {
				return errors.NewConfigError("social.instances[%d]: handle_var is required for bluesky", i)
			}
		default:
			return errors.NewConfigError("social.instances[%d]: unknown api %q (want mastodon or bluesky)", i, inst.API)
		}
		if inst.TokenVar == "" {
			return errors.NewConfigError("social.instances[%d]: token_var cannot be empty", i)
		}
	}

	for i, tl := range s.TagLang {
		if tl.Tag == "" || tl.Lang == "" {
			return errors.NewConfigError("social.tag_lang[%d]: tag and lang are required", i)
		}
	}
	return nil
}

// parseClock parses "HH:MM" or "HH:MM:SS" into a duration since midnight.
func parseClock(s string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, errors.Newf("cannot parse %q as a time of day", s)
}
