package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/emile/draft"
)

// ScheduleCmd dates a post and moves it into the schedule directory.
var ScheduleCmd = &cobra.Command{
	Use:   "schedule <when> <slug>",
	Short: "Schedule a draft for publication",
	Long: `Set the date of <slug>.md and move it into schedule_dir, where a
running "emile watch" publishes it when due.

<when> accepts now, today, tomorrow, weekday names, YYYY-MM-DD, MM-DD, DD,
HH:MM[:SS] and combinations, plus offsets like "+ 2 hours". Missing parts
come from now and default_sch_time.

Examples:
  emile schedule tomorrow my-post
  emile schedule "friday 18:00" my-post
  emile schedule "11:11 + 3 days" my-post`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}

		dest, at, err := draft.Schedule(cfg, args[1], args[0], time.Now())
		if err != nil {
			return err
		}
		success("Scheduled %s for %s", dest, at.Format("Mon 2006-01-02 15:04 -0700"))
		if at.Before(time.Now()) {
			warning("That date is in the past: the post is published as soon as emile watch sees it")
		}
		return nil
	},
}

// UnscheduleCmd moves a scheduled post back to the drafts.
var UnscheduleCmd = &cobra.Command{
	Use:   "unschedule <slug>",
	Short: "Move a scheduled post back to the drafts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}

		dest, err := draft.Unschedule(cfg, args[0])
		if err != nil {
			return err
		}
		success("Moved back to %s", dest)
		return nil
	},
}
