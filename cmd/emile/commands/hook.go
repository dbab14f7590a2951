package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/emile/draft"
	"github.com/teranos/emile/gitsync"
)

// HookCmd runs the command found in the last commit message.
var HookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run the blog command of the last git commit",
	Long: `Read the message of the last commit of the site repository and run
the command it starts with. Meant for a post-receive or post-merge hook.

  blog_build                 build the site
  blog_sched "<when>" <slug> schedule a draft (see emile schedule)
  blog_unsched <slug>        move a scheduled post back to the drafts

With [git] enabled, the repository is pulled first.`,
	Args: cobra.NoArgs,
	RunE: runHook,
}

func runHook(cmd *cobra.Command, args []string) error {
	root, _ := cmd.Flags().GetString(RootFlag)
	s, err := openSite(root)
	if err != nil {
		return err
	}
	defer s.Close()

	repo, err := gitsync.Open(s.cfg.Root, s.cfg.Git)
	if err != nil {
		return err
	}
	if s.cfg.Git.Enabled {
		if err := repo.Pull(cmd.Context()); err != nil {
			return err
		}
	}

	msg, err := repo.LastMessage()
	if err != nil {
		return err
	}
	c, err := gitsync.ParseCommand(msg)
	if err != nil {
		return err
	}
	pterm.Info.Printfln("Running %s", c.Kind)

	switch c.Kind {
	case gitsync.CommandSchedule:
		dest, at, err := draft.Schedule(s.cfg, c.Slug, c.When, time.Now())
		if err != nil {
			return err
		}
		success("Scheduled %s for %s", dest, at.Format(time.RFC3339))
	case gitsync.CommandUnschedule:
		dest, err := draft.Unschedule(s.cfg, c.Slug)
		if err != nil {
			return err
		}
		success("Moved back to %s", dest)
	default:
		if err := s.builder.Build(cmd.Context()); err != nil {
			return err
		}
		success("Site built")
	}
	return nil
}
