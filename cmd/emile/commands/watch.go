package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/emile/logger"
	"github.com/teranos/emile/schedule"
	"github.com/teranos/emile/watch"
)

// WatchCmd runs the watcher and the scheduler until interrupted.
var WatchCmd = &cobra.Command{
	Use:   "watch [website]",
	Short: "Watch the site, rebuild on change and publish scheduled posts",
	Long: `Watch content, sass, static, templates and themes of the site.

- A change in schedule_dir (re)schedules the post at its frontmatter date,
  or cancels it when the file is gone or unreadable.
- A change in drafts_creation_dir is ignored.
- Any other change rebuilds the site once per burst of changes
  (debouncing seconds of quiet).

Scheduled posts already present are picked up at startup; overdue ones are
published immediately. Runs until Ctrl+C or SIGTERM.

Example:
  emile watch ~/blog`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSite(siteRoot(cmd, args))
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sched := schedule.New(s.pipeline.Handle)
		w := watch.New(s.cfg, sched, s.builder)

		pterm.Info.Printfln("Watching %s (build: %v, debounce: %s)", s.cfg.Root, s.builder.Command(), s.cfg.DebounceWindow())
		pterm.Info.Println("Press Ctrl+C to stop")

		sched.Start(ctx)
		err = w.Run(ctx)

		// The scheduler may be in the middle of a publication
		sched.Stop()
		logger.Logger.Infow("Stopped", "pending", len(sched.Pending()))
		return err
	},
}
