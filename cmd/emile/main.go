package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/emile/cmd/emile/commands"
	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/logger"
)

var rootCmd = &cobra.Command{
	Use:   "emile",
	Short: "emile - a companion for Zola blogs",
	Long: `emile - a companion for Zola blogs.

emile creates drafts, schedules their publication, watches the site to
rebuild it on change, publishes scheduled posts when due and announces them
on Mastodon and Bluesky.

Available commands:
  new        - Create a draft from the draft template
  schedule   - Date a draft and hand it to the watcher
  unschedule - Move a scheduled post back to the drafts
  publish    - Publish a post now
  watch      - Watch the site, rebuild and publish scheduled posts
  status     - List scheduled posts and recent publications
  reslug     - Rename posts after their title
  hook       - Run the blog_* command of the last git commit
  config     - Manage emile.toml

Examples:
  emile new "My next post"
  emile schedule "friday 18:00" 2024-06-27-my-next-post
  emile watch ~/blog`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Log as JSON lines")
	rootCmd.PersistentFlags().StringP(commands.RootFlag, "C", ".", "Site directory (where emile.toml or Zola's config.toml lives)")

	rootCmd.AddCommand(commands.NewCmd)
	rootCmd.AddCommand(commands.ScheduleCmd)
	rootCmd.AddCommand(commands.UnscheduleCmd)
	rootCmd.AddCommand(commands.PublishCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.ReslugCmd)
	rootCmd.AddCommand(commands.HookCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		commands.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
