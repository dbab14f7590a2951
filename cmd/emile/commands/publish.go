package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/emile/draft"
	"github.com/teranos/emile/social"
)

// PublishCmd publishes a post right away.
var PublishCmd = &cobra.Command{
	Use:   "publish <slug>",
	Short: "Publish a draft or scheduled post now",
	Long: `Publish <slug>.md from drafts_creation_dir (or schedule_dir) now.

The post is moved to publish_dest with draft removed and date set to now,
the site is built, and the post is announced on the configured social
instances.

Example:
  emile publish 2024-06-27-scheduling-posts`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString(RootFlag)
		s, err := openSite(root)
		if err != nil {
			return err
		}
		defer s.Close()

		src, err := draft.Find(s.cfg, args[0])
		if err != nil {
			return err
		}

		out, err := s.pipeline.Publish(cmd.Context(), src)
		if err != nil {
			return err
		}
		if out.Skipped {
			warning("Nothing published: %s", out.Reason)
			return nil
		}

		success("Published %s", out.Dest)
		if out.BuildErr != nil {
			PrintError(cmd.ErrOrStderr(), out.BuildErr)
		}
		printResults(out.Results)
		return nil
	},
}

func printResults(results []social.Result) {
	for _, r := range results {
		if r.Err != nil {
			warning("%s (%s): %v", r.Platform, r.Instance, r.Err)
			continue
		}
		success("%s: %s", r.Platform, r.URL)
	}
}
