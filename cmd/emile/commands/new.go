package commands

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/emile/draft"
)

// NewCmd creates a draft.
var NewCmd = &cobra.Command{
	Use:   "new <title>",
	Short: "Create a new draft post",
	Long: `Create a draft in drafts_creation_dir from templates/<draft_template>.

The file is named <date>-<slug>.md and its header gets the title, the date
(shifted by drafts_year_shift years) and draft = true.

Example:
  emile new "Scheduling posts with emile"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}

		created, err := draft.New(cfg, strings.Join(args, " "), time.Now())
		if err != nil {
			return err
		}
		if created.Similar != "" {
			warning("A post with the same title exists: %s", created.Similar)
		}
		success("Created %s", created.Path)
		return nil
	},
}
