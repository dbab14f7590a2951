package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/emile/draft"
)

// ReslugCmd renames posts after their title.
var ReslugCmd = &cobra.Command{
	Use:   "reslug <path>",
	Short: "Rename a post after the slug of its title",
	Long: `Rename <path> to <slug of its title>.md.

When <path> is a directory, every post in it whose name starts with "-" is
renamed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		renames, err := draft.Reslug(args[0])
		for _, r := range renames {
			success("Renamed %s to %s", r.From, r.To)
		}
		if err != nil {
			return err
		}
		if len(renames) == 0 {
			warning("No post to rename in %s", args[0])
		}
		return nil
	},
}
