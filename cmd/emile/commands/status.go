package commands

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/emile/schedule"
	"github.com/teranos/emile/watch"
)

// StatusCmd lists scheduled posts and recent publications.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List scheduled posts and recent publications",
	RunE:  runStatus,
}

var statusLimit int

func init() {
	StatusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Number of recent publications to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	root, _ := cmd.Flags().GetString(RootFlag)
	s, err := openSite(root)
	if err != nil {
		return err
	}
	defer s.Close()

	// A scheduler that is never started only collects what the watcher
	// would schedule.
	sched := schedule.New(func(context.Context, schedule.Job) error { return nil })
	if _, err := watch.New(s.cfg, sched, nil).Scan(); err != nil {
		return err
	}

	pending := sched.Pending()
	pterm.DefaultSection.Println("Scheduled")
	if len(pending) == 0 {
		pterm.Println(pterm.Gray("  nothing scheduled"))
	} else {
		rows := pterm.TableData{{"Post", "Due", "In"}}
		for _, j := range pending {
			rows = append(rows, []string{filepath.Base(j.Path), j.At.Format("2006-01-02 15:04 -0700"), until(j.At)})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}
	}

	recent, err := s.history.Recent(statusLimit)
	if err != nil {
		return err
	}
	pterm.DefaultSection.Println("Recent publications")
	if len(recent) == 0 {
		pterm.Println(pterm.Gray("  none yet"))
		return nil
	}
	rows := pterm.TableData{{"Post", "Started", "Status", "Took", "Links"}}
	for _, p := range recent {
		status := p.Status
		if p.Error != "" {
			status += ": " + p.Error
		}
		rows = append(rows, []string{
			p.Slug,
			p.StartedAt.Local().Format("2006-01-02 15:04"),
			status,
			strconv.FormatInt(p.Duration().Milliseconds(), 10) + "ms",
			p.Links,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func until(t time.Time) string {
	d := time.Until(t)
	if d <= 0 {
		return "overdue"
	}
	return d.Round(time.Minute).String()
}
