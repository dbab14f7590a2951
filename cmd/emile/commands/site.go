package commands

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/teranos/emile/builder"
	"github.com/teranos/emile/config"
	"github.com/teranos/emile/gitsync"
	"github.com/teranos/emile/history"
	"github.com/teranos/emile/logger"
	"github.com/teranos/emile/publish"
	"github.com/teranos/emile/social"
)

// RootFlag is the persistent flag naming the site directory.
const RootFlag = "root"

// site is a loaded Zola site with every collaborator of the publish
// pipeline wired.
type site struct {
	cfg      *config.Config
	builder  *builder.Builder
	db       *sql.DB
	history  *history.Store
	pipeline *publish.Pipeline
}

func siteRoot(cmd *cobra.Command, args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	root, _ := cmd.Flags().GetString(RootFlag)
	if root == "" {
		return "."
	}
	return root
}

func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	return config.Load(siteRoot(cmd, args))
}

// openSite loads the configuration at root and opens the publication
// history. Close must be called.
func openSite(root string) (*site, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	b, err := builder.New(cfg.Root, cfg.BuildCommand, cfg.MaxRebuildsPerMinute, nil)
	if err != nil {
		return nil, err
	}

	db, err := history.OpenWithMigrations(cfg.HistoryPath(), logger.Logger)
	if err != nil {
		return nil, err
	}
	store := history.NewStore(db)

	opts := []publish.Option{publish.WithHistory(store)}

	if cfg.Social != nil && len(cfg.Social.Instances) > 0 {
		pub, err := social.NewPublisher(cfg.Social.Instances)
		if err != nil {
			db.Close()
			return nil, err
		}
		opts = append(opts, publish.WithAnnouncer(pub))
	}

	if cfg.Git.Enabled {
		repo, err := gitsync.Open(cfg.Root, cfg.Git)
		if err != nil {
			db.Close()
			return nil, err
		}
		opts = append(opts, publish.WithGit(repo))
	}

	return &site{
		cfg:      cfg,
		builder:  b,
		db:       db,
		history:  store,
		pipeline: publish.New(cfg, b, opts...),
	}, nil
}

func (s *site) Close() error {
	return s.db.Close()
}
