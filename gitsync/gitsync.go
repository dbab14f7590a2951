// Package gitsync keeps the site repository in step with its remote around
// publications: pull before, commit and push after.
package gitsync

import (
	"context"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/teranos/emile/config"
	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/logger"
)

// Repo is the git repository holding a site.
type Repo struct {
	repo   *git.Repository
	root   string
	cfg    config.GitConfig
	now    func() time.Time
	logger *zap.SugaredLogger
}

// Open finds the repository containing dir, looking in parent directories.
func Open(dir string, cfg config.GitConfig) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.WithHint(
			errors.WrapIO(err, "open git repository at %s", dir),
			"disable [git] in emile.toml if the site is not a git checkout",
		)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.WrapIO(err, "open worktree of %s", dir)
	}

	return &Repo{
		repo:   repo,
		root:   wt.Filesystem.Root(),
		cfg:    cfg,
		now:    time.Now,
		logger: logger.ComponentLogger("git"),
	}, nil
}

// Root returns the worktree root.
func (r *Repo) Root() string {
	return r.root
}

// Pull fetches and merges the configured remote. Being up to date is not
// an error.
func (r *Repo) Pull(ctx context.Context) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return errors.WrapIO(err, "open worktree")
	}

	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: r.cfg.Remote})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.WrapIO(err, "pull %s", r.cfg.Remote)
	}
	r.logger.Debugw("Pulled", "remote", r.cfg.Remote, "up_to_date", err != nil)
	return nil
}

// Commit stages paths and commits them with msg.
func (r *Repo) Commit(msg string, paths ...string) (plumbing.Hash, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, errors.WrapIO(err, "open worktree")
	}

	for _, p := range paths {
		rel := p
		if filepath.IsAbs(p) {
			if rel, err = filepath.Rel(r.root, p); err != nil {
				return plumbing.ZeroHash, errors.WrapIO(err, "%s is outside %s", p, r.root)
			}
		}
		if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
			return plumbing.ZeroHash, errors.WrapIO(err, "stage %s", rel)
		}
	}

	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  r.cfg.AuthorName,
			Email: r.cfg.AuthorEmail,
			When:  r.now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, errors.WrapIO(err, "commit %q", msg)
	}

	r.logger.Infow("Committed", logger.FieldCommit, hash.String()[:7], "message", msg)
	return hash, nil
}

// Push pushes the current branch to the configured remote.
func (r *Repo) Push(ctx context.Context) error {
	err := r.repo.PushContext(ctx, &git.PushOptions{RemoteName: r.cfg.Remote})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.WrapIO(err, "push %s", r.cfg.Remote)
	}
	return nil
}

// CommitPublished records a published post and pushes it.
func (r *Repo) CommitPublished(ctx context.Context, slug string, paths ...string) error {
	if _, err := r.Commit("published "+slug+".md", paths...); err != nil {
		return err
	}
	return r.Push(ctx)
}

// LastMessage returns the message of the HEAD commit.
func (r *Repo) LastMessage() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", errors.WrapIO(err, "resolve HEAD")
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", errors.WrapIO(err, "read commit %s", head.Hash())
	}
	return commit.Message, nil
}
