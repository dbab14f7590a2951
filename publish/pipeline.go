// Package publish moves a scheduled or drafted post into the published
// section of the site and carries it through build, announcement and
// bookkeeping.
//
// A publication runs in stages:
//
//	guard     skip posts that are gone or already published
//	pull      optional git pull
//	move      rewrite the header (draft removed, date = now) into publish_dest
//	build     run the site builder
//	announce  post to every social instance
//	links     inject the announcement links and rebuild
//	commit    optional git commit + push
//	record    history row
//
// Only the guard and the move can fail a publication. Every later stage
// logs its failure and the post stays published.
package publish

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/emile/config"
	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/frontmatter"
	"github.com/teranos/emile/history"
	"github.com/teranos/emile/logger"
	"github.com/teranos/emile/schedule"
	"github.com/teranos/emile/slug"
	"github.com/teranos/emile/social"
)

// Builder runs the site builder.
type Builder interface {
	Build(ctx context.Context) error
}

// Announcer posts a status to the configured social instances.
type Announcer interface {
	Publish(ctx context.Context, status social.Status) []social.Result
}

// Git synchronizes the site repository.
type Git interface {
	Pull(ctx context.Context) error
	CommitPublished(ctx context.Context, slug string, paths ...string) error
}

// History records publication attempts.
type History interface {
	Start(slug, source, dest string, at time.Time) (*history.Publication, error)
	Complete(p *history.Publication, links string, at time.Time) error
	Fail(p *history.Publication, cause error, at time.Time) error
	IsPublished(slug string) (bool, error)
}

// Outcome describes what a publication did.
type Outcome struct {
	Source string
	Dest   string
	Slug   string

	// Skipped is set when the guard found nothing to do; Reason says why
	Skipped bool
	Reason  string

	BuildErr error
	Results  []social.Result
	Links    string
}

// Pipeline publishes posts of one site.
type Pipeline struct {
	cfg       *config.Config
	builder   Builder
	announcer Announcer
	git       Git
	history   History
	now       func() time.Time
	logger    *zap.SugaredLogger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithAnnouncer enables the announce and links stages.
func WithAnnouncer(a Announcer) Option {
	return func(p *Pipeline) { p.announcer = a }
}

// WithGit enables the pull and commit stages.
func WithGit(g Git) Option {
	return func(p *Pipeline) { p.git = g }
}

// WithHistory enables the record stage and the history part of the guard.
func WithHistory(h History) Option {
	return func(p *Pipeline) { p.history = h }
}

// WithNow replaces the clock used for publication dates.
func WithNow(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline for the site described by cfg.
func New(cfg *config.Config, builder Builder, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		builder: builder,
		now:     time.Now,
		logger:  logger.AddPublishSymbol(logger.ComponentLogger("publish")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle publishes a fired schedule job.
func (p *Pipeline) Handle(ctx context.Context, job schedule.Job) error {
	_, err := p.Publish(ctx, job.Path)
	return err
}

// Publish publishes the post at src.
func (p *Pipeline) Publish(ctx context.Context, src string) (*Outcome, error) {
	out := &Outcome{
		Source: src,
		Dest:   filepath.Join(p.cfg.PublishPath(), filepath.Base(src)),
		Slug:   slug.Stem(src),
	}
	log := p.logger.With(logger.FieldSlug, out.Slug)

	doc, skip, err := p.guard(src, out)
	if err != nil {
		return nil, err
	}
	if skip != "" {
		out.Skipped = true
		out.Reason = skip
		log.Infow("Nothing to publish", "reason", skip, logger.FieldPath, src)
		return out, nil
	}

	started := p.now()
	var rec *history.Publication
	if p.history != nil {
		if rec, err = p.history.Start(out.Slug, src, out.Dest, started); err != nil {
			log.Warnw("Cannot record publication", logger.FieldError, err)
		}
	}

	if p.git != nil {
		if err := p.git.Pull(ctx); err != nil {
			log.Warnw("git pull failed, publishing anyway", logger.FieldError, err)
		}
	}

	if err := p.move(doc, out); err != nil {
		p.fail(rec, err)
		return nil, err
	}
	log.Infow("Post published", logger.FieldDest, out.Dest)

	if err := p.builder.Build(ctx); err != nil {
		out.BuildErr = err
		log.Errorw("Site build failed after publishing",
			logger.FieldErrorKind, errors.Kind(err),
			logger.FieldError, err)
	}

	if p.announcer != nil && p.cfg.Social != nil {
		p.announce(ctx, log, doc, out)
	}

	if p.git != nil {
		if err := p.git.CommitPublished(ctx, out.Slug, out.Dest); err != nil {
			log.Errorw("git commit or push failed", logger.FieldError, err)
		}
	}

	if rec != nil {
		if err := p.history.Complete(rec, out.Links, p.now()); err != nil {
			log.Warnw("Cannot record publication", logger.FieldError, err)
		}
	}

	log.Infow("Publication done", logger.FieldDurationMS, p.now().Sub(started).Milliseconds())
	return out, nil
}

// guard returns the parsed post, or a reason to skip it.
func (p *Pipeline) guard(src string, out *Outcome) (*frontmatter.Document, string, error) {
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return nil, "source no longer exists", nil
	} else if err != nil {
		return nil, "", errors.WrapIO(err, "stat %s", src)
	}

	doc, err := frontmatter.ReadFile(src)
	if err != nil {
		return nil, "", err
	}

	if !doc.Draft && fileExists(out.Dest) {
		return nil, "already published at " + out.Dest, nil
	}

	if p.history != nil {
		done, err := p.history.IsPublished(out.Slug)
		if err != nil {
			p.logger.Warnw("Cannot read publication history", logger.FieldError, err)
		} else if done {
			return nil, "publication history records " + out.Slug + " as published", nil
		}
	}
	return doc, "", nil
}

// move writes the published post to its destination, then removes the
// source. The destination is never overwritten.
func (p *Pipeline) move(doc *frontmatter.Document, out *Outcome) error {
	if fileExists(out.Dest) {
		return errors.WithHint(
			errors.NewIOError("%s already exists", out.Dest),
			"rename the post or remove the published one",
		)
	}
	if other, err := sameSlug(p.cfg.PublishPath(), out.Dest); err != nil {
		return err
	} else if other != "" {
		return errors.WithHintf(
			errors.NewIOError("a post with the same title exists: %s", other),
			"rename %s with emile reslug", filepath.Base(out.Source),
		)
	}

	doc.SetDraft(false)
	doc.SetDate(p.now().In(p.cfg.Location()))

	if err := os.MkdirAll(filepath.Dir(out.Dest), 0755); err != nil {
		return errors.WrapIO(err, "create %s", filepath.Dir(out.Dest))
	}
	if err := doc.WriteFile(out.Dest); err != nil {
		return err
	}
	if err := os.Remove(out.Source); err != nil {
		return errors.WrapIO(err, "remove %s after publishing", out.Source)
	}
	return nil
}

// announce posts the status and writes the links back into the post.
func (p *Pipeline) announce(ctx context.Context, log *zap.SugaredLogger, doc *frontmatter.Document, out *Outcome) {
	status, err := social.Render(p.cfg, doc, out.Dest)
	if err != nil {
		log.Errorw("Cannot render announcement", logger.FieldError, err)
		return
	}

	out.Results = p.announcer.Publish(ctx, status)
	out.Links = social.FormatLinks(out.Results)
	if out.Links == "" {
		log.Warnw("No platform accepted the announcement", logger.FieldCount, len(out.Results))
		return
	}

	text, err := social.LinkText(p.cfg, status.Lang, out.Results)
	if err != nil {
		log.Errorw("Cannot render links", logger.FieldError, err)
		return
	}

	tag := p.cfg.Social.LinkTag
	if doc.ReplaceBody(tag, text) == 0 {
		log.Warnw("Post has no link tag, links not inserted", "link_tag", tag)
		return
	}
	if err := doc.WriteFile(out.Dest); err != nil {
		log.Errorw("Cannot write links into post", logger.FieldError, err)
		return
	}
	if err := p.builder.Build(ctx); err != nil {
		log.Errorw("Site build failed after inserting links",
			logger.FieldErrorKind, errors.Kind(err),
			logger.FieldError, err)
	}
}

func (p *Pipeline) fail(rec *history.Publication, cause error) {
	if rec == nil {
		return
	}
	if err := p.history.Fail(rec, cause, p.now()); err != nil {
		p.logger.Warnw("Cannot record failed publication", logger.FieldError, err)
	}
}

// sameSlug returns the name of another post in dir whose name without the
// date prefix matches dest's.
func sameSlug(dir, dest string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", errors.WrapIO(err, "read %s", dir)
	}

	want := slug.TrimDate(slug.Stem(dest))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") || e.Name() == filepath.Base(dest) {
			continue
		}
		if slug.TrimDate(slug.Stem(e.Name())) == want {
			return e.Name(), nil
		}
	}
	return "", nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
