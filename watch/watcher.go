// Package watch turns filesystem activity on a Zola site into schedule and
// rebuild actions.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/emile/config"
	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/frontmatter"
	"github.com/teranos/emile/logger"
	"github.com/teranos/emile/schedule"
)

// Roots are the site directories watched, relative to the site root.
var Roots = []string{"content", "sass", "static", "templates", "themes"}

// Scheduler receives schedule directory changes.
type Scheduler interface {
	Schedule(path string, at time.Time) schedule.Job
	Cancel(path string) bool
}

// Rebuilder rebuilds the site.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// Watcher observes a site and dispatches debounced changes.
type Watcher struct {
	classifier  Classifier
	scheduleDir string
	roots       []string // Roots first, then configured directories outside them
	siteRoots   int
	window      time.Duration
	loc         *time.Location

	sched   Scheduler
	builder Rebuilder

	watchLog *zap.SugaredLogger
}

// New creates a watcher for the site described by cfg.
func New(cfg *config.Config, sched Scheduler, builder Rebuilder) *Watcher {
	var roots []string
	for _, r := range Roots {
		roots = append(roots, cfg.Abs(r))
	}
	siteRoots := len(roots)
	for _, dir := range []string{cfg.SchedulePath(), cfg.PublishPath()} {
		if !underAny(filepath.Clean(dir), roots) {
			roots = append(roots, filepath.Clean(dir))
		}
	}
	return &Watcher{
		classifier: Classifier{
			ScheduleDir: filepath.Clean(cfg.SchedulePath()),
			DraftsDir:   filepath.Clean(cfg.DraftsPath()),
		},
		scheduleDir: cfg.SchedulePath(),
		roots:       roots,
		siteRoots:   siteRoots,
		window:      cfg.DebounceWindow(),
		loc:         cfg.Location(),
		sched:       sched,
		builder:     builder,
		watchLog:    logger.AddWatchSymbol(logger.ComponentLogger("watch")),
	}
}

// Scan schedules every post already in the schedule directory. Overdue
// posts are handed to the scheduler like any other and fire right away.
// It returns how many posts were scheduled.
func (w *Watcher) Scan() (int, error) {
	entries, err := os.ReadDir(w.scheduleDir)
	if errors.Is(err, fs.ErrNotExist) {
		w.watchLog.Debugw("No schedule directory yet", logger.FieldPath, w.scheduleDir)
		return 0, nil
	}
	if err != nil {
		return 0, errors.WrapIO(err, "read schedule directory %s", w.scheduleDir)
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() || e.Name() == "_index.md" || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		if w.scheduleFile(filepath.Join(w.scheduleDir, e.Name())) {
			n++
		}
	}
	w.watchLog.Infow("Schedule directory scanned", logger.FieldCount, n)
	return n, nil
}

// Run watches the site until ctx is cancelled. The startup scan is part of
// Run. Only a failure to set up the watches is returned.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create fsnotify watcher")
	}
	defer fsw.Close()

	watched := 0
	for _, root := range w.roots[:w.siteRoots] {
		if _, err := os.Stat(root); err != nil {
			w.watchLog.Debugw("Skipping missing directory", logger.FieldRoot, root)
			continue
		}
		if err := addRecursive(fsw, root); err != nil {
			return err
		}
		watched++
	}
	if watched == 0 {
		return errors.WithHint(
			errors.NewConfigError("none of %s exist under the site root", strings.Join(Roots, ", ")),
			"run emile watch from a Zola site",
		)
	}
	for _, dir := range w.roots[w.siteRoots:] {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.WrapIO(err, "create %s", dir)
		}
		if err := addRecursive(fsw, dir); err != nil {
			return err
		}
		watched++
	}

	if _, err := w.Scan(); err != nil {
		w.watchLog.Errorw("Startup scan failed", logger.FieldError, err)
	}

	bursts := make(chan burst)
	deb := newDebouncer(w.window, bursts, ctx.Done())
	defer deb.stop()

	w.watchLog.Infow("Watching", logger.FieldCount, watched, "debounce", w.window)

	for {
		select {
		case <-ctx.Done():
			w.watchLog.Infow("Watcher stopped")
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleRaw(fsw, deb, ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.watchLog.Warnw("Watch error", logger.FieldError, err)

		case b := <-bursts:
			w.handleBurst(ctx, b)
		}
	}
}

// handleRaw filters a raw event and feeds the debouncer.
func (w *Watcher) handleRaw(fsw *fsnotify.Watcher, deb *debouncer, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod || isTempFile(ev.Name) {
		return
	}

	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		if ev.Op&fsnotify.Create != 0 {
			// New directory: watch it and treat what is already inside as changed
			if err := addRecursive(fsw, ev.Name); err != nil {
				w.watchLog.Warnw("Cannot watch new directory", logger.FieldPath, ev.Name, logger.FieldError, err)
			}
			_ = filepath.WalkDir(ev.Name, func(p string, d fs.DirEntry, err error) error {
				if err == nil && !d.IsDir() && !isTempFile(p) {
					deb.add(w.rootOf(p), p)
				}
				return nil
			})
		}
		return
	}

	w.watchLog.Debugw("Change", logger.FieldPath, ev.Name, logger.FieldEvent, ev.Op.String())
	deb.add(w.rootOf(ev.Name), ev.Name)
}

// handleBurst classifies every path of a debounced burst. Rebuild-worthy
// paths result in a single rebuild.
func (w *Watcher) handleBurst(ctx context.Context, b burst) {
	rebuild := false
	for _, p := range b.paths {
		switch w.classifier.Classify(p) {
		case EventSchedule:
			w.handleScheduleChange(p)
		case EventRebuild:
			rebuild = true
		case EventIgnored:
			w.watchLog.Debugw("Ignoring draft change", logger.FieldPath, p)
		}
	}

	if !rebuild {
		return
	}
	w.watchLog.Infow("Rebuilding after change", logger.FieldRoot, b.root, logger.FieldCount, len(b.paths))
	if err := w.builder.Rebuild(ctx); err != nil {
		w.watchLog.Errorw("Rebuild failed",
			logger.FieldErrorKind, errors.Kind(err),
			logger.FieldError, err)
	}
}

func (w *Watcher) handleScheduleChange(path string) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		w.sched.Cancel(path)
		return
	}
	if !strings.HasSuffix(path, ".md") || filepath.Base(path) == "_index.md" {
		return
	}
	w.scheduleFile(path)
}

// scheduleFile schedules path at its frontmatter date. An unreadable post
// loses any job it had.
func (w *Watcher) scheduleFile(path string) bool {
	at, err := w.postDate(path)
	if err != nil {
		w.watchLog.Errorw("Cannot schedule post",
			logger.FieldPath, path,
			logger.FieldErrorKind, errors.Kind(err),
			logger.FieldError, err)
		w.sched.Cancel(path)
		return false
	}
	w.sched.Schedule(path, at)
	return true
}

func (w *Watcher) postDate(path string) (time.Time, error) {
	doc, err := frontmatter.ReadFile(path)
	if err != nil {
		return time.Time{}, err
	}
	at, ok, err := doc.Date(w.loc)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, errors.WithHint(
			errors.NewParseError("%s has no date", path),
			"use emile schedule, or set date in the frontmatter",
		)
	}
	return at, nil
}

func underAny(dir string, roots []string) bool {
	for _, r := range roots {
		if within(dir, r) {
			return true
		}
	}
	return false
}

// rootOf returns the deepest watched root containing path.
func (w *Watcher) rootOf(path string) string {
	roots := append([]string(nil), w.roots...)
	sort.Slice(roots, func(i, k int) bool { return len(roots[i]) > len(roots[k]) })
	for _, r := range roots {
		if within(path, r) {
			return r
		}
	}
	return filepath.Dir(path)
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.WrapIO(err, "walk %s", p)
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			return errors.WrapIO(err, "watch %s", p)
		}
		return nil
	})
}
