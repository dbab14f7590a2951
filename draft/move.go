package draft

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teranos/emile/config"
	"github.com/teranos/emile/datespec"
	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/frontmatter"
	"github.com/teranos/emile/logger"
)

// Find returns the path of the post named name (with or without ".md"),
// looking in the drafts directory first, then in the schedule directory.
func Find(cfg *config.Config, name string) (string, error) {
	file := fileName(name)
	for _, dir := range []string{cfg.DraftsPath(), cfg.SchedulePath()} {
		p := filepath.Join(dir, file)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", errors.WithHintf(
		errors.NewIOError("no post %s in %s or %s", file, cfg.DraftsCreationDir, cfg.ScheduleDir),
		"name the post by its file name without directory",
	)
}

// Schedule dates the post named name at the time described by when and
// moves it into the schedule directory, where a running watcher picks it
// up. A post already scheduled is rescheduled in place.
func Schedule(cfg *config.Config, name, when string, now time.Time) (string, time.Time, error) {
	src, err := Find(cfg, name)
	if err != nil {
		return "", time.Time{}, err
	}

	at, err := datespec.Parse(when, now, cfg.Location(), cfg.DefaultTime())
	if err != nil {
		return "", time.Time{}, err
	}

	dest := filepath.Join(cfg.SchedulePath(), filepath.Base(src))
	if dest != src {
		if _, err := os.Stat(dest); err == nil {
			return "", time.Time{}, errors.NewIOError("%s is already scheduled", filepath.Base(dest))
		}
	}

	doc, err := frontmatter.ReadFile(src)
	if err != nil {
		return "", time.Time{}, err
	}
	doc.SetDate(at)

	if err := os.MkdirAll(cfg.SchedulePath(), 0755); err != nil {
		return "", time.Time{}, errors.WrapIO(err, "create %s", cfg.SchedulePath())
	}
	if err := doc.WriteFile(dest); err != nil {
		return "", time.Time{}, err
	}
	if dest != src {
		if err := os.Remove(src); err != nil {
			return "", time.Time{}, errors.WrapIO(err, "remove %s", src)
		}
	}

	logger.AddScheduleSymbol(logger.ComponentLogger("draft")).Infow("Post scheduled",
		logger.FieldPath, dest,
		logger.FieldDueAt, at.Format(time.RFC3339))
	return dest, at, nil
}

// Unschedule moves the post named name from the schedule directory back
// to the drafts directory.
func Unschedule(cfg *config.Config, name string) (string, error) {
	file := fileName(name)
	src := filepath.Join(cfg.SchedulePath(), file)
	if _, err := os.Stat(src); err != nil {
		return "", errors.WithHint(
			errors.NewIOError("%s is not scheduled", file),
			"emile status lists scheduled posts",
		)
	}

	dest := filepath.Join(cfg.DraftsPath(), file)
	if _, err := os.Stat(dest); err == nil {
		return "", errors.NewIOError("draft %s already exists", dest)
	}
	if err := os.Rename(src, dest); err != nil {
		return "", errors.WrapIO(err, "move %s to %s", src, dest)
	}

	logger.AddScheduleSymbol(logger.ComponentLogger("draft")).Infow("Post unscheduled", logger.FieldPath, dest)
	return dest, nil
}

func fileName(name string) string {
	name = filepath.Base(name)
	if strings.HasSuffix(name, ".md") {
		return name
	}
	return name + ".md"
}
