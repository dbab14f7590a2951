// Package draft creates, renames and moves draft posts.
package draft

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teranos/emile/config"
	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/frontmatter"
	"github.com/teranos/emile/logger"
	"github.com/teranos/emile/slug"
)

// Created is the result of New.
type Created struct {
	Path string

	// Similar is an existing draft with the same slug, if any
	Similar string
}

// New creates a draft titled title from the draft template. The file is
// named <date>-<slug>.md, the date being today shifted by drafts_year_shift
// years. An existing file is never overwritten.
func New(cfg *config.Config, title string, now time.Time) (*Created, error) {
	s := slug.Make(title)
	if s == "" {
		return nil, errors.WithHint(
			errors.NewParseError("title %q has no letters or digits", title),
			"pick a title that yields a file name",
		)
	}

	day := now.In(cfg.Location()).AddDate(cfg.DraftsYearShift, 0, 0)
	dir := cfg.DraftsPath()
	path := filepath.Join(dir, day.Format("2006-01-02")+"-"+s+".md")

	if _, err := os.Stat(path); err == nil {
		return nil, errors.NewIOError("file %s already exists", filepath.Base(path))
	}

	doc, err := fromTemplate(cfg)
	if err != nil {
		return nil, err
	}
	doc.SetTitle(title)
	doc.SetDay(day)
	doc.SetDraft(true)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WrapIO(err, "create %s", dir)
	}
	similar, err := withSlug(dir, s)
	if err != nil {
		return nil, err
	}
	if err := doc.WriteFile(path); err != nil {
		return nil, err
	}

	logger.ComponentLogger("draft").Infow("Draft created", logger.FieldPath, path, logger.FieldTitle, title)
	return &Created{Path: path, Similar: similar}, nil
}

// fromTemplate reads templates/<draft_template>. Its first line is
// replaced by a TOML header opening so plain templates work too.
func fromTemplate(cfg *config.Config) (*frontmatter.Document, error) {
	path := filepath.Join(cfg.TemplatesPath(), cfg.DraftTemplate)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.WithHintf(
			errors.NewConfigError("no draft template at %s", path),
			"create templates/%s or set draft_template in emile.toml", cfg.DraftTemplate,
		)
	}
	if err != nil {
		return nil, errors.WrapIO(err, "read %s", path)
	}

	lines := strings.SplitN(string(data), "\n", 2)
	lines[0] = "+++"
	doc, err := frontmatter.Parse([]byte(strings.Join(lines, "\n")))
	if err != nil {
		return nil, errors.Wrapf(err, "draft template %s", path)
	}
	return doc, nil
}

// withSlug returns the name of a post in dir whose slug, date prefix
// removed, is s.
func withSlug(dir, s string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.WrapIO(err, "read %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		if slug.TrimDate(slug.Stem(e.Name())) == s {
			return e.Name(), nil
		}
	}
	return "", nil
}
