package draft

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/frontmatter"
	"github.com/teranos/emile/slug"
)

// Rename is one file renamed by Reslug.
type Rename struct {
	From string
	To   string
}

// Reslug renames the post at path after the slug of its title. When path
// is a directory, every post in it whose name starts with "-" is renamed.
func Reslug(path string) ([]Rename, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WrapIO(err, "stat %s", path)
	}
	if !info.IsDir() {
		r, err := reslugFile(path)
		if err != nil {
			return nil, err
		}
		return []Rename{r}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.WrapIO(err, "read %s", path)
	}
	var done []Rename
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "-") {
			continue
		}
		r, err := reslugFile(filepath.Join(path, e.Name()))
		if err != nil {
			return done, err
		}
		done = append(done, r)
	}
	return done, nil
}

func reslugFile(path string) (Rename, error) {
	doc, err := frontmatter.ReadFile(path)
	if err != nil {
		return Rename{}, err
	}
	s := slug.Make(doc.Title)
	if s == "" {
		return Rename{}, errors.NewParseError("%s has no usable title", path)
	}

	dest := filepath.Join(filepath.Dir(path), s+".md")
	if dest == path {
		return Rename{From: path, To: dest}, nil
	}
	if _, err := os.Stat(dest); err == nil {
		return Rename{}, errors.NewIOError("%s already exists", dest)
	}
	if err := os.Rename(path, dest); err != nil {
		return Rename{}, errors.WrapIO(err, "rename %s", path)
	}
	return Rename{From: path, To: dest}, nil
}
