// Package template fills the small text templates emile keeps next to the
// Zola templates: draft skeletons and social announcements.
//
// Placeholders are plain {name} markers; there is no logic.
package template

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teranos/emile/errors"
)

// Vars maps placeholder names (without braces) to their values.
type Vars map[string]string

// Render replaces every {name} of vars in tpl. Unknown placeholders are left
// untouched. Replacement is single-pass: values are never re-expanded.
func Render(tpl string, vars Vars) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(vars))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// Path resolves the template file for a language. The default language
// uses dir/name; other languages use dir/<stem>.<lang>.txt, so
// "social.txt" in French is "social.fr.txt". A default-language template
// that is missing also falls back to the suffixed name.
func Path(dir, name, lang, defaultLang string) (string, error) {
	path := filepath.Join(dir, name)
	if lang == defaultLang || lang == "" {
		if isFile(path) {
			return path, nil
		}
	}

	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	localized := filepath.Join(filepath.Dir(path), stem+"."+lang+".txt")
	if lang != "" && isFile(localized) {
		return localized, nil
	}

	return "", errors.WithHint(
		errors.NewIOError("no template found for %s (language %q)", path, lang),
		"create the template in the site's templates directory",
	)
}

// Load reads the template for a language, see Path.
func Load(dir, name, lang, defaultLang string) (string, error) {
	path, err := Path(dir, name, lang, defaultLang)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WrapIO(err, "read template %s", path)
	}
	return string(data), nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
