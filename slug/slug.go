// Package slug turns titles into URL and filename safe identifiers.
package slug

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters NFD cannot decompose into ASCII.
var transliterations = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "AE", "œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O", "ł", "l", "Ł", "L", "đ", "d", "Đ", "D",
	"þ", "th", "Þ", "TH", "&", " and ",
)

// Make returns the slug of s: lower-case ASCII letters and digits separated
// by single dashes. "Élégant café!" becomes "elegant-cafe".
func Make(s string) string {
	s = transliterations.Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// CamelTag turns a tag into a hashtag body: slugified, then each dash
// separated part capitalized. "static site" becomes "StaticSite".
func CamelTag(tag string) string {
	var b strings.Builder
	for _, part := range strings.Split(Make(tag), "-") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// Stem returns the file name of path without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var langSuffix = regexp.MustCompile(`^(.+)\.([a-z]{2,3}(?:-[A-Za-z]{2,4})?)$`)

// SplitLang separates Zola's language suffix from a file stem:
// "hello.fr" gives ("hello", "fr"), "hello" gives ("hello", "").
func SplitLang(stem string) (base, lang string) {
	if m := langSuffix.FindStringSubmatch(stem); m != nil {
		return m[1], m[2]
	}
	return stem, ""
}

var datePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-`)

// TrimDate removes a leading "YYYY-MM-DD-" from a file stem.
func TrimDate(stem string) string {
	return datePrefix.ReplaceAllString(stem, "")
}
