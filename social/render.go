// Package social announces new posts on Mastodon and Bluesky and builds the
// links list injected back into the published post.
package social

import (
	"strings"

	"github.com/teranos/emile/config"
	"github.com/teranos/emile/frontmatter"
	"github.com/teranos/emile/slug"
	"github.com/teranos/emile/template"
)

// Status is a rendered announcement.
type Status struct {
	Text  string
	Lang  string
	Title string
	Link  string
}

// Render fills the social template for the post doc published at dest.
func Render(cfg *config.Config, doc *frontmatter.Document, dest string) (Status, error) {
	sc := cfg.Social
	lang := Language(sc, cfg.DefaultLang, doc.Tags)
	link := Link(cfg.BaseURL, dest)

	tpl, err := template.Load(cfg.TemplatesPath(), sc.SocialTemplate, lang, cfg.DefaultLang)
	if err != nil {
		return Status{}, err
	}

	text := template.Render(tpl, template.Vars{
		"title": doc.Title,
		"link":  link,
		"tags":  FormatTags(Hashtags(doc.Tags, sc.FilteredTag)),
	})

	return Status{
		Text:  strings.TrimSpace(text),
		Lang:  lang,
		Title: doc.Title,
		Link:  link,
	}, nil
}

// Language returns the language of the first tag_lang entry whose tag the
// post carries, or defaultLang.
func Language(sc *config.SocialConfig, defaultLang string, tags []string) string {
	if sc == nil {
		return defaultLang
	}
	for _, tl := range sc.TagLang {
		for _, tag := range tags {
			if tag == tl.Tag {
				return tl.Lang
			}
		}
	}
	return defaultLang
}

// Hashtags turns post tags into hashtag bodies, dropping filtered tags.
func Hashtags(tags, filtered []string) []string {
	var out []string
	for _, tag := range tags {
		if contains(filtered, tag) {
			continue
		}
		if h := slug.CamelTag(tag); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// FormatTags renders hashtags as "#A #B ". Rust is announced under both
// #Rust and #RustLang.
func FormatTags(hashtags []string) string {
	var b strings.Builder
	for _, h := range hashtags {
		b.WriteString("#" + h + " ")
		if strings.EqualFold(h, "rust") {
			b.WriteString("#RustLang ")
		}
	}
	return b.String()
}

// Link returns the public URL of the post published at dest.
func Link(baseURL, dest string) string {
	return strings.TrimSuffix(baseURL, "/") + "/posts/" + slug.Stem(dest) + "/"
}

// FormatLinks renders successful results as "[Mastodon](url), [Bluesky](url)".
// Failed results are left out.
func FormatLinks(results []Result) string {
	var parts []string
	for _, r := range results {
		if r.Err != nil || r.URL == "" {
			continue
		}
		parts = append(parts, "["+r.Platform+"]("+r.URL+")")
	}
	return strings.Join(parts, ", ")
}

// LinkText fills the link template with the links list of results.
func LinkText(cfg *config.Config, lang string, results []Result) (string, error) {
	tpl, err := template.Load(cfg.TemplatesPath(), cfg.Social.LinkTemplate, lang, cfg.DefaultLang)
	if err != nil {
		return "", err
	}
	return template.Render(tpl, template.Vars{"links": FormatLinks(results)}), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
