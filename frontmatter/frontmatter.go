// Package frontmatter reads and edits the header block of Zola posts.
//
// Both TOML (+++) and YAML (---) headers are supported. Values are decoded
// with go-toml and yaml.v3 for reading, but edits are applied to the raw
// header lines so comments, key order and unknown keys survive a round trip.
package frontmatter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/teranos/emile/errors"
)

// Format is the encoding of a header block.
type Format int

const (
	TOML Format = iota
	YAML
)

func (f Format) delimiter() string {
	if f == YAML {
		return "---"
	}
	return "+++"
}

func (f Format) String() string {
	if f == YAML {
		return "yaml"
	}
	return "toml"
}

// Document is a parsed post: its header and body.
type Document struct {
	Format Format

	// Fields holds every decoded header key, known or not.
	Fields map[string]interface{}

	Title string
	Draft bool
	Tags  []string

	open   string
	close  string
	header []string
	Body   string
}

// Parse splits content into header and body and decodes the header.
// Content without a header block is an ErrParse.
func Parse(content []byte) (*Document, error) {
	text := strings.TrimPrefix(string(content), "\ufeff")
	lines := strings.Split(text, "\n")

	doc := &Document{}
	switch trimEOL(lines[0]) {
	case "+++":
		doc.Format = TOML
	case "---":
		doc.Format = YAML
	default:
		return nil, errors.NewParseError("no frontmatter: file must start with +++ or ---")
	}
	doc.open = lines[0]

	end := -1
	for i := 1; i < len(lines); i++ {
		if trimEOL(lines[i]) == doc.Format.delimiter() {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, errors.NewParseError("unterminated %s frontmatter", doc.Format)
	}

	doc.close = lines[end]
	doc.header = append([]string(nil), lines[1:end]...)
	doc.Body = strings.Join(lines[end+1:], "\n")

	if err := doc.decode(); err != nil {
		return nil, err
	}
	return doc, nil
}

func trimEOL(s string) string {
	return strings.TrimRight(s, " \t\r")
}

func (d *Document) decode() error {
	clean := make([]string, len(d.header))
	for i, line := range d.header {
		clean[i] = strings.TrimSuffix(line, "\r")
	}
	raw := []byte(strings.Join(clean, "\n"))
	fields := map[string]interface{}{}

	var err error
	if d.Format == YAML {
		err = yaml.Unmarshal(raw, &fields)
	} else {
		err = toml.Unmarshal(raw, &fields)
	}
	if err != nil {
		return errors.WrapParse(err, "invalid %s frontmatter", d.Format)
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	d.Fields = fields

	d.Title, _ = fields["title"].(string)
	d.Draft, _ = fields["draft"].(bool)

	tags := fields["tags"]
	if tax, ok := fields["taxonomies"].(map[string]interface{}); ok && tags == nil {
		tags = tax["tags"]
	}
	d.Tags = nil
	if list, ok := tags.([]interface{}); ok {
		for _, t := range list {
			if s, ok := t.(string); ok {
				d.Tags = append(d.Tags, s)
			}
		}
	}
	return nil
}

// HasKey reports whether the header has a top-level key.
func (d *Document) HasKey(key string) bool {
	_, ok := d.Fields[key]
	return ok
}

// Date returns the post date. Dates without an offset are read in loc.
// A missing date returns ok=false; an unreadable one is an ErrParse.
func (d *Document) Date(loc *time.Location) (t time.Time, ok bool, err error) {
	v, present := d.Fields["date"]
	if !present {
		return time.Time{}, false, nil
	}

	switch val := v.(type) {
	case time.Time:
		return val, true, nil
	case toml.LocalDateTime:
		return val.AsTime(loc), true, nil
	case toml.LocalDate:
		return val.AsTime(loc), true, nil
	case string:
		t, err := ParseDate(val, loc)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	default:
		return time.Time{}, false, errors.NewParseError("unsupported date value %v (%T)", v, v)
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate parses the date formats Zola accepts. Values without an offset
// are read in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.NewParseError("cannot parse date %q", s)
}

// FormatDate renders t the way emile writes dates: RFC 3339 with offset.
func FormatDate(t time.Time) string {
	return t.Format(time.RFC3339)
}

// SetDate writes the date key, replacing the existing line or adding one.
func (d *Document) SetDate(t time.Time) {
	d.setLine("date", FormatDate(t))
	d.Fields["date"] = t
}

// SetDay writes the date key as a bare day (2006-01-02), the form Zola
// uses for posts that have no publication time yet.
func (d *Document) SetDay(t time.Time) {
	d.setLine("date", t.Format("2006-01-02"))
	d.Fields["date"] = toml.LocalDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// SetTitle writes the title key.
func (d *Document) SetTitle(title string) {
	d.setLine("title", strconv.Quote(title))
	d.Title = title
	d.Fields["title"] = title
}

// SetDraft marks the post as draft or published. Zola defaults to
// draft = false, so publishing removes the key instead of writing it.
func (d *Document) SetDraft(draft bool) {
	d.Draft = draft
	if draft {
		d.setLine("draft", "true")
		d.Fields["draft"] = true
		return
	}
	d.removeLine("draft")
	delete(d.Fields, "draft")
}

// ReplaceBody substitutes every occurrence of old in the body and returns
// how many were replaced.
func (d *Document) ReplaceBody(old, new string) int {
	n := strings.Count(d.Body, old)
	if n > 0 {
		d.Body = strings.ReplaceAll(d.Body, old, new)
	}
	return n
}

// Bytes renders the document back to file content.
func (d *Document) Bytes() []byte {
	var b strings.Builder
	b.WriteString(d.open)
	b.WriteString("\n")
	if len(d.header) > 0 {
		b.WriteString(strings.Join(d.header, "\n"))
		b.WriteString("\n")
	}
	b.WriteString(d.close)
	b.WriteString("\n")
	b.WriteString(d.Body)
	return []byte(b.String())
}

func (d *Document) keyPattern(key string) *regexp.Regexp {
	if d.Format == YAML {
		return regexp.MustCompile(`^` + regexp.QuoteMeta(key) + `\s*:`)
	}
	return regexp.MustCompile(`^\s*` + regexp.QuoteMeta(key) + `\s*=`)
}

func (d *Document) assignment(key, value string) string {
	if d.Format == YAML {
		return key + ": " + value
	}
	return key + " = " + value
}

// topLevelEnd returns the index of the first TOML table header, where
// top-level keys end. YAML keys are matched by indentation instead.
func (d *Document) topLevelEnd() int {
	if d.Format == TOML {
		for i, line := range d.header {
			if strings.HasPrefix(strings.TrimSpace(line), "[") {
				return i
			}
		}
	}
	return len(d.header)
}

func (d *Document) findLine(key string) int {
	re := d.keyPattern(key)
	end := d.topLevelEnd()
	for i := 0; i < end; i++ {
		if re.MatchString(d.header[i]) {
			return i
		}
	}
	return -1
}

func (d *Document) setLine(key, value string) {
	line := d.assignment(key, value)
	if i := d.findLine(key); i >= 0 {
		d.header[i] = line
		return
	}

	// New keys go after the title when there is one, otherwise at the end
	// of the top-level section.
	at := d.topLevelEnd()
	if i := d.findLine("title"); i >= 0 && key != "title" {
		at = i + 1
	} else if key == "title" {
		at = 0
	}
	d.header = append(d.header, "")
	copy(d.header[at+1:], d.header[at:])
	d.header[at] = line
}

func (d *Document) removeLine(key string) {
	if i := d.findLine(key); i >= 0 {
		d.header = append(d.header[:i], d.header[i+1:]...)
	}
}
