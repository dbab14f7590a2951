// Package datespec parses the human date expressions accepted by the
// schedule command ("tomorrow", "friday 18:00", "06-27", "+ 2 hours").
package datespec

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/emile/errors"
)

var (
	offsetRe = regexp.MustCompile(`\+\s*(\d+)\s*(minutes?|mins?|m|hours?|h|days?|d|weeks?|w)\s*$`)
	fullRe   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	monthRe  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})$`)
	dayRe    = regexp.MustCompile(`^(\d{1,2})$`)
	clockRe  = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	isoRe    = regexp.MustCompile(`^(\d{4}-\d{1,2}-\d{1,2})t(\d{1,2}:\d{2}(?::\d{2})?)$`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

type precision int

const (
	noDate    precision = iota
	dayOnly             // DD
	monthDay            // MM-DD
	fullDate            // YYYY-MM-DD, today, tomorrow, weekday
)

type parsed struct {
	year, month, day int
	date             precision

	clock    time.Duration
	hasClock bool
	now      bool

	offset time.Duration
}

// Parse resolves expr against now in loc. Missing parts are completed from
// now and from defaultTime (a time of day as a duration since midnight).
//
// Accepted forms, combinable as "<date> <time> + N <unit>":
//
//	now | today | tomorrow | monday..sunday (next occurrence, never today)
//	YYYY-MM-DD | MM-DD | DD (day of the current month)
//	HH:MM | HH:MM:SS | YYYY-MM-DDTHH:MM[:SS]
//	+ N minutes|hours|days|weeks (repeatable)
//
// A partial date that lands in the past rolls forward: MM-DD to next year,
// DD to next month, a bare time to the next day. A result before now (an
// explicit past date, "today" once its time has passed) is an ErrParse, as
// is any unknown token or an offset too large to represent.
func Parse(expr string, now time.Time, loc *time.Location, defaultTime time.Duration) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	p, err := parse(expr, now)
	if err != nil {
		return time.Time{}, err
	}

	if p.now {
		return now.Add(p.offset), nil
	}

	clock := defaultTime
	if p.hasClock {
		clock = p.clock
	}

	year, month, day := now.Date()
	if p.date != noDate {
		day = p.day
	}
	if p.date >= monthDay {
		month = time.Month(p.month)
	}
	if p.date == fullDate {
		year = p.year
	}

	at, ok := build(year, month, day, clock, loc)
	if !ok && p.date != dayOnly {
		return time.Time{}, errors.NewParseError("invalid date in %q", expr)
	}

	if !ok || at.Before(now) {
		switch p.date {
		case noDate:
			at = at.AddDate(0, 0, 1)
		case monthDay:
			if at, ok = build(year+1, month, day, clock, loc); !ok {
				return time.Time{}, errors.NewParseError("invalid date in %q", expr)
			}
		case dayOnly:
			// Next month that has this day (the 31st skips short months)
			found := false
			for i := 1; i <= 12 && !found; i++ {
				first := time.Date(year, month+time.Month(i), 1, 0, 0, 0, 0, loc)
				at, found = build(first.Year(), first.Month(), day, clock, loc)
			}
			if !found {
				return time.Time{}, errors.NewParseError("invalid day in %q", expr)
			}
		}
	}

	at = at.Add(p.offset)
	if at.Before(now) {
		return time.Time{}, errors.WithHint(
			errors.NewParseError("%q is in the past (%s)", expr, at.Format(time.RFC3339)),
			"use now, or a later date or time",
		)
	}
	return at, nil
}

func build(year int, month time.Month, day int, clock time.Duration, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t.Add(clock), true
}

func parse(expr string, now time.Time) (parsed, error) {
	var p parsed
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return p, errors.NewParseError("empty date expression")
	}

	for {
		m := offsetRe.FindStringSubmatchIndex(s)
		if m == nil {
			break
		}
		n, err := strconv.ParseInt(s[m[2]:m[3]], 10, 64)
		if err != nil {
			return p, errors.WrapParse(err, "offset in %q", expr)
		}
		u := unit(s[m[4]:m[5]])
		if n > int64(math.MaxInt64/u) || time.Duration(n)*u > math.MaxInt64-p.offset {
			return p, errors.NewParseError("offset too large in %q", expr)
		}
		p.offset += time.Duration(n) * u
		s = strings.TrimSpace(s[:m[0]])
	}

	if strings.Contains(s, "+") {
		return p, errors.NewParseError("cannot parse offset in %q", expr)
	}

	var tokens []string
	for _, tok := range strings.Fields(s) {
		if m := isoRe.FindStringSubmatch(tok); m != nil {
			tokens = append(tokens, m[1], m[2])
			continue
		}
		tokens = append(tokens, tok)
	}

	if len(tokens) == 0 {
		if p.offset == 0 {
			return p, errors.NewParseError("empty date expression")
		}
		// "+ 2 hours" alone is relative to now
		p.now = true
		return p, nil
	}

	for _, tok := range tokens {
		if err := p.token(tok, now); err != nil {
			return p, errors.Wrapf(err, "in %q", expr)
		}
	}

	if p.now && (p.date != noDate || p.hasClock) {
		return p, errors.NewParseError("\"now\" cannot be combined with a date or time in %q", expr)
	}
	return p, nil
}

func (p *parsed) setDate(prec precision, year, month, day int) error {
	if p.date != noDate {
		return errors.NewParseError("more than one date")
	}
	p.date, p.year, p.month, p.day = prec, year, month, day
	return nil
}

func (p *parsed) token(tok string, now time.Time) error {
	today := now
	switch tok {
	case "now":
		p.now = true
		return nil
	case "today":
		return p.setDate(fullDate, today.Year(), int(today.Month()), today.Day())
	case "tomorrow":
		t := today.AddDate(0, 0, 1)
		return p.setDate(fullDate, t.Year(), int(t.Month()), t.Day())
	}

	if wd, ok := weekdays[tok]; ok {
		delta := (int(wd) - int(today.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		t := today.AddDate(0, 0, delta)
		return p.setDate(fullDate, t.Year(), int(t.Month()), t.Day())
	}

	if m := clockRe.FindStringSubmatch(tok); m != nil {
		if p.hasClock {
			return errors.NewParseError("more than one time")
		}
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		sec := 0
		if m[3] != "" {
			sec, _ = strconv.Atoi(m[3])
		}
		if h > 23 || mi > 59 || sec > 59 {
			return errors.NewParseError("invalid time %q", tok)
		}
		p.clock = time.Duration(h)*time.Hour + time.Duration(mi)*time.Minute + time.Duration(sec)*time.Second
		p.hasClock = true
		return nil
	}

	if m := fullRe.FindStringSubmatch(tok); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return p.setDate(fullDate, y, mo, d)
	}

	if m := monthRe.FindStringSubmatch(tok); m != nil {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		if mo < 1 || mo > 12 {
			return errors.NewParseError("invalid month %q", tok)
		}
		return p.setDate(monthDay, 0, mo, d)
	}

	if m := dayRe.FindStringSubmatch(tok); m != nil {
		d, _ := strconv.Atoi(m[1])
		if d < 1 || d > 31 {
			return errors.NewParseError("invalid day %q", tok)
		}
		return p.setDate(dayOnly, 0, 0, d)
	}

	return errors.NewParseError("unknown token %q", tok)
}

func unit(u string) time.Duration {
	switch {
	case strings.HasPrefix(u, "w"):
		return 7 * 24 * time.Hour
	case strings.HasPrefix(u, "d"):
		return 24 * time.Hour
	case strings.HasPrefix(u, "h"):
		return time.Hour
	default:
		return time.Minute
	}
}
