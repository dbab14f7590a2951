package watch

import (
	"path/filepath"
	"strings"
)

// Event is what a changed path means for the site.
type Event int

const (
	// EventIgnored changes trigger nothing (drafts being written).
	EventIgnored Event = iota
	// EventSchedule changes (re)schedule or cancel a post.
	EventSchedule
	// EventRebuild changes need a site rebuild.
	EventRebuild
)

func (e Event) String() string {
	switch e {
	case EventSchedule:
		return "schedule"
	case EventRebuild:
		return "rebuild"
	default:
		return "ignored"
	}
}

// Classifier maps paths to events. Directories must be absolute and clean.
type Classifier struct {
	ScheduleDir string
	DraftsDir   string
}

// Classify decides what a change to path triggers. The schedule directory
// is checked first since it usually lives inside the drafts directory.
func (c Classifier) Classify(path string) Event {
	path = filepath.Clean(path)
	switch {
	case within(path, c.ScheduleDir):
		return EventSchedule
	case within(path, c.DraftsDir):
		return EventIgnored
	default:
		return EventRebuild
	}
}

// within reports whether path is dir or below it.
func within(path, dir string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// isTempFile matches editor swap and backup files and hidden files,
// including the temporary files of atomic writes.
func isTempFile(path string) bool {
	base := filepath.Base(path)
	switch {
	case base == "" || base == ".":
		return true
	case strings.HasPrefix(base, "."), strings.HasPrefix(base, "#"):
		return true
	case strings.HasSuffix(base, "~"):
		return true
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".swp", ".swx", ".swo", ".tmp", ".bak":
		return true
	}
	return false
}
