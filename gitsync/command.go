package gitsync

import (
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/teranos/emile/errors"
)

// CommandKind is an action requested through a commit message.
type CommandKind int

const (
	CommandBuild CommandKind = iota
	CommandSchedule
	CommandUnschedule
)

func (k CommandKind) String() string {
	switch k {
	case CommandSchedule:
		return "blog_sched"
	case CommandUnschedule:
		return "blog_unsched"
	default:
		return "blog_build"
	}
}

// Command is parsed from the first line of a commit message:
//
//	blog_build
//	blog_sched "<when>" <slug>
//	blog_unsched <slug>
type Command struct {
	Kind CommandKind
	When string
	Slug string
}

// ParseCommand reads the command in a commit message.
func ParseCommand(msg string) (Command, error) {
	line := strings.TrimSpace(msg)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" {
		return Command{}, errors.NewParseError("empty commit message")
	}

	args, err := shellquote.Split(line)
	if err != nil {
		return Command{}, errors.WrapParse(err, "malformed command %q", line)
	}

	switch args[0] {
	case "blog_build":
		return Command{Kind: CommandBuild}, nil
	case "blog_sched":
		if len(args) != 3 || args[1] == "" {
			return Command{}, errors.WithHint(
				errors.NewParseError("malformed schedule command %q", line),
				`use: blog_sched "<when>" <slug>`,
			)
		}
		return Command{Kind: CommandSchedule, When: args[1], Slug: args[2]}, nil
	case "blog_unsched":
		if len(args) != 2 {
			return Command{}, errors.NewParseError("malformed unschedule command %q", line)
		}
		return Command{Kind: CommandUnschedule, Slug: args[1]}, nil
	default:
		return Command{}, errors.NewParseError("unknown command %q", args[0])
	}
}
