// Package errors provides error handling for emile.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints for the person running the CLI
//
// On top of that it defines the error kinds the watch/schedule/publish core
// reports. Only ErrConfig is fatal; every other kind is logged and the
// long-running loops keep going.
//
// Usage:
//
//	if err := os.Rename(src, dst); err != nil {
//	    return errors.WrapIO(err, "move %s", src)
//	}
//
//	if errors.Is(err, errors.ErrParse) {
//	    // drop the event, keep watching
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
	CombineErrors  = crdb.CombineErrors
)

// Error kinds. Use them with errors.Is(); the helpers below mark an
// underlying error with a kind while keeping its message intact.
var (
	// ErrConfig indicates invalid or unreadable configuration (fatal at startup)
	ErrConfig = New("configuration error")

	// ErrIO indicates a file read, write or move failed
	ErrIO = New("io error")

	// ErrParse indicates malformed frontmatter or an unparsable date
	ErrParse = New("parse error")

	// ErrBuild indicates the external site builder failed
	ErrBuild = New("build error")

	// ErrSocial indicates a social platform rejected or never received a post
	ErrSocial = New("social error")
)

// WrapConfig wraps err with context and marks it as a configuration error.
func WrapConfig(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Mark(Wrapf(err, format, args...), ErrConfig)
}

// NewConfigError creates a configuration error.
func NewConfigError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrConfig)
}

// WrapIO wraps err with context and marks it as an I/O error.
func WrapIO(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Mark(Wrapf(err, format, args...), ErrIO)
}

// NewIOError creates an I/O error that has no underlying cause, such as a
// destination that already exists.
func NewIOError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrIO)
}

// WrapParse wraps err with context and marks it as a parse error.
func WrapParse(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Mark(Wrapf(err, format, args...), ErrParse)
}

// NewParseError creates a parse error.
func NewParseError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrParse)
}

// NewBuildError creates a build error. output is attached as a detail so it
// shows up in verbose output without polluting the one-line message.
func NewBuildError(output string, format string, args ...interface{}) error {
	err := Newf(format, args...)
	if output != "" {
		err = WithDetail(err, output)
	}
	return Mark(err, ErrBuild)
}

// WrapBuild wraps err with context and marks it as a build error.
func WrapBuild(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Mark(Wrapf(err, format, args...), ErrBuild)
}

// WrapSocial wraps err with context and marks it as a social error.
func WrapSocial(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Mark(Wrapf(err, format, args...), ErrSocial)
}

// NewSocialError creates a social error.
func NewSocialError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrSocial)
}

// Kind returns the name of the error kind err belongs to, or "unknown".
// Used as a structured log field.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrConfig):
		return "config"
	case Is(err, ErrIO):
		return "io"
	case Is(err, ErrParse):
		return "parse"
	case Is(err, ErrBuild):
		return "build"
	case Is(err, ErrSocial):
		return "social"
	default:
		return "unknown"
	}
}

// IsFatal reports whether err should stop the process. Only configuration
// errors are fatal.
func IsFatal(err error) bool {
	return err != nil && Is(err, ErrConfig)
}
