package commands

import (
	"io"

	"github.com/pterm/pterm"

	"github.com/teranos/emile/errors"
)

// PrintError writes err and its hints for the person at the terminal.
func PrintError(w io.Writer, err error) {
	pterm.Error.WithWriter(w).Println(err.Error())
	for _, hint := range errors.GetAllHints(err) {
		pterm.Fprintln(w, pterm.Gray("  hint: ")+hint)
	}
}

func success(format string, args ...interface{}) {
	pterm.Success.Printfln(format, args...)
}

func warning(format string, args ...interface{}) {
	pterm.Warning.Printfln(format, args...)
}
