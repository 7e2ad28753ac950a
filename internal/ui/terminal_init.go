package ui

import (
	"io"
	"os"

	"golang.org/x/term"
)

var terminalInitialized bool

// InitTerminal must run before any lipgloss rendering. termenv (used by
// lipgloss) queries the terminal background color via OSC 11 and the reply
// can end up mixed into stdout; setting COLORFGBG skips the query.
func InitTerminal() {
	if terminalInitialized {
		return
	}
	terminalInitialized = true
	if os.Getenv("COLORFGBG") == "" {
		os.Setenv("COLORFGBG", "0;15")
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
