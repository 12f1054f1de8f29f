package ui

import (
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// StripANSI removes escape sequences, leaving printable text.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// DisplayWidth returns the terminal cell width of a styled string.
func DisplayWidth(s string) int {
	return ansi.StringWidth(s)
}

// Truncate cuts a styled string to the given cell width, appending an
// ellipsis when anything was cut.
func Truncate(s string, width int) string {
	if DisplayWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// PadRight pads a plain (unstyled) string to the given cell width.
func PadRight(s string, width int) string {
	return s + spaces(width-runewidth.StringWidth(s))
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
