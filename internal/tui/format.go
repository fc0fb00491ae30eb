package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// truncate shortens s to maxWidth terminal cells, appending "..." when it
// had to cut. Uses runewidth so full-width characters count correctly.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// padRight pads s with spaces to the given cell width, measuring with
// ansi.StringWidth so styled strings pad correctly.
func padRight(s string, width int) string {
	gap := width - ansi.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

// tick renders an owned-objective marker.
func tick(owned bool) string {
	if owned {
		return "✓"
	}
	return "·"
}
