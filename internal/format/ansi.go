package format

import (
	"os"

	"golang.org/x/term"
)

// Style is the escape sequence for one kind of output.
type Style string

// Styles used across the commands.
const (
	Heading  Style = "\033[1m"
	Faint    Style = "\033[2m"
	Revision Style = "\033[33m"
	Kept     Style = "\033[32m"
	Added    Style = "\033[32m"
	Removed  Style = "\033[31m"

	reset = "\033[0m"
)

var colors = true

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok || !term.IsTerminal(int(os.Stdout.Fd())) {
		DisableColors()
	}
}

// DisableColors makes Paint return its input unchanged.
func DisableColors() {
	colors = false
}

// Paint wraps text in s. Empty text stays empty.
func (s Style) Paint(text string) string {
	if !colors || text == "" {
		return text
	}
	return string(s) + text + reset
}

// TermWidth returns the terminal width, defaulting to 80.
func TermWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// Hash renders a revision hash the way every command prints it.
func Hash(h string) string {
	return Revision.Paint(h)
}

// ShortHash renders the first eight characters of a hash.
func ShortHash(h string) string {
	if len(h) > 8 {
		h = h[:8]
	}
	return Hash(h)
}
