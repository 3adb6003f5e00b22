// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	// ThemeDefault uses the base huh theme.
	ThemeDefault Theme = "default"
	// ThemeCharm uses the Charm theme.
	ThemeCharm Theme = "charm"
	// ThemeDracula uses the Dracula theme.
	ThemeDracula Theme = "dracula"
)

// ErrCancelled is returned when the user aborts a prompt (Ctrl+C, Esc) or
// the input stream ends before an answer was read.
var ErrCancelled = errors.New("prompt cancelled")

type (
	// Theme represents the visual theme for form prompts.
	Theme string

	// Config holds common configuration for prompts.
	Config struct {
		// Theme specifies the visual theme to use.
		Theme Theme
		// Accessible enables accessible mode for screen readers.
		Accessible bool
		// Plain forces the line prompter even on a terminal.
		Plain bool
		// Input is where answers are read from.
		Input io.Reader
		// Output is where prompts are written.
		Output io.Writer
	}

	// Prompter asks the user questions. Implementations keep no state
	// between calls; every question is self-contained.
	Prompter interface {
		// Confirm asks a yes/no question. An empty answer selects defaultYes.
		Confirm(title string, defaultYes bool) (bool, error)
		// Input shows the optional lines (a menu, a hint) and then asks
		// title, returning the raw answer with surrounding whitespace removed.
		Input(title string, lines ...string) (string, error)
	}
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// DefaultConfig returns the default configuration. Accessible mode is
// enabled when stdin is not a terminal or the ACCESSIBLE environment
// variable is set.
func DefaultConfig() Config {
	return Config{
		Theme:      ThemeDefault,
		Accessible: !isInputTerminal() || os.Getenv("ACCESSIBLE") != "",
		Input:      os.Stdin,
		Output:     os.Stdout,
	}
}

// New returns the prompter suited to cfg: huh forms on an interactive
// terminal, a LinePrompter otherwise.
func New(cfg Config) Prompter {
	in := cfg.Input
	if in == nil {
		in = os.Stdin
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	if cfg.Plain || in != io.Reader(os.Stdin) || !isInputTerminal() {
		return NewLinePrompter(in, out)
	}
	return NewFormPrompter(cfg)
}

// isInputTerminal returns true if stdin is connected to a terminal.
func isInputTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// getHuhTheme converts a Theme to a huh.Theme.
func getHuhTheme(t Theme) *huh.Theme {
	switch t {
	case ThemeCharm:
		return huh.ThemeCharm()
	case ThemeDracula:
		return huh.ThemeDracula()
	default:
		return huh.ThemeBase()
	}
}
