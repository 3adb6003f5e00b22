// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

// FormPrompter asks questions with single-field huh forms.
type FormPrompter struct {
	cfg Config
}

// NewFormPrompter creates a FormPrompter.
func NewFormPrompter(cfg Config) *FormPrompter {
	return &FormPrompter{cfg: cfg}
}

// Confirm shows a Yes/No selector preset to defaultYes.
func (p *FormPrompter) Confirm(title string, defaultYes bool) (bool, error) {
	value := defaultYes
	field := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&value)

	if err := p.run(field); err != nil {
		return false, err
	}
	return value, nil
}

// Input shows a text field with lines as its description.
func (p *FormPrompter) Input(title string, lines ...string) (string, error) {
	var value string
	field := huh.NewInput().
		Title(title).
		Value(&value)
	if len(lines) > 0 {
		field = field.Description(strings.Join(lines, "\n"))
	}

	if err := p.run(field); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func (p *FormPrompter) run(field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(getHuhTheme(p.cfg.Theme)).
		WithAccessible(p.cfg.Accessible)
	if p.cfg.Input != nil {
		form = form.WithInput(p.cfg.Input)
	}
	if p.cfg.Output != nil {
		form = form.WithOutput(p.cfg.Output)
	}

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrCancelled
		}
		return err
	}
	return nil
}
