// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LinePrompter asks questions one line at a time. It is used when stdin is
// not a terminal, with --plain, and in tests.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter creates a LinePrompter reading answers from in and
// writing prompts to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

// Confirm prints "<title> [y]/n: " (or "y/[n]: ") and reads one line.
// "y" and "yes" in any case confirm, the empty answer selects defaultYes,
// anything else declines.
func (p *LinePrompter) Confirm(title string, defaultYes bool) (bool, error) {
	suffix := " y/[n]: "
	if defaultYes {
		suffix = " [y]/n: "
	}
	fmt.Fprint(p.out, promptStyle.Render(title)+suffix)

	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Input prints lines, then "<title>: " and reads one line.
func (p *LinePrompter) Input(title string, lines ...string) (string, error) {
	for _, l := range lines {
		fmt.Fprintln(p.out, hintStyle.Render(l))
	}
	fmt.Fprint(p.out, promptStyle.Render(title)+": ")
	return p.readLine()
}

func (p *LinePrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		fmt.Fprintln(p.out)
		if errors.Is(err, io.EOF) {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
