// SPDX-License-Identifier: MPL-2.0

package payload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kspmod/kspmod/internal/tui"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/sahilm/fuzzy"
)

const (
	// DefaultFolder is the payload folder name searched for.
	DefaultFolder = "GameData"

	// maxHints bounds the near-miss names shown when nothing matched.
	maxHints = 3
)

// ErrInvalidSelection is reported (and the menu shown again) for answers that
// are neither "a", blank, "n" nor a list of valid indices.
var ErrInvalidSelection = errors.New("invalid selection")

type (
	// Locator picks the payload directories of a materialized mod.
	Locator struct {
		prompter tui.Prompter
		folder   string
		out      io.Writer
		logger   *log.Logger
	}

	// Option configures a Locator.
	Option func(*Locator)
)

// WithFolder sets the payload folder name; the match is exact and
// case-sensitive.
func WithFolder(name string) Option {
	return func(l *Locator) {
		if name != "" {
			l.folder = name
		}
	}
}

// WithOutput sets where hints and selection errors are printed.
func WithOutput(w io.Writer) Option {
	return func(l *Locator) { l.out = w }
}

// WithLogger sets the logger.
func WithLogger(lg *log.Logger) Option {
	return func(l *Locator) { l.logger = lg }
}

// NewLocator creates a Locator searching for DefaultFolder.
func NewLocator(p tui.Prompter, opts ...Option) *Locator {
	l := &Locator{
		prompter: p,
		folder:   DefaultFolder,
		out:      os.Stdout,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Candidates returns every directory below modDir (modDir itself excluded)
// named exactly like the payload folder, in walk order.
func (l *Locator) Candidates(modDir string) ([]string, error) {
	var found []string
	err := doublestar.GlobWalk(os.DirFS(modDir), "**/"+l.folder, func(p string, d fs.DirEntry) error {
		if d.IsDir() {
			found = append(found, filepath.Join(modDir, filepath.FromSlash(p)))
		}
		return nil
	}, doublestar.WithNoFollow())
	if err != nil {
		return nil, fmt.Errorf("searching %s for %s: %w", modDir, l.folder, err)
	}
	l.logger.Debug("payload candidates", "dir", modDir, "count", len(found))
	return found, nil
}

// Locate returns the directories whose contents should be installed. An
// empty result means the user chose to skip this mod. Paths typed in by the
// user are not checked for existence.
func (l *Locator) Locate(modDir string) ([]string, error) {
	candidates, err := l.Candidates(modDir)
	if err != nil {
		return nil, err
	}

	switch len(candidates) {
	case 0:
		if hints := l.nearMisses(modDir); len(hints) > 0 {
			fmt.Fprintf(l.out, "No %s folder found; similar names: %s\n", l.folder, strings.Join(hints, ", "))
		}
		ok, err := l.prompter.Confirm(fmt.Sprintf("Couldn't find %s, use directory root?", l.folder), true)
		if err != nil {
			return nil, err
		}
		if ok {
			return []string{modDir}, nil
		}
		return l.manual(modDir)

	case 1:
		ok, err := l.prompter.Confirm(fmt.Sprintf("Found %s at %s, use?", l.folder, rel(modDir, candidates[0])), true)
		if err != nil {
			return nil, err
		}
		if ok {
			return candidates, nil
		}
		return l.manual(modDir)

	default:
		return l.choose(modDir, candidates)
	}
}

func (l *Locator) manual(modDir string) ([]string, error) {
	answer, err := l.prompter.Input(fmt.Sprintf("Enter %s location in mod directory", l.folder))
	if err != nil {
		return nil, err
	}
	return []string{filepath.Join(modDir, filepath.FromSlash(answer))}, nil
}

func (l *Locator) choose(modDir string, candidates []string) ([]string, error) {
	menu := make([]string, len(candidates))
	for i, c := range candidates {
		menu[i] = fmt.Sprintf("[%d]: %s", i, rel(modDir, c))
	}
	title := fmt.Sprintf("Found multiple %ss, choose one, or 'a' to use all", l.folder)

	for {
		answer, err := l.prompter.Input(title, menu...)
		if err != nil {
			return nil, err
		}
		picked, err := parseSelection(answer, len(candidates))
		if err != nil {
			fmt.Fprintln(l.out, err)
			continue
		}
		if picked == nil {
			return candidates, nil
		}
		selected := make([]string, 0, len(picked))
		for _, i := range picked {
			selected = append(selected, candidates[i])
		}
		return selected, nil
	}
}

// parseSelection interprets a menu answer. A nil slice means "all"; an empty
// non-nil slice means "none". Indices keep the order they were typed in.
func parseSelection(answer string, n int) ([]int, error) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "a":
		return nil, nil
	case "", "n", "no":
		return []int{}, nil
	}

	fields := strings.FieldsFunc(answer, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	picked := make([]int, 0, len(fields))
	for _, f := range fields {
		i, err := strconv.Atoi(f)
		if err != nil || i < 0 || i >= n {
			return nil, fmt.Errorf("%w %q: enter indices between 0 and %d, 'a' or 'n'", ErrInvalidSelection, f, n-1)
		}
		picked = append(picked, i)
	}
	return picked, nil
}

// nearMisses returns up to maxHints directory paths whose base name fuzzily
// resembles the payload folder, best match first.
func (l *Locator) nearMisses(modDir string) []string {
	var dirs, names []string
	err := doublestar.GlobWalk(os.DirFS(modDir), "**", func(p string, d fs.DirEntry) error {
		if d.IsDir() && p != "." {
			dirs = append(dirs, p)
			names = append(names, path.Base(p))
		}
		return nil
	}, doublestar.WithNoFollow())
	if err != nil {
		l.logger.Debug("near-miss scan failed", "dir", modDir, "err", err)
		return nil
	}

	var hints []string
	for _, m := range fuzzy.Find(l.folder, names) {
		if len(hints) == maxHints {
			break
		}
		hints = append(hints, dirs[m.Index])
	}
	return hints
}

func rel(base, target string) string {
	r, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return filepath.ToSlash(r)
}
