// SPDX-License-Identifier: MPL-2.0

package install

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kspmod/kspmod/internal/tui"
)

// ErrNoDestination is returned when no GameData directory was given.
var ErrNoDestination = errors.New("no GameData directory given")

// FindDestination offers the first existing directory among candidates and
// falls back to asking for a path when there is none or the user declines.
// A "~/" prefix in the typed path is expanded; the path is not checked.
func FindDestination(candidates []string, p tui.Prompter) (string, error) {
	for _, c := range candidates {
		if !isDir(c) {
			continue
		}
		ok, err := p.Confirm(fmt.Sprintf("Found KSP GameData at %s, install?", c), true)
		if err != nil {
			return "", err
		}
		if ok {
			return c, nil
		}
		break
	}

	answer, err := p.Input("Enter KSP GameData location")
	if err != nil {
		return "", err
	}
	if answer == "" {
		return "", ErrNoDestination
	}
	return expandHome(answer), nil
}

func expandHome(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
