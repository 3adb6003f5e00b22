// SPDX-License-Identifier: MPL-2.0

package install

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/u-root/u-root/pkg/cp"
)

const (
	// Move renames entries into place, copying only across filesystems.
	Move Mode = iota
	// Copy leaves the source untouched.
	Copy
)

// Mode selects how Payload transfers entries.
type Mode int

func (m Mode) String() string {
	if m == Copy {
		return "copy"
	}
	return "move"
}

// copyOpts copies symlinks as links rather than following them out of the mod.
var copyOpts = cp.Options{NoFollowSymlinks: true}

// Payload transfers every top-level entry of src to dest/<name>. An existing
// entry of the same name is removed first, recursively if it is a directory,
// so nothing is merged. It returns the names installed, in directory order.
// A failure leaves the entries handled so far in place.
func Payload(src, dest string, mode Mode) ([]string, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	if !isDir(dest) {
		return nil, fmt.Errorf("destination %s: %w", dest, os.ErrNotExist)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dest, e.Name())

		if err := os.RemoveAll(to); err != nil {
			return names, fmt.Errorf("removing existing %s: %w", to, err)
		}
		if err := place(from, to, mode); err != nil {
			return names, fmt.Errorf("installing %s: %w", e.Name(), err)
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func place(from, to string, mode Mode) error {
	if mode == Move {
		if err := os.Rename(from, to); err == nil {
			return nil
		}
		// cross-device or otherwise not renameable: copy, then remove
	}
	if err := copyOpts.CopyTree(from, to); err != nil {
		_ = os.RemoveAll(to)
		return err
	}
	if mode == Move {
		return os.RemoveAll(from)
	}
	return nil
}
