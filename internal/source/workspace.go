// SPDX-License-Identifier: MPL-2.0

package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	workspacePattern = "kspmod-*"
	contentsDir      = "contents"
	downloadFile     = "download"
)

// workspace is the temporary directory a remote or archived mod is
// materialized in:
//
//	<dir>/download             fetched archive (remote references only)
//	<dir>/contents/<name>/...  extracted or cloned files
type workspace struct {
	dir string
}

func newWorkspace(parent string) (*workspace, error) {
	dir, err := os.MkdirTemp(parent, workspacePattern)
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) archivePath() string {
	return filepath.Join(w.dir, downloadFile)
}

func (w *workspace) contents() string {
	return filepath.Join(w.dir, contentsDir)
}

func (w *workspace) payloadDir(name string) string {
	return filepath.Join(w.contents(), name)
}

// modDir hands ownership of the workspace to a ModDir.
func (w *workspace) modDir(ref Reference, name string) *ModDir {
	return &ModDir{
		Root:      w.contents(),
		Name:      name,
		Ref:       ref,
		workspace: w.dir,
	}
}

func (w *workspace) remove() {
	_ = os.RemoveAll(w.dir) // best effort on failure paths
}

// safeName turns a registry or repository name into a single path element.
func safeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "mod"
	}
	return name
}
